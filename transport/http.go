package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ErrUnauthorized is returned when the server responds with 401 Unauthorized
// and no MSGRPC body.
var ErrUnauthorized = errors.New("transport: authentication failed (401 Unauthorized)")

const (
	// ContentTypeMsgpack is the content type MSGRPC requests and responses carry.
	ContentTypeMsgpack = "binary/message-pack"

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 60 * time.Second

	// defaultBufferSize is the initial size for pooled buffers.
	defaultBufferSize = 32 * 1024

	// maxBodyPreview caps the response text kept in a StatusError.
	maxBodyPreview = 512

	// MaxResponseSize caps the size of a response body.
	MaxResponseSize = 64 << 20
)

// ErrResponseTooLarge is returned when a response body exceeds MaxResponseSize.
var ErrResponseTooLarge = fmt.Errorf("transport: response larger than %d bytes", MaxResponseSize)

var bufferPool = sync.Pool{
	New: func() interface{} {
		return bytes.NewBuffer(make([]byte, 0, defaultBufferSize))
	},
}

// readAllPooled reads at most limit bytes of r into a pooled buffer and
// returns a copy of the data.
func readAllPooled(r io.Reader, limit int64) ([]byte, error) {
	buf := bufferPool.Get().(*bytes.Buffer)
	defer func() {
		buf.Reset()
		bufferPool.Put(buf)
	}()

	if _, err := buf.ReadFrom(io.LimitReader(r, limit+1)); err != nil {
		return nil, err
	}
	if int64(buf.Len()) > limit {
		return nil, ErrResponseTooLarge
	}

	result := make([]byte, buf.Len())
	copy(result, buf.Bytes())
	return result, nil
}

// StatusError is returned for HTTP error responses that do not carry an
// MSGRPC body.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("transport: HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("transport: HTTP %d: %s", e.StatusCode, e.Body)
}

// Unwrap maps 401 responses to ErrUnauthorized.
func (e *StatusError) Unwrap() error {
	if e.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	return nil
}

// HTTPTransport posts MSGRPC payloads over HTTP or HTTPS.
type HTTPTransport struct {
	client      *http.Client
	limiter     *rate.Limiter
	maxResponse int64
}

// HTTPTransportOption configures an HTTPTransport.
type HTTPTransportOption func(*HTTPTransport)

// NewHTTPTransport creates a new HTTP transport with the given options.
func NewHTTPTransport(opts ...HTTPTransportOption) *HTTPTransport {
	t := &HTTPTransport{
		maxResponse: MaxResponseSize,
		client: &http.Client{
			Timeout: DefaultTimeout,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				TLSClientConfig: &tls.Config{
					MinVersion: tls.VersionTLS12,
				},
				// One logical session per client; a single idle
				// connection is reused between calls.
				MaxIdleConns:        1,
				MaxIdleConnsPerHost: 1,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// WithTimeout sets the HTTP client timeout. Zero disables it.
func WithTimeout(d time.Duration) HTTPTransportOption {
	return func(t *HTTPTransport) {
		t.client.Timeout = d
	}
}

// WithInsecureSkipVerify configures TLS to skip certificate verification.
// msfrpcd generates a self-signed certificate unless one is supplied.
func WithInsecureSkipVerify(skip bool) HTTPTransportOption {
	return func(t *HTTPTransport) {
		if skip {
			fmt.Fprintf(os.Stderr, "WARNING: TLS certificate verification disabled.\n")
		}
		transport := t.ensureHTTPTransport()
		if transport.TLSClientConfig == nil {
			transport.TLSClientConfig = &tls.Config{
				MinVersion: tls.VersionTLS12,
			}
		}
		transport.TLSClientConfig.InsecureSkipVerify = skip
	}
}

// WithProxy sets the proxy URL. "direct" disables proxying and an empty
// string keeps the environment default.
func WithProxy(proxyURL string) HTTPTransportOption {
	return func(t *HTTPTransport) {
		transport := t.ensureHTTPTransport()
		switch proxyURL {
		case "":
			return
		case "direct":
			transport.Proxy = nil
		default:
			u, err := url.Parse(proxyURL)
			if err != nil {
				fmt.Fprintf(os.Stderr, "WARNING: ignoring invalid proxy URL %q: %v\n", proxyURL, err)
				return
			}
			transport.Proxy = http.ProxyURL(u)
		}
	}
}

// WithRateLimit limits outgoing requests to limit per second with the given
// burst. Post waits for a token, honouring the request context.
func WithRateLimit(limit rate.Limit, burst int) HTTPTransportOption {
	return func(t *HTTPTransport) {
		if limit <= 0 {
			t.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		t.limiter = rate.NewLimiter(limit, burst)
	}
}

// ensureHTTPTransport ensures the client has an *http.Transport.
func (t *HTTPTransport) ensureHTTPTransport() *http.Transport {
	transport, ok := t.client.Transport.(*http.Transport)
	if !ok {
		transport = &http.Transport{Proxy: http.ProxyFromEnvironment}
		t.client.Transport = transport
	}
	return transport
}

// Post sends an MSGRPC request and returns the response body.
//
// MSGRPC reports errors with a msgpack body and a 4xx or 5xx status, so
// those bodies are returned to the caller like any other. Error statuses
// with any other content type are returned as a *StatusError.
func (t *HTTPTransport) Post(ctx context.Context, url string, body []byte) ([]byte, error) {
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("transport: rate limit: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("transport: failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", ContentTypeMsgpack)

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transport: request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := readAllPooled(resp.Body, t.maxResponse)
	if err != nil {
		return nil, fmt.Errorf("transport: failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 && !isMsgpack(resp.Header.Get("Content-Type")) {
		preview := string(respBody)
		if len(preview) > maxBodyPreview {
			preview = preview[:maxBodyPreview] + "..."
		}
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: preview}
	}

	return respBody, nil
}

func isMsgpack(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	return err == nil && mt == ContentTypeMsgpack
}

// CloseIdleConnections closes any idle connections in the transport.
func (t *HTTPTransport) CloseIdleConnections() {
	t.client.CloseIdleConnections()
}
