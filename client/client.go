// Package client provides a Metasploit MSGRPC client.
package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/smnsjas/go-msfrpc/codec"
	"github.com/smnsjas/go-msfrpc/transport"
)

// LoginMethod is the only method callable without a session token.
const LoginMethod = "auth.login"

const (
	// DefaultHost is the address msfrpcd listens on by default.
	DefaultHost = "127.0.0.1"

	// DefaultPort is the msfrpcd default port.
	DefaultPort = 55553

	// DefaultPath is the MSGRPC endpoint path.
	DefaultPath = "/api/"
)

// Config holds configuration for an MSGRPC client.
// Zero values are replaced with defaults by New.
type Config struct {
	// Host is the server address (default: 127.0.0.1).
	Host string

	// Port is the server port (default: 55553).
	Port int

	// Path is the API endpoint path (default: /api/).
	Path string

	// UseTLS enables HTTPS transport.
	UseTLS bool

	// InsecureSkipVerify skips TLS certificate verification.
	// msfrpcd serves a self-signed certificate unless configured otherwise.
	InsecureSkipVerify bool

	// Proxy is the HTTP proxy URL. Empty uses the environment
	// (HTTP_PROXY, HTTPS_PROXY) and "direct" disables proxying.
	Proxy string

	// Timeout bounds each HTTP request (default: 60s).
	Timeout time.Duration

	// RateLimit caps requests per second. Zero means unlimited.
	RateLimit float64

	// RateBurst is the burst allowed above RateLimit (default: 1).
	RateBurst int

	// Logger receives debug and security events. Nil disables logging.
	Logger *slog.Logger
}

// DefaultConfig returns a Config with the msfrpcd defaults.
func DefaultConfig() Config {
	return Config{
		Host:    DefaultHost,
		Port:    DefaultPort,
		Path:    DefaultPath,
		UseTLS:  false,
		Timeout: transport.DefaultTimeout,
	}
}

// withDefaults returns a copy of c with zero fields filled in.
func (c Config) withDefaults() Config {
	if c.Host == "" {
		c.Host = DefaultHost
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.Path == "" {
		c.Path = DefaultPath
	}
	if !strings.HasPrefix(c.Path, "/") {
		c.Path = "/" + c.Path
	}
	if c.Timeout == 0 {
		c.Timeout = transport.DefaultTimeout
	}
	return c
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.Timeout < 0 {
		return errors.New("timeout must not be negative")
	}
	if c.RateLimit < 0 {
		return errors.New("rate limit must not be negative")
	}
	if c.Proxy != "" && c.Proxy != "direct" {
		u, err := url.Parse(c.Proxy)
		if err != nil {
			return fmt.Errorf("invalid proxy URL: %w", err)
		}
		if u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid proxy URL %q: scheme and host required", c.Proxy)
		}
	}
	return nil
}

// poster sends one request body and returns the response body.
type poster interface {
	Post(ctx context.Context, url string, body []byte) ([]byte, error)
	CloseIdleConnections()
}

// Client is an MSGRPC client. It is safe for concurrent use; calls are
// serialised.
type Client struct {
	mu sync.Mutex

	config   Config
	endpoint string

	transport poster
	logger    *slog.Logger
	security  *SecurityLogger

	authenticated bool
	token         string
}

// New creates a client. No connection is made until the first call.
func New(cfg Config) (*Client, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	opts := []transport.HTTPTransportOption{
		transport.WithTimeout(cfg.Timeout),
	}
	if cfg.UseTLS && cfg.InsecureSkipVerify {
		opts = append(opts, transport.WithInsecureSkipVerify(true))
	}
	if cfg.Proxy != "" {
		opts = append(opts, transport.WithProxy(cfg.Proxy))
	}
	if cfg.RateLimit > 0 {
		opts = append(opts, transport.WithRateLimit(rate.Limit(cfg.RateLimit), cfg.RateBurst))
	}

	return newClient(cfg, transport.NewHTTPTransport(opts...)), nil
}

func newClient(cfg Config, tr poster) *Client {
	scheme := "http"
	if cfg.UseTLS {
		scheme = "https"
	}
	endpoint := fmt.Sprintf("%s://%s%s", scheme, net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)), cfg.Path)

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Client{
		config:    cfg,
		endpoint:  endpoint,
		transport: tr,
		logger:    logger,
		security:  NewSecurityLogger(cfg.Logger, endpoint),
	}
}

// Endpoint returns the MSGRPC endpoint URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Config returns the effective configuration, with defaults applied.
func (c *Client) Config() Config {
	return c.config
}

// Authenticated reports whether Login has succeeded.
func (c *Client) Authenticated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.authenticated
}

// Token returns the session token, or "" before a successful Login.
func (c *Client) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// Close releases idle connections held by the transport. The client stays
// usable; a later call opens a new connection.
func (c *Client) Close() error {
	c.transport.CloseIdleConnections()
	return nil
}

// Call invokes an RPC method and returns the normalized response.
//
// The request sent is [method, token, args...]; the token is omitted for
// auth.login. Any method other than auth.login fails with ErrAuthRequired
// before Login has succeeded, without contacting the server.
//
// Server-side errors arrive as an ordinary response map; use
// codec.CheckFault to detect them.
func (c *Client) Call(ctx context.Context, method string, args ...any) (codec.Value, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.call(ctx, method, args)
}

// call must be called with mu held.
func (c *Client) call(ctx context.Context, method string, args []any) (codec.Value, error) {
	if method != LoginMethod && !c.authenticated {
		c.security.LogCall(SubtypeCallFailed, OutcomeDenied, SeverityWarning, map[string]any{
			"method": method,
			"error":  "not authenticated",
		})
		return codec.Value{}, &Error{Kind: KindAuthRequired, Method: method}
	}

	body, err := codec.Encode(buildRequest(method, c.token, args))
	if err != nil {
		return codec.Value{}, &Error{Kind: KindCodec, Method: method, Err: err}
	}

	start := time.Now()
	c.logger.Debug("msgrpc request", "method", method, "args", len(args), "bytes", len(body))
	c.security.LogCall(SubtypeCallExecute, OutcomeAttempt, SeverityInfo, map[string]any{
		"method": method,
	})

	respBody, err := c.transport.Post(ctx, c.endpoint, body)
	if err != nil {
		c.security.LogCall(SubtypeCallFailed, OutcomeFailure, SeverityError, map[string]any{
			"method": method,
			"error":  err.Error(),
		})
		return codec.Value{}, &Error{Kind: KindTransport, Method: method, Err: err}
	}

	result, err := codec.Decode(respBody)
	if err != nil {
		c.security.LogCall(SubtypeCallFailed, OutcomeFailure, SeverityError, map[string]any{
			"method": method,
			"error":  err.Error(),
		})
		return codec.Value{}, &Error{Kind: KindCodec, Method: method, Err: err}
	}

	elapsed := time.Since(start)
	c.logger.Debug("msgrpc response",
		"method", method,
		"bytes", len(respBody),
		"duration", elapsed)
	c.security.LogCall(SubtypeCallComplete, OutcomeSuccess, SeverityInfo, map[string]any{
		"method":      method,
		"duration_ms": elapsed.Milliseconds(),
	})

	return result, nil
}

// buildRequest lays out the call request. args is not modified.
func buildRequest(method, token string, args []any) []any {
	req := make([]any, 0, len(args)+2)
	req = append(req, method)
	if method != LoginMethod {
		req = append(req, token)
	}
	return append(req, args...)
}

// Login authenticates with user and password and stores the session token.
//
// On failure the client is left exactly as it was. A client that is already
// authenticated keeps its current session unless this Login succeeds.
func (c *Client) Login(ctx context.Context, user, password string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.security.LogAuthentication(SubtypeAuthAttempt, OutcomeAttempt, SeverityInfo, map[string]any{
		"user": user,
	})

	resp, err := c.call(ctx, LoginMethod, []any{user, password})
	if err != nil {
		c.security.LogAuthentication(SubtypeAuthFailure, OutcomeFailure, SeverityError, map[string]any{
			"user":  user,
			"error": err.Error(),
		})
		return err
	}
	resp = codec.Normalize(resp)

	result, _ := resp.GetStr("result")
	token, hasToken := resp.GetStr("token")
	if result != "success" || !hasToken {
		authErr := &Error{Kind: KindAuthFailed, Method: LoginMethod, Err: codec.CheckFault(resp)}
		c.security.LogAuthentication(SubtypeAuthFailure, OutcomeDenied, SeverityWarning, map[string]any{
			"user":   user,
			"result": result,
		})
		return authErr
	}

	c.authenticated = true
	c.token = token
	c.security.SetUser(user)
	c.security.LogAuthentication(SubtypeAuthSuccess, OutcomeSuccess, SeverityInfo, nil)
	return nil
}
