package client

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/smnsjas/go-msfrpc/codec"
)

// fakeTransport is a poster that records requests and answers them from
// per-method handlers.
type fakeTransport struct {
	mu sync.Mutex

	// Handlers maps a method name to its response. Handlers receive the
	// decoded request without the method name.
	Handlers map[string]func(params []any) codec.Value

	// PostFunc, if set, replaces the handler dispatch entirely.
	PostFunc func(ctx context.Context, url string, body []byte) ([]byte, error)

	// State
	Requests   [][]any
	URLs       []string
	CloseCalls int
}

func (f *fakeTransport) Post(ctx context.Context, url string, body []byte) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.URLs = append(f.URLs, url)

	req, err := codec.Decode(body)
	if err != nil {
		return nil, fmt.Errorf("fake: bad request: %w", err)
	}
	items, _ := req.Interface().([]any)
	f.Requests = append(f.Requests, items)

	if f.PostFunc != nil {
		return f.PostFunc(ctx, url, body)
	}

	if len(items) == 0 {
		return nil, fmt.Errorf("fake: empty request")
	}
	method, _ := items[0].(string)
	h, ok := f.Handlers[method]
	if !ok {
		return codec.Encode(codec.Map(
			codec.Entry("error", codec.Bool(true)),
			codec.Entry("error_class", codec.Str("Msf::RPC::Exception")),
			codec.Entry("error_message", codec.Str("Unknown API Call: '"+method+"'")),
		))
	}
	return codec.Encode(h(items[1:]))
}

func (f *fakeTransport) CloseIdleConnections() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.CloseCalls++
}

func (f *fakeTransport) postCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Requests)
}

func (f *fakeTransport) lastRequest(t *testing.T) []any {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Requests) == 0 {
		t.Fatal("no request recorded")
	}
	return f.Requests[len(f.Requests)-1]
}

// loginOK answers auth.login with a success map. Fields are sent as byte
// strings, as older msfrpcd versions do.
func loginOK(token string) func([]any) codec.Value {
	return func([]any) codec.Value {
		return codec.Map(
			codec.MapEntry{Key: codec.Bin([]byte("result")), Val: codec.Bin([]byte("success"))},
			codec.MapEntry{Key: codec.Bin([]byte("token")), Val: codec.Bin([]byte(token))},
		)
	}
}

// newTestClient returns a client with default config backed by fake.
func newTestClient(fake *fakeTransport) *Client {
	return newClient(Config{}.withDefaults(), fake)
}

// newAuthedClient returns a client already logged in with token.
func newAuthedClient(t *testing.T, fake *fakeTransport, token string) *Client {
	t.Helper()
	if fake.Handlers == nil {
		fake.Handlers = map[string]func([]any) codec.Value{}
	}
	fake.Handlers[LoginMethod] = loginOK(token)

	c := newTestClient(fake)
	if err := c.Login(context.Background(), "msf", "pw"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	return c
}
