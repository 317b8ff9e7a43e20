package client

import (
	"errors"
	"fmt"
	"testing"
)

func TestError_Is(t *testing.T) {
	sentinels := []error{ErrAuthRequired, ErrAuthFailed, ErrTransport, ErrCodec}
	kinds := []ErrorKind{KindAuthRequired, KindAuthFailed, KindTransport, KindCodec}

	for i, kind := range kinds {
		err := fmt.Errorf("wrapped: %w", &Error{Kind: kind, Method: "core.version"})
		for j, s := range sentinels {
			if got := errors.Is(err, s); got != (i == j) {
				t.Errorf("errors.Is(%v, %v) = %v, want %v", kind, s, got, i == j)
			}
		}
		if got := KindOf(err); got != kind {
			t.Errorf("KindOf() = %v, want %v", got, kind)
		}
	}
}

func TestError_Message(t *testing.T) {
	tests := []struct {
		err  *Error
		want string
	}{
		{
			&Error{Kind: KindAuthRequired, Method: "module.exploits"},
			"msfrpc: module.exploits: not authenticated",
		},
		{
			&Error{Kind: KindAuthFailed, Method: "auth.login"},
			"msfrpc: auth.login: authentication failed",
		},
		{
			&Error{Kind: KindTransport, Method: "core.version", Err: errors.New("connection refused")},
			"msfrpc: core.version: transport error: connection refused",
		},
		{
			&Error{Kind: KindCodec, Method: "core.version", Err: errors.New("bad byte")},
			"msfrpc: core.version: codec error: bad byte",
		},
	}

	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
}

func TestKindOf_Foreign(t *testing.T) {
	if got := KindOf(errors.New("plain")); got != 0 {
		t.Errorf("KindOf(plain) = %v, want 0", got)
	}
	if got := ErrorKind(99).String(); got != "ErrorKind(99)" {
		t.Errorf("String() = %q", got)
	}
}
