package client

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a client failure.
type ErrorKind int

const (
	// KindAuthRequired means a method other than auth.login was called
	// before a successful Login. No request was sent.
	KindAuthRequired ErrorKind = iota + 1
	// KindAuthFailed means the server rejected the credentials.
	KindAuthFailed
	// KindTransport means the HTTP exchange failed.
	KindTransport
	// KindCodec means the request could not be encoded or the response
	// could not be decoded.
	KindCodec
)

var (
	// ErrAuthRequired matches errors of kind KindAuthRequired.
	ErrAuthRequired = errors.New("msfrpc: not authenticated")

	// ErrAuthFailed matches errors of kind KindAuthFailed.
	ErrAuthFailed = errors.New("msfrpc: authentication failed")

	// ErrTransport matches errors of kind KindTransport.
	ErrTransport = errors.New("msfrpc: transport error")

	// ErrCodec matches errors of kind KindCodec.
	ErrCodec = errors.New("msfrpc: codec error")
)

// String returns the name of the kind.
func (k ErrorKind) String() string {
	switch k {
	case KindAuthRequired:
		return "auth required"
	case KindAuthFailed:
		return "auth failed"
	case KindTransport:
		return "transport"
	case KindCodec:
		return "codec"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

func (k ErrorKind) sentinel() error {
	switch k {
	case KindAuthRequired:
		return ErrAuthRequired
	case KindAuthFailed:
		return ErrAuthFailed
	case KindTransport:
		return ErrTransport
	case KindCodec:
		return ErrCodec
	}
	return nil
}

// Error is returned by Call and Login.
//
// Use errors.Is with the Err* sentinels to test the kind, and errors.As or
// errors.Is to reach the underlying transport, codec or fault error.
type Error struct {
	// Kind classifies the failure.
	Kind ErrorKind

	// Method is the RPC method being called.
	Method string

	// Err is the underlying error, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := "msfrpc: " + e.Method + ": "
	switch e.Kind {
	case KindAuthRequired:
		msg += "not authenticated"
	case KindAuthFailed:
		msg += "authentication failed"
	default:
		msg += e.Kind.String() + " error"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for e's kind.
func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// KindOf returns the kind of a client error, or zero if err is not one.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
