package codec

import (
	"errors"
	"strings"
)

// Fault is an error reported by the MSGRPC server inside a response body.
type Fault struct {
	// Class is the server-side exception class (e.g., "Msf::RPC::Exception").
	Class string

	// String is the short error string.
	String string

	// Message is the human-readable message.
	Message string

	// Code is the numeric error code, usually an HTTP status.
	Code int64

	// Backtrace holds server stack frames when the server sends them.
	Backtrace []string
}

// Error implements the error interface.
func (f *Fault) Error() string {
	var parts []string
	if f.Class != "" {
		parts = append(parts, f.Class)
	}
	msg := f.Message
	if msg == "" {
		msg = f.String
	}
	if msg != "" {
		parts = append(parts, msg)
	}
	if len(parts) == 0 {
		return "msgrpc fault"
	}
	return "msgrpc fault: " + strings.Join(parts, ": ")
}

// IsInvalidToken returns true if the fault reports an unknown or expired
// session token.
func (f *Fault) IsInvalidToken() bool {
	return f.Code == 401 || strings.Contains(f.Message, "Invalid Authentication Token")
}

// IsFault returns true if the error is a Fault.
func IsFault(err error) bool {
	var f *Fault
	return errors.As(err, &f)
}

// AsFault extracts a Fault from a response map of the form
// {error: true, error_class, error_string, error_message, error_code}.
func AsFault(v Value) (*Fault, bool) {
	flag, ok := v.Get("error")
	if !ok {
		return nil, false
	}
	if b, isBool := flag.AsBool(); !isBool || !b {
		return nil, false
	}

	f := &Fault{}
	f.Class, _ = v.GetStr("error_class")
	f.String, _ = v.GetStr("error_string")
	f.Message, _ = v.GetStr("error_message")
	if code, ok := v.Get("error_code"); ok {
		f.Code, _ = code.AsInt()
	}
	if bt, ok := v.Get("error_backtrace"); ok {
		f.Backtrace, _ = bt.Strings()
	}
	return f, true
}

// CheckFault returns the Fault in v as an error, or nil if v is not a fault.
func CheckFault(v Value) error {
	if f, ok := AsFault(v); ok {
		return f
	}
	return nil
}
