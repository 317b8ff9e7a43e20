package codec

import (
	"fmt"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

// Kind identifies the shape held by a Value.
type Kind int

const (
	// KindNil is the msgpack nil value.
	KindNil Kind = iota
	// KindBool is a boolean.
	KindBool
	// KindInt is a signed integer.
	KindInt
	// KindUint is an unsigned integer that does not fit in an int64.
	KindUint
	// KindFloat is a 32 or 64 bit float, widened to float64.
	KindFloat
	// KindStr is a text string.
	KindStr
	// KindBin is a raw byte string.
	KindBin
	// KindArray is an ordered sequence of values.
	KindArray
	// KindMap is an ordered list of key/value entries.
	KindMap
)

// String returns the lower-case name of the kind.
func (k Kind) String() string {
	switch k {
	case KindNil:
		return "nil"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindUint:
		return "uint"
	case KindFloat:
		return "float"
	case KindStr:
		return "str"
	case KindBin:
		return "bin"
	case KindArray:
		return "array"
	case KindMap:
		return "map"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// MapEntry is a single key/value pair of a map Value.
type MapEntry struct {
	Key Value
	Val Value
}

// Value is a decoded MSGRPC value.
//
// The zero Value is nil. Only the field matching Kind is meaningful.
type Value struct {
	kind    Kind
	b       bool
	i       int64
	u       uint64
	f       float64
	s       string
	bin     []byte
	arr     []Value
	entries []MapEntry
}

// Nil returns the nil value.
func Nil() Value { return Value{} }

// Bool wraps a boolean.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Int wraps a signed integer.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Uint wraps an unsigned integer.
func Uint(u uint64) Value { return Value{kind: KindUint, u: u} }

// Float wraps a float.
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// Str wraps a text string.
func Str(s string) Value { return Value{kind: KindStr, s: s} }

// Bin wraps a byte string. The slice is not copied.
func Bin(b []byte) Value { return Value{kind: KindBin, bin: b} }

// Array wraps a sequence of values.
func Array(vs ...Value) Value { return Value{kind: KindArray, arr: vs} }

// Map wraps an ordered list of entries.
func Map(entries ...MapEntry) Value { return Value{kind: KindMap, entries: entries} }

// Entry is shorthand for a MapEntry with a text key.
func Entry(key string, val Value) MapEntry {
	return MapEntry{Key: Str(key), Val: val}
}

// Kind reports the shape of v.
func (v Value) Kind() Kind { return v.kind }

// IsNil reports whether v is the nil value.
func (v Value) IsNil() bool { return v.kind == KindNil }

// AsBool returns the boolean and whether v is a bool.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// AsInt returns v as an int64. Unsigned values that overflow and
// non-integers report false.
func (v Value) AsInt() (int64, bool) {
	switch v.kind {
	case KindInt:
		return v.i, true
	case KindUint:
		if v.u > 1<<63-1 {
			return 0, false
		}
		return int64(v.u), true
	}
	return 0, false
}

// AsUint returns the unsigned integer and whether v is a KindUint.
func (v Value) AsUint() (uint64, bool) { return v.u, v.kind == KindUint }

// AsFloat returns v as a float64. Integers are converted.
func (v Value) AsFloat() (float64, bool) {
	switch v.kind {
	case KindFloat:
		return v.f, true
	case KindInt:
		return float64(v.i), true
	case KindUint:
		return float64(v.u), true
	}
	return 0, false
}

// AsStr returns the text and whether v is a KindStr.
func (v Value) AsStr() (string, bool) { return v.s, v.kind == KindStr }

// AsBytes returns the raw bytes and whether v is a KindBin.
func (v Value) AsBytes() ([]byte, bool) { return v.bin, v.kind == KindBin }

// Items returns the elements of an array, or nil.
func (v Value) Items() []Value {
	if v.kind != KindArray {
		return nil
	}
	return v.arr
}

// Entries returns the entries of a map, or nil.
func (v Value) Entries() []MapEntry {
	if v.kind != KindMap {
		return nil
	}
	return v.entries
}

// Len returns the number of elements of an array or map, the length of a
// string or byte string, and zero otherwise.
func (v Value) Len() int {
	switch v.kind {
	case KindArray:
		return len(v.arr)
	case KindMap:
		return len(v.entries)
	case KindStr:
		return len(v.s)
	case KindBin:
		return len(v.bin)
	}
	return 0
}

// Get looks up a text key in a map. Keys still held as byte strings also
// match, so Get works before and after normalization.
func (v Value) Get(key string) (Value, bool) {
	if v.kind != KindMap {
		return Value{}, false
	}
	for _, e := range v.entries {
		switch e.Key.kind {
		case KindStr:
			if e.Key.s == key {
				return e.Val, true
			}
		case KindBin:
			if string(e.Key.bin) == key {
				return e.Val, true
			}
		}
	}
	return Value{}, false
}

// GetStr returns the text stored under key, if present and textual.
func (v Value) GetStr(key string) (string, bool) {
	f, ok := v.Get(key)
	if !ok {
		return "", false
	}
	return f.AsStr()
}

// Strings returns the text elements of an array. Non-text elements make it
// report false.
func (v Value) Strings() ([]string, bool) {
	if v.kind != KindArray {
		return nil, false
	}
	out := make([]string, 0, len(v.arr))
	for _, e := range v.arr {
		s, ok := e.AsStr()
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}

// Interface converts v to plain Go data: nil, bool, int64, uint64, float64,
// string, []byte, []any and map[string]any. Map keys that are not text are
// formatted with fmt.
func (v Value) Interface() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindInt:
		return v.i
	case KindUint:
		return v.u
	case KindFloat:
		return v.f
	case KindStr:
		return v.s
	case KindBin:
		return v.bin
	case KindArray:
		out := make([]any, len(v.arr))
		for i, e := range v.arr {
			out[i] = e.Interface()
		}
		return out
	case KindMap:
		out := make(map[string]any, len(v.entries))
		for _, e := range v.entries {
			var k string
			switch e.Key.kind {
			case KindStr:
				k = e.Key.s
			case KindBin:
				k = string(e.Key.bin)
			default:
				k = e.Key.String()
			}
			out[k] = e.Val.Interface()
		}
		return out
	}
	return nil
}

// String renders v in a compact, debug-friendly form.
func (v Value) String() string {
	var sb strings.Builder
	v.format(&sb)
	return sb.String()
}

func (v Value) format(sb *strings.Builder) {
	switch v.kind {
	case KindNil:
		sb.WriteString("nil")
	case KindBool:
		fmt.Fprintf(sb, "%t", v.b)
	case KindInt:
		fmt.Fprintf(sb, "%d", v.i)
	case KindUint:
		fmt.Fprintf(sb, "%d", v.u)
	case KindFloat:
		fmt.Fprintf(sb, "%g", v.f)
	case KindStr:
		fmt.Fprintf(sb, "%q", v.s)
	case KindBin:
		fmt.Fprintf(sb, "b%q", v.bin)
	case KindArray:
		sb.WriteByte('[')
		for i, e := range v.arr {
			if i > 0 {
				sb.WriteString(", ")
			}
			e.format(sb)
		}
		sb.WriteByte(']')
	case KindMap:
		sb.WriteByte('{')
		for i, e := range v.entries {
			if i > 0 {
				sb.WriteString(", ")
			}
			e.Key.format(sb)
			sb.WriteString(": ")
			e.Val.format(sb)
		}
		sb.WriteByte('}')
	}
}

var _ msgpack.CustomEncoder = Value{}

// EncodeMsgpack implements msgpack.CustomEncoder so a Value can be used
// directly as a call argument.
func (v Value) EncodeMsgpack(enc *msgpack.Encoder) error {
	switch v.kind {
	case KindNil:
		return enc.EncodeNil()
	case KindBool:
		return enc.EncodeBool(v.b)
	case KindInt:
		return enc.EncodeInt(v.i)
	case KindUint:
		return enc.EncodeUint(v.u)
	case KindFloat:
		return enc.EncodeFloat64(v.f)
	case KindStr:
		return enc.EncodeString(v.s)
	case KindBin:
		return enc.EncodeBytes(v.bin)
	case KindArray:
		if err := enc.EncodeArrayLen(len(v.arr)); err != nil {
			return err
		}
		for _, e := range v.arr {
			if err := e.EncodeMsgpack(enc); err != nil {
				return err
			}
		}
		return nil
	case KindMap:
		if err := enc.EncodeMapLen(len(v.entries)); err != nil {
			return err
		}
		for _, e := range v.entries {
			if err := e.Key.EncodeMsgpack(enc); err != nil {
				return err
			}
			if err := e.Val.EncodeMsgpack(enc); err != nil {
				return err
			}
		}
		return nil
	}
	return fmt.Errorf("codec: cannot encode %s", v.kind)
}
