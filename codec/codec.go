package codec

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/vmihailenco/msgpack/v5/msgpcode"
)

// ContentType is the MIME type MSGRPC expects on requests.
const ContentType = "binary/message-pack"

// maxDepth bounds nesting of arrays and maps on decode.
const maxDepth = 512

var (
	// ErrTrailingData is returned when bytes remain after a complete value.
	ErrTrailingData = errors.New("codec: trailing data after value")

	// ErrTooDeep is returned when a payload nests deeper than the decoder allows.
	ErrTooDeep = errors.New("codec: value nested too deeply")
)

// UnsupportedCodeError is returned for msgpack types that have no Value
// representation, such as extension types.
type UnsupportedCodeError struct {
	Code byte
}

func (e *UnsupportedCodeError) Error() string {
	return fmt.Sprintf("codec: unsupported msgpack code 0x%02x", e.Code)
}

// Encode serializes v to msgpack. Go strings are written as str and byte
// slices as bin, and integers use the smallest encoding that fits.
func Encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.UseCompactInts(true)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("codec: encode: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode parses a single msgpack value and normalizes it.
func Decode(data []byte) (Value, error) {
	v, err := DecodeRaw(data)
	if err != nil {
		return Value{}, err
	}
	return Normalize(v), nil
}

// DecodeRaw parses a single msgpack value without normalization. Byte
// strings are kept as KindBin.
func DecodeRaw(data []byte) (Value, error) {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	v, err := decodeValue(dec, 0, len(data))
	if err != nil {
		return Value{}, fmt.Errorf("codec: decode: %w", err)
	}
	if _, err := dec.PeekCode(); err == nil {
		return Value{}, ErrTrailingData
	}
	return v, nil
}

// decodeValue reads one value. limit is the payload size; every element takes
// at least one byte, so no collection can hold more than limit items.
func decodeValue(dec *msgpack.Decoder, depth, limit int) (Value, error) {
	if depth > maxDepth {
		return Value{}, ErrTooDeep
	}

	c, err := dec.PeekCode()
	if err != nil {
		return Value{}, err
	}

	switch {
	case c == msgpcode.Nil:
		if err := dec.DecodeNil(); err != nil {
			return Value{}, err
		}
		return Nil(), nil

	case c == msgpcode.False || c == msgpcode.True:
		b, err := dec.DecodeBool()
		if err != nil {
			return Value{}, err
		}
		return Bool(b), nil

	case c == msgpcode.Uint64:
		u, err := dec.DecodeUint64()
		if err != nil {
			return Value{}, err
		}
		if u <= math.MaxInt64 {
			return Int(int64(u)), nil
		}
		return Uint(u), nil

	case msgpcode.IsFixedNum(c),
		c == msgpcode.Uint8, c == msgpcode.Uint16, c == msgpcode.Uint32,
		c == msgpcode.Int8, c == msgpcode.Int16, c == msgpcode.Int32, c == msgpcode.Int64:
		n, err := dec.DecodeInt64()
		if err != nil {
			return Value{}, err
		}
		return Int(n), nil

	case c == msgpcode.Float || c == msgpcode.Double:
		f, err := dec.DecodeFloat64()
		if err != nil {
			return Value{}, err
		}
		return Float(f), nil

	case msgpcode.IsFixedString(c), c == msgpcode.Str8, c == msgpcode.Str16, c == msgpcode.Str32:
		s, err := dec.DecodeString()
		if err != nil {
			return Value{}, err
		}
		return Str(s), nil

	case c == msgpcode.Bin8 || c == msgpcode.Bin16 || c == msgpcode.Bin32:
		b, err := dec.DecodeBytes()
		if err != nil {
			return Value{}, err
		}
		return Bin(b), nil

	case msgpcode.IsFixedArray(c), c == msgpcode.Array16, c == msgpcode.Array32:
		n, err := dec.DecodeArrayLen()
		if err != nil {
			return Value{}, err
		}
		var items []Value
		if n > 0 {
			items = make([]Value, 0, min(n, limit))
		}
		for i := 0; i < n; i++ {
			item, err := decodeValue(dec, depth+1, limit)
			if err != nil {
				return Value{}, err
			}
			items = append(items, item)
		}
		return Array(items...), nil

	case msgpcode.IsFixedMap(c), c == msgpcode.Map16, c == msgpcode.Map32:
		n, err := dec.DecodeMapLen()
		if err != nil {
			return Value{}, err
		}
		var entries []MapEntry
		if n > 0 {
			entries = make([]MapEntry, 0, min(n, limit))
		}
		for i := 0; i < n; i++ {
			k, err := decodeValue(dec, depth+1, limit)
			if err != nil {
				return Value{}, err
			}
			v, err := decodeValue(dec, depth+1, limit)
			if err != nil {
				return Value{}, err
			}
			entries = append(entries, MapEntry{Key: k, Val: v})
		}
		return Map(entries...), nil
	}

	return Value{}, &UnsupportedCodeError{Code: c}
}

// Normalize converts every byte-string leaf that holds valid UTF-8 into a
// text string, descending into arrays and map keys and values. Byte strings
// that are not valid UTF-8 are left as KindBin. Arrays and maps are copied;
// v itself is not modified.
func Normalize(v Value) Value {
	switch v.kind {
	case KindBin:
		if utf8.Valid(v.bin) {
			return Str(string(v.bin))
		}
		return v

	case KindArray:
		if v.arr == nil {
			return v
		}
		out := make([]Value, len(v.arr))
		for i, e := range v.arr {
			out[i] = Normalize(e)
		}
		return Array(out...)

	case KindMap:
		if v.entries == nil {
			return v
		}
		out := make([]MapEntry, len(v.entries))
		for i, e := range v.entries {
			out[i] = MapEntry{Key: Normalize(e.Key), Val: Normalize(e.Val)}
		}
		return Map(out...)
	}
	return v
}
