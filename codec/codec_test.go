package codec

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

// TestEncode_StringsAndBytes verifies str/bin separation on the wire.
func TestEncode_StringsAndBytes(t *testing.T) {
	data, err := Encode([]any{"auth.login", []byte{0xff}})
	require.NoError(t, err)

	// fixarray(2), fixstr(10) "auth.login", bin8 len 1 0xff
	want := append([]byte{0x92, 0xaa}, "auth.login"...)
	want = append(want, 0xc4, 0x01, 0xff)
	assert.Equal(t, want, data)
}

// TestEncode_CompactInts verifies integers use the smallest encoding.
func TestEncode_CompactInts(t *testing.T) {
	data, err := Encode(int64(5))
	require.NoError(t, err)
	assert.Equal(t, []byte{0x05}, data)
}

// TestEncode_Value verifies a Value encodes as its underlying shape.
func TestEncode_Value(t *testing.T) {
	v := Map(
		Entry("a", Array(Int(1), Bool(true), Nil())),
		Entry("b", Float(1.5)),
	)
	data, err := Encode(v)
	require.NoError(t, err)

	got, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, v, got)
}

// TestDecode_RoundTrip verifies logical content survives encode and decode.
func TestDecode_RoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  Value
	}{
		{"nil", nil, Nil()},
		{"bool", true, Bool(true)},
		{"negative int", -42, Int(-42)},
		{"large int", int64(1) << 40, Int(1 << 40)},
		{"float", 2.25, Float(2.25)},
		{"text", "hello", Str("hello")},
		{"binary text becomes text", []byte("payload"), Str("payload")},
		{
			"nested",
			map[string]any{"modules": []any{"exploit/a", []byte("exploit/b")}},
			Map(Entry("modules", Array(Str("exploit/a"), Str("exploit/b")))),
		},
		{"empty array", []any{}, Array()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := Encode(tt.input)
			require.NoError(t, err)

			got, err := Decode(data)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// TestDecode_BinaryKeys verifies map keys sent as bin are normalized.
func TestDecode_BinaryKeys(t *testing.T) {
	data, err := msgpack.Marshal(map[string]any{"result": "success"})
	require.NoError(t, err)
	raw, err := DecodeRaw(data)
	require.NoError(t, err)
	assert.Equal(t, KindStr, raw.Entries()[0].Key.Kind())

	in := Map(MapEntry{Key: Bin([]byte("token")), Val: Bin([]byte("TEMPabc"))})
	data, err = Encode(in)
	require.NoError(t, err)

	raw, err = DecodeRaw(data)
	require.NoError(t, err)
	assert.Equal(t, KindBin, raw.Entries()[0].Key.Kind())

	got, err := Decode(data)
	require.NoError(t, err)
	tok, ok := got.GetStr("token")
	require.True(t, ok)
	assert.Equal(t, "TEMPabc", tok)
	assert.Equal(t, KindStr, got.Entries()[0].Key.Kind())
}

// TestDecode_Uint64 verifies values above MaxInt64 keep their unsigned kind.
func TestDecode_Uint64(t *testing.T) {
	data, err := Encode(uint64(math.MaxUint64))
	require.NoError(t, err)

	got, err := Decode(data)
	require.NoError(t, err)
	u, ok := got.AsUint()
	require.True(t, ok)
	assert.Equal(t, uint64(math.MaxUint64), u)

	_, ok = got.AsInt()
	assert.False(t, ok)
}

// TestDecode_Errors verifies malformed payloads are reported.
func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"truncated string", []byte{0xa5, 'a', 'b'}},
		{"truncated array", []byte{0x92, 0x01}},
		{"never used code", []byte{0xc1}},
		{"extension", []byte{0xd4, 0x01, 0x00}},
		{"array32 length without items", []byte{0xdd, 0x10, 0x00, 0x00, 0x00}},
		{"map32 length without entries", []byte{0xdf, 0x10, 0x00, 0x00, 0x00}},
		{"array16 length without items", []byte{0xdc, 0xff, 0xff}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.data)
			assert.Error(t, err)
		})
	}
}

// TestDecode_UnsupportedCode verifies the code is reported for extensions.
func TestDecode_UnsupportedCode(t *testing.T) {
	_, err := Decode([]byte{0xd4, 0x01, 0x00})
	var uc *UnsupportedCodeError
	require.True(t, errors.As(err, &uc))
	assert.Equal(t, byte(0xd4), uc.Code)
}

// TestDecode_TrailingData verifies extra bytes after a value are rejected.
func TestDecode_TrailingData(t *testing.T) {
	_, err := Decode([]byte{0x01, 0x02})
	assert.ErrorIs(t, err, ErrTrailingData)
}

// TestDecode_TooDeep verifies the nesting limit.
func TestDecode_TooDeep(t *testing.T) {
	data := make([]byte, 0, maxDepth+2)
	for i := 0; i < maxDepth+2; i++ {
		data = append(data, 0x91) // fixarray(1)
	}
	data = append(data, 0xc0)

	_, err := Decode(data)
	assert.ErrorIs(t, err, ErrTooDeep)
}

func TestNormalize(t *testing.T) {
	invalid := []byte{0xff, 0xfe}

	tests := []struct {
		name string
		in   Value
		want Value
	}{
		{"text unchanged", Str("x"), Str("x")},
		{"int unchanged", Int(7), Int(7)},
		{"nil unchanged", Nil(), Nil()},
		{"binary to text", Bin([]byte("abc")), Str("abc")},
		{"invalid utf8 stays binary", Bin(invalid), Bin(invalid)},
		{
			"array materialised",
			Array(Bin([]byte("a")), Int(1)),
			Array(Str("a"), Int(1)),
		},
		{
			"map keys and values",
			Map(MapEntry{Key: Bin([]byte("k")), Val: Array(Bin([]byte("v")))}),
			Map(Entry("k", Array(Str("v")))),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

// TestNormalize_ArrayReusable verifies a normalized array can be read twice.
func TestNormalize_ArrayReusable(t *testing.T) {
	v := Normalize(Array(Bin([]byte("a")), Bin([]byte("b"))))

	first, ok := v.Strings()
	require.True(t, ok)
	second, ok := v.Strings()
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, first)
	assert.Equal(t, first, second)
}

// TestNormalize_DoesNotModifyInput verifies the input tree is left intact.
func TestNormalize_DoesNotModifyInput(t *testing.T) {
	in := Array(Bin([]byte("a")))
	_ = Normalize(in)
	assert.Equal(t, KindBin, in.Items()[0].Kind())
}

func TestValue_Interface(t *testing.T) {
	v := Map(
		Entry("modules", Array(Str("a"), Str("b"))),
		Entry("count", Int(2)),
		MapEntry{Key: Int(1), Val: Bool(true)},
	)

	want := map[string]any{
		"modules": []any{"a", "b"},
		"count":   int64(2),
		"1":       true,
	}
	assert.Equal(t, want, v.Interface())
}

func TestValue_String(t *testing.T) {
	v := Map(Entry("a", Array(Int(1), Bin([]byte{0x01}), Nil())))
	assert.Equal(t, `{"a": [1, b"\x01", nil]}`, v.String())
}

func TestValue_Accessors(t *testing.T) {
	v := Map(Entry("result", Str("success")))

	s, ok := v.GetStr("result")
	assert.True(t, ok)
	assert.Equal(t, "success", s)

	_, ok = v.GetStr("missing")
	assert.False(t, ok)

	_, ok = Str("x").Get("result")
	assert.False(t, ok)

	f, ok := Int(3).AsFloat()
	assert.True(t, ok)
	assert.Equal(t, 3.0, f)

	assert.Equal(t, 1, v.Len())
	assert.Nil(t, v.Items())
	assert.Equal(t, "map", v.Kind().String())

	_, ok = Array(Str("a"), Int(1)).Strings()
	assert.False(t, ok)
}
