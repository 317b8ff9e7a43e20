// Package codec encodes MSGRPC requests and decodes responses.
//
// Responses are decoded into Value, a closed variant over the msgpack
// types, and normalized so byte strings holding UTF-8 text read as text:
//
//	v, err := codec.Decode(body)
//	if err != nil {
//	    return err
//	}
//	modules, _ := v.Get("modules")
package codec
