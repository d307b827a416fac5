// codec.go -- key and value codecs
//
// (c) Sudhi Herle 2018
//
// License GPLv2
//
// If you need a commercial license for this work, please contact
// the author.
//
// This software does not come with any express or implied
// warranty; it is provided "as is". No claim  is made to its
// suitability for any purpose.

package forkmap

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
)

// Encoder turns a caller value into the raw bytes stored in the index.
// Encoders must be pure: the same input always yields the same bytes.
type Encoder[T any] func(T) ([]byte, error)

// Decoder turns raw value bytes back into a caller value. The input may
// point into the read-only mapping; decoders must not modify it and must
// copy it if they retain it.
type Decoder[T any] func([]byte) (T, error)

// BytesKey uses a byte slice as the key, unchanged
func BytesKey(k []byte) ([]byte, error) {
	return k, nil
}

// StringKey uses the bytes of a string as the key
func StringKey(k string) ([]byte, error) {
	return []byte(k), nil
}

// Uint64Key encodes an integer key as 8 big-endian bytes
func Uint64Key(k uint64) ([]byte, error) {
	var b [8]byte

	binary.BigEndian.PutUint64(b[:], k)
	return b[:], nil
}

// RawValue returns the stored bytes as is; the result aliases the mapping.
func RawValue(v []byte) ([]byte, error) {
	return v, nil
}

// CopyValue returns a private heap copy of the stored bytes
func CopyValue(v []byte) ([]byte, error) {
	return bytes.Clone(v), nil
}

// StringValue returns the stored bytes as a string
func StringValue(v []byte) (string, error) {
	return string(v), nil
}

// JSONValue returns a decoder that unmarshals JSON encoded values into T
func JSONValue[T any]() Decoder[T] {
	return func(v []byte) (T, error) {
		var t T

		err := json.Unmarshal(v, &t)
		return t, err
	}
}

// JSONEncoder returns an encoder that marshals T as JSON
func JSONEncoder[T any]() Encoder[T] {
	return func(t T) ([]byte, error) {
		return json.Marshal(t)
	}
}

// identity codecs used when the caller passes nil; they only work when
// the caller type already is []byte or string.
func identityEncoder[T any]() Encoder[T] {
	return func(t T) ([]byte, error) {
		switch k := any(t).(type) {
		case []byte:
			return k, nil
		case string:
			return []byte(k), nil
		}
		return nil, fmt.Errorf("no key encoder for %T", t)
	}
}

func identityDecoder[T any]() Decoder[T] {
	return func(b []byte) (T, error) {
		var t T

		switch p := any(&t).(type) {
		case *[]byte:
			*p = b
		case *string:
			*p = string(b)
		default:
			return t, fmt.Errorf("no value decoder for %T", t)
		}
		return t, nil
	}
}
