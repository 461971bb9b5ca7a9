package core

import (
	"encoding/hex"
	"fmt"
	"reflect"

	"github.com/go-crypt/x/blake2b"
)

// KeySize is the digest size in bytes used for content-addressed keys.
// Keys are rendered as lowercase hex, so a key string is twice as long.
const KeySize = 32

// KeyFromBytes derives a content-addressed key from raw bytes using BLAKE2b-256.
// Identical input always produces the identical key, across process runs.
func KeyFromBytes(data []byte) string {
	h, _ := blake2b.New(KeySize, nil)
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// KeyFromString derives a key from the UTF-8 encoding of s.
func KeyFromString(s string) string {
	return KeyFromBytes([]byte(s))
}

// KeyOf derives a key for an arbitrary source.
//
// Byte slices, including named byte-slice types such as json.RawMessage,
// are hashed directly. Every other source is hashed through its
// canonical string form: strings as-is, fmt.Stringer values via String(), and
// anything else via fmt.Sprint.
//
// Two sources with different identity but the same string form share a key.
// A reader that does not implement fmt.Stringer, for example, is keyed by its
// printed pointer value. Loaders that need a stronger identity for their
// source type should override ToKey.
func KeyOf(source any) string {
	switch s := source.(type) {
	case []byte:
		return KeyFromBytes(s)
	case string:
		return KeyFromString(s)
	case fmt.Stringer:
		return KeyFromString(s.String())
	}
	if b, ok := byteSlice(source); ok {
		return KeyFromBytes(b)
	}
	return KeyFromString(fmt.Sprint(source))
}

// byteSlice returns the bytes of a value whose underlying type is []byte.
func byteSlice(v any) ([]byte, bool) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice || rv.Type().Elem().Kind() != reflect.Uint8 {
		return nil, false
	}
	return rv.Bytes(), true
}
