package codec

import (
	"fmt"
	"strings"
)

// ICodec is the interface for all document codecs
type ICodec interface {
	// Name returns the name the codec is selected by (e.g. "json")
	Name() string
	// Encode encodes v into a byte array
	// It returns the encoded byte array and an error if any
	Encode(v any) ([]byte, error)
	// Decode decodes a byte array into v
	// v must be a pointer
	Decode(b []byte, v any) error
}

// ByName returns the codec with the given name
func ByName(name string) (ICodec, error) {
	switch strings.ToLower(name) {
	case "json", "":
		return NewJSONCodec(), nil
	case "gob":
		return NewGOBCodec(), nil
	default:
		return nil, fmt.Errorf("unknown codec %q. must be one of json, gob", name)
	}
}
