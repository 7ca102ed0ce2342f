// Package codec turns raw object bytes into discrete record payloads. Codecs
// are pluggable; the engine only requires that decoding is finite and emits
// payloads in input order.
package codec

import (
	"fmt"
	"io"
)

// Codec decodes one object's content, calling emit once per record. A
// non-nil error from emit aborts the decode and is returned unchanged.
type Codec interface {
	Name() string
	Decode(r io.Reader, emit func(payload []byte) error) error
}

// ByName resolves a configured codec name. The empty name means plain.
func ByName(name string) (Codec, error) {
	switch name {
	case "", "plain":
		return Plain{}, nil
	case "json_lines":
		return JSONLines{}, nil
	default:
		return nil, fmt.Errorf("unknown codec %q", name)
	}
}
