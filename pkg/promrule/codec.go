package promrule

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Indent is the indentation used by [Encode].
const Indent = "    "

// ErrInvalidJSON is returned when input is not a JSON object.
var ErrInvalidJSON = errors.New("invalid JSON")

// Decode reads a single JSON object from r. Numbers are kept as
// [json.Number] so they are written back unchanged.
func Decode(r io.Reader) (Document, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var v any

	err := dec.Decode(&v)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidJSON, err)
	}

	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: top level value is %T, not an object", ErrInvalidJSON, v)
	}

	_, err = dec.Token()
	if !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: unexpected data after top level object", ErrInvalidJSON)
	}

	return obj, nil
}

// DecodeBytes is like [Decode], for a byte slice.
func DecodeBytes(b []byte) (Document, error) {
	return Decode(bytes.NewReader(b))
}

// Encode writes v as indented JSON followed by a newline.
// HTML characters are not escaped, since rule expressions use them.
func Encode(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", Indent)
	enc.SetEscapeHTML(false)

	err := enc.Encode(v)
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}

	return nil
}

// Marshal is like [Encode], but returns the encoded bytes.
func Marshal(v any) ([]byte, error) {
	b := &bytes.Buffer{}

	err := Encode(b, v)
	if err != nil {
		return nil, err
	}

	return b.Bytes(), nil
}
