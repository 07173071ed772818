package yaml

import (
	"errors"
	"io"

	"github.com/goccy/go-yaml"
)

type Decoder struct {
	d *yaml.Decoder
}

// NewDecoder returns a [Decoder] that rejects unknown fields when
// decoding into structs.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{
		d: yaml.NewDecoder(r, yaml.DisallowUnknownField()),
	}
}

// Decode decodes the next document into v. Syntax and type errors are
// returned as [*Error] values that point at the offending token.
func (d *Decoder) Decode(v any) error {
	err := d.d.Decode(v)
	if err == nil {
		return nil
	}

	var yamlErr yaml.Error
	if errors.As(err, &yamlErr) {
		return NewError(errors.New(yamlErr.GetMessage()), WithToken(yamlErr.GetToken()))
	}

	//nolint:wrapcheck // Return the original error if it's not a [yaml.Error].
	return err
}
