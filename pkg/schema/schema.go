// Package schema reflects JSON schemas from configuration types.
package schema

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// Reflect returns the JSON schema for the type of v, as JSON.
//
// The schema is anonymous (it has no $id), and struct fields without
// "omitempty" are required. Unknown properties are rejected.
func Reflect(v any) ([]byte, error) {
	r := &jsonschema.Reflector{
		Anonymous:      true,
		ExpandedStruct: true,
	}

	b, err := json.MarshalIndent(r.Reflect(v), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}

	return b, nil
}

// MustReflect is like [Reflect] but panics on error.
func MustReflect(v any) []byte {
	b, err := Reflect(v)
	if err != nil {
		panic(err)
	}

	return b
}
