// Package v1beta1 contains the v1beta1 API types for rulelabel configuration.
package v1beta1

import "github.com/invopop/jsonschema"

// APIVersion is the current API version for all rulelabel configuration kinds.
const APIVersion = "rulelabel.jacobcolvin.com/v1beta1"

// ValidAPIVersions contains all valid API versions.
var ValidAPIVersions = []string{APIVersion}

// TypeMeta contains the API version and kind metadata common to all config types.
type TypeMeta struct {
	// APIVersion specifies the API version for this configuration.
	APIVersion string `json:"apiVersion" jsonschema:"title=API Version"`
	// Kind defines the type of configuration.
	Kind string `json:"kind" jsonschema:"title=Kind"`
}

func (tm TypeMeta) GetAPIVersion() string {
	return tm.APIVersion
}

func (tm TypeMeta) GetKind() string {
	return tm.Kind
}

// Object is the interface that all config types implement.
type Object interface {
	GetAPIVersion() string
	GetKind() string
	EnsureDefaults()
}

// ExtendSchemaWithEnums restricts the apiVersion and kind properties of a
// reflected schema to the given values. It panics if either property is
// missing, since that can only happen if TypeMeta was not embedded.
func ExtendSchemaWithEnums(jss *jsonschema.Schema, apiVersions, kinds []string) {
	setConsts(jss, "apiVersion", "API Version", apiVersions)
	setConsts(jss, "kind", "Kind", kinds)
}

func setConsts(jss *jsonschema.Schema, property, title string, values []string) {
	prop, ok := jss.Properties.Get(property)
	if !ok {
		panic(property + " property not found in schema")
	}

	for _, v := range values {
		prop.OneOf = append(prop.OneOf, &jsonschema.Schema{
			Type:  "string",
			Const: v,
			Title: title,
		})
	}

	_, _ = jss.Properties.Set(property, prop)
}
