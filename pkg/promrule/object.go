package promrule

import (
	"maps"
)

// Object is a decoded JSON object. All typed views in this package are
// conversions of [Object], so they share storage with the document they
// were read from.
type Object map[string]any

// GetAPIVersion returns the apiVersion of the object.
// If apiVersion is not set, it returns an empty string.
func (o Object) GetAPIVersion() string {
	s, _ := o.getString("apiVersion")

	return s
}

// GetKind returns the kind of the object.
// If the kind is not set, it returns "<empty>".
func (o Object) GetKind() string {
	if k, ok := o.getString("kind"); ok {
		return k
	}

	return "<empty>"
}

// GetNamespace returns the namespace of the object.
// If the namespace is not set, it returns an empty string.
func (o Object) GetNamespace() string {
	if metadata, ok := o.getObject("metadata"); ok {
		ns, _ := metadata.getString("namespace")

		return ns
	}

	return ""
}

// GetName returns the name of the object.
// If the name is not set, it returns "<empty>".
func (o Object) GetName() string {
	if metadata, ok := o.getObject("metadata"); ok {
		if n, ok := metadata.getString("name"); ok {
			return n
		}
	}

	return "<empty>"
}

func (o Object) GetNamespacedName() string {
	ns := o.GetNamespace()
	name := o.GetName()
	if ns != "" {
		return ns + "/" + name
	}

	return name
}

// DeepCopy returns a copy of the object that shares no maps or slices
// with the receiver.
func (o Object) DeepCopy() Object {
	if o == nil {
		return nil
	}

	out, _ := deepCopyValue(map[string]any(o)).(map[string]any)

	return out
}

func (o Object) getString(key string) (string, bool) {
	v, ok := o[key]
	if !ok {
		return "", false
	}

	s, ok := v.(string)

	return s, ok
}

func (o Object) getObject(key string) (Object, bool) {
	return asObject(o[key])
}

func (o Object) getList(key string) ([]any, bool) {
	v, ok := o[key]
	if !ok {
		return nil, false
	}

	l, ok := v.([]any)

	return l, ok
}

func deepCopyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = deepCopyValue(val)
		}

		return out

	case Object:
		return deepCopyValue(map[string]any(t))

	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = deepCopyValue(val)
		}

		return out

	case map[string]string:
		return maps.Clone(t)
	}

	// Strings, json.Number, bools and nil are immutable.
	return v
}
