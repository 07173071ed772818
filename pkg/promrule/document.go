package promrule

import (
	"maps"
)

type (
	// Document is a list of PrometheusRule resources, as returned by
	// `oc get promrule -A -o json`.
	Document Object

	// Resource is a single PrometheusRule resource.
	Resource Object

	// Group is a rule group inside a resource's spec.
	Group Object

	// Rule is a single alerting or recording rule.
	Rule Object
)

// Items returns the resources in the document.
// It reports false if the document has no usable "items" list.
// Entries that are not objects are dropped from the result.
func (d Document) Items() ([]Resource, bool) {
	raw, ok := Object(d).getList("items")
	if !ok {
		return nil, false
	}

	items := make([]Resource, 0, len(raw))
	for _, v := range raw {
		if obj, ok := asObject(v); ok {
			items = append(items, Resource(obj))
		}
	}

	return items, true
}

// Groups returns the rule groups of the resource (spec.groups).
// It reports false if "spec" or "spec.groups" are missing or malformed.
func (r Resource) Groups() ([]Group, bool) {
	spec, ok := Object(r).getObject("spec")
	if !ok {
		return nil, false
	}

	raw, ok := spec.getList("groups")
	if !ok {
		return nil, false
	}

	groups := make([]Group, 0, len(raw))
	for _, v := range raw {
		if obj, ok := asObject(v); ok {
			groups = append(groups, Group(obj))
		}
	}

	return groups, true
}

// Object returns the resource as a generic [Object].
func (r Resource) Object() Object {
	return Object(r)
}

// Name returns the group name, or an empty string.
func (g Group) Name() string {
	s, _ := Object(g).getString("name")

	return s
}

// Rules returns the rules of the group.
// It reports false if "rules" is missing or malformed.
func (g Group) Rules() ([]Rule, bool) {
	raw, ok := Object(g).getList("rules")
	if !ok {
		return nil, false
	}

	rules := make([]Rule, 0, len(raw))
	for _, v := range raw {
		if obj, ok := asObject(v); ok {
			rules = append(rules, Rule(obj))
		}
	}

	return rules, true
}

// AppendRule adds a rule to the end of the group's rules.
// A missing or malformed "rules" field is replaced.
func (g Group) AppendRule(rule Rule) {
	raw, _ := Object(g).getList("rules")
	g["rules"] = append(raw, map[string]any(rule))
}

// Alert returns the alert name of the rule.
// It reports false for recording rules and rules with a non-string alert.
func (r Rule) Alert() (string, bool) {
	return Object(r).getString("alert")
}

// SetAlert replaces the alert name of the rule.
func (r Rule) SetAlert(name string) {
	r["alert"] = name
}

// Labels returns the labels map of the rule. The map is shared with the
// rule, so writes to it are visible in the document.
// It reports false if the rule has no "labels" object.
func (r Rule) Labels() (map[string]any, bool) {
	labels, ok := Object(r).getObject("labels")

	return labels, ok
}

// SetLabel sets a label on the rule. It reports false, and does nothing,
// if the rule has no labels map.
func (r Rule) SetLabel(key, value string) bool {
	labels, ok := r.Labels()
	if !ok {
		return false
	}

	labels[key] = value

	return true
}

// Clone returns a deep copy of the rule.
func (r Rule) Clone() Rule {
	return Rule(Object(r).DeepCopy())
}

// Fields returns a shallow copy of the rule's raw fields.
func (r Rule) Fields() map[string]any {
	return maps.Clone(map[string]any(r))
}

func asObject(v any) (Object, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Object:
		return m, true
	}

	return nil, false
}
