package promrule

import (
	"encoding/json"
)

const (
	DefaultAPIVersion = "monitoring.coreos.com/v1"
	DefaultKind       = "PrometheusRule"
	DefaultName       = "prometheus"
	DefaultNamespace  = "openshift-monitoring"
	DefaultGroupName  = "custom-alerts"
)

// EnvelopeConfig configures the PrometheusRule resource that holds
// cloned rules.
type EnvelopeConfig struct {
	// Labels are set on the resource's metadata.
	Labels map[string]string `json:"labels,omitempty" jsonschema:"title=Labels"`
	// Name is the resource name.
	Name string `json:"name,omitempty" jsonschema:"title=Name"`
	// Namespace is the resource namespace.
	Namespace string `json:"namespace,omitempty" jsonschema:"title=Namespace"`
	// GroupName is the name of the single rule group.
	GroupName string `json:"groupName,omitempty" jsonschema:"title=Group Name"`
}

// NewEnvelopeConfig returns an [EnvelopeConfig] with all defaults set.
func NewEnvelopeConfig() *EnvelopeConfig {
	ec := &EnvelopeConfig{}
	ec.EnsureDefaults()

	return ec
}

func (ec *EnvelopeConfig) EnsureDefaults() {
	if ec.Name == "" {
		ec.Name = DefaultName
	}
	if ec.Namespace == "" {
		ec.Namespace = DefaultNamespace
	}
	if ec.GroupName == "" {
		ec.GroupName = DefaultGroupName
	}
	if ec.Labels == nil {
		ec.Labels = map[string]string{"role": "alert-rules"}
	}
}

// Envelope is a PrometheusRule resource with a single rule group.
type Envelope struct {
	Resource

	group Group
}

// NewEnvelope builds a new, empty [Envelope]. Every call returns an
// independent value.
func NewEnvelope(ec EnvelopeConfig) *Envelope {
	ec.EnsureDefaults()

	labels := make(map[string]any, len(ec.Labels))
	for k, v := range ec.Labels {
		labels[k] = v
	}

	group := map[string]any{
		"name":  ec.GroupName,
		"rules": []any{},
	}

	res := map[string]any{
		"apiVersion": DefaultAPIVersion,
		"kind":       DefaultKind,
		"metadata": map[string]any{
			"generation": json.Number("1"),
			"labels":     labels,
			"name":       ec.Name,
			"namespace":  ec.Namespace,
		},
		"spec": map[string]any{
			"groups": []any{group},
		},
	}

	return &Envelope{
		Resource: res,
		group:    group,
	}
}

// Add appends a rule to the envelope's rule group.
func (e *Envelope) Add(rule Rule) {
	e.group.AppendRule(rule)
}

// Rules returns the rules held by the envelope.
func (e *Envelope) Rules() []Rule {
	rules, _ := e.group.Rules()

	return rules
}
