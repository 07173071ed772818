// Package promrule provides typed views over decoded PrometheusRule
// documents.
//
// Documents are kept as generic JSON trees so that fields this package
// does not know about are written back unchanged. Every accessor for an
// optional field returns a second boolean result, which is false when the
// field is missing or has an unexpected type.
package promrule
