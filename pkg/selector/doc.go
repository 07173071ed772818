// Package selector narrows the set of rules to label, by using CEL (Common
// Expression Language) expressions.
package selector
