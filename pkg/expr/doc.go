// Package expr provides CEL (Common Expression Language) environments for
// evaluating expressions against alerting rules.
//
// Rule expressions have access to variables:
//   - `alert` (string): The alert name
//   - `labels` (map<string, dyn>): The rule's labels
//   - `group` (string): The name of the rule group
//   - `namespace` (string): The namespace of the PrometheusRule resource
//   - `name` (string): The name of the PrometheusRule resource
//   - `rule` (map<string, dyn>): The full rule, e.g. rule.expr or rule.for
package expr
