// Package patch sets a label on PrometheusRule alerting rules whose alert
// name is in an allow-list.
//
// Two modes are supported:
//   - [ModeUpdate] sets the label on the matching rules in place, and the
//     whole input document is the result.
//   - [ModeClone] copies the matching rules into a new PrometheusRule
//     resource, appending a suffix to each alert name, and leaves the input
//     document untouched.
//
// Rules without an alert name (recording rules) or without a labels map
// are never modified.
package patch
