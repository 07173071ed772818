// Package cluster reads PrometheusRule documents from files or from the
// cluster CLI, and writes and applies the results.
package cluster
