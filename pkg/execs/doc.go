// Package execs runs external commands, as defined by configuration.
//
// It is used to call the cluster CLI: once to fetch PrometheusRule
// resources, and once to apply the generated file. Commands run with a
// filtered environment; see [Command.GetEnv].
package execs
