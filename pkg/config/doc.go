// Package config loads rulelabel configuration files.
//
// Files are YAML, validated against the JSON schema of
// [github.com/macropower/rulelabel/api/v1beta1/configs.Config] before they
// are decoded. Errors point at the offending line of the file.
package config
