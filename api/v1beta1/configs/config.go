// Package configs provides the Configuration type for rulelabel.
package configs

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/invopop/jsonschema"

	_ "embed"

	"github.com/macropower/rulelabel/api"
	"github.com/macropower/rulelabel/api/v1beta1"
	"github.com/macropower/rulelabel/pkg/execs"
	"github.com/macropower/rulelabel/pkg/promrule"
	"github.com/macropower/rulelabel/pkg/schema"
	"github.com/macropower/rulelabel/pkg/yaml"
)

// SchemaFile is the name of the JSON schema written next to the config file.
const SchemaFile = "config.v1beta1.json"

var (
	//go:embed config.yaml
	defaultConfigYAML []byte

	// ValidKinds contains the valid kind values for configurations.
	// It must be declared before SchemaJSON, which reads it.
	ValidKinds = []string{"Configuration"}

	// SchemaJSON is the JSON schema for [Config].
	SchemaJSON = schema.MustReflect(&Config{})

	// DefaultValidator validates configuration against [SchemaJSON].
	DefaultValidator = yaml.MustNewValidator("/"+SchemaFile, SchemaJSON)

	// Compile-time interface checks.
	_ v1beta1.Object = (*Config)(nil)
)

// Config represents the rulelabel configuration.
//
//nolint:recvcheck // Must satisfy the jsonschema interface.
type Config struct {
	// Source is the command that prints the PrometheusRule list as JSON.
	Source *execs.Command `json:"source,omitempty" jsonschema:"title=Source"`
	// Apply is the command that applies the output file. The file path is
	// appended to its arguments.
	Apply *execs.Command `json:"apply,omitempty" jsonschema:"title=Apply"`
	// Envelope configures the PrometheusRule resource that holds cloned rules.
	Envelope         *promrule.EnvelopeConfig `json:"envelope,omitempty" jsonschema:"title=Envelope"`
	v1beta1.TypeMeta `json:",inline"`
}

// New creates a new [Config] with default values.
func New() *Config {
	c := &Config{
		TypeMeta: v1beta1.TypeMeta{
			APIVersion: v1beta1.APIVersion,
			Kind:       "Configuration",
		},
	}
	c.EnsureDefaults()

	return c
}

// DefaultSource returns the default source command, `oc get promrule -A -o json`.
func DefaultSource() *execs.Command {
	return &execs.Command{
		Command: "oc",
		Args:    []string{"get", "promrule", "-A", "-o", "json"},
		EnvFrom: kubeconfigEnv(),
	}
}

// DefaultApply returns the default apply command, `oc apply -f`.
func DefaultApply() *execs.Command {
	return &execs.Command{
		Command: "oc",
		Args:    []string{"apply", "-f"},
		EnvFrom: kubeconfigEnv(),
	}
}

func kubeconfigEnv() []execs.EnvFromSource {
	return []execs.EnvFromSource{
		{CallerRef: &execs.CallerRef{Name: "KUBECONFIG"}},
	}
}

// EnsureDefaults initializes nil fields to their default values.
func (c *Config) EnsureDefaults() {
	if c.Source == nil {
		c.Source = DefaultSource()
	}

	if c.Apply == nil {
		c.Apply = DefaultApply()
	}

	if c.Envelope == nil {
		c.Envelope = promrule.NewEnvelopeConfig()
	} else {
		c.Envelope.EnsureDefaults()
	}
}

// SetBaseEnv sets the environment that the configured commands inherit
// variables from, usually [os.Environ].
func (c *Config) SetBaseEnv(env []string) {
	if c.Source != nil {
		c.Source.SetBaseEnv(env)
	}

	if c.Apply != nil {
		c.Apply.SetBaseEnv(env)
	}
}

// Validate checks requirements that the JSON schema cannot express.
func (c *Config) Validate() error {
	if c.Source != nil {
		err := c.Source.CompilePatterns()
		if err != nil {
			return fmt.Errorf("source: %w", err)
		}
	}

	if c.Apply != nil {
		err := c.Apply.CompilePatterns()
		if err != nil {
			return fmt.Errorf("apply: %w", err)
		}
	}

	return nil
}

func (c Config) JSONSchemaExtend(jss *jsonschema.Schema) {
	v1beta1.ExtendSchemaWithEnums(jss, v1beta1.ValidAPIVersions, ValidKinds)
}

// MarshalYAML serializes the config to YAML.
func (c Config) MarshalYAML() ([]byte, error) {
	type alias Config

	b, err := api.MarshalYAML(alias(c))
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}

	return b, nil
}

// WriteDefault writes the default config.yaml to path, and the JSON
// schema next to it. Using force replaces an existing config file after
// backing it up.
func WriteDefault(path string, force bool) error {
	err := api.WriteDefaultFile(path, defaultConfigYAML, force, "configuration")
	if err != nil {
		return fmt.Errorf("write default config: %w", err)
	}

	schemaPath := filepath.Join(filepath.Dir(path), SchemaFile)
	slog.Debug("write JSON schema", slog.String("path", schemaPath))

	err = os.WriteFile(schemaPath, SchemaJSON, 0o600)
	if err != nil {
		return fmt.Errorf("write schema: %w", err)
	}

	return nil
}

// GetPath returns the path to the configuration file.
func GetPath() string {
	return api.GetConfigPath("config.yaml")
}
