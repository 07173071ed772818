package execs

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/mattn/go-shellwords"
)

var (
	// ErrCommandExecution is returned when command execution fails.
	ErrCommandExecution = errors.New("run")

	// ErrEmptyCommand is returned when a command is empty.
	ErrEmptyCommand = errors.New("empty command")

	// EssentialEnv lists the variables always passed through from the
	// caller's environment.
	EssentialEnv = []string{"PATH", "HOME", "USER", "TERM", "COLORTERM"}
)

// Result represents the result of a command execution.
type Result struct {
	Stdout string
	Stderr string
}

// EnvFromSource represents a source for inheriting environment variables.
type EnvFromSource struct {
	// CallerRef specifies how to inherit environment variables from the caller process.
	CallerRef *CallerRef `json:"callerRef,omitempty" jsonschema:"title=Caller Reference"`
}

// CallerRef represents a reference to environment variables from the caller process.
type CallerRef struct {
	pattern *lazyRegexp

	// Pattern is a regex pattern for matching environment variable names.
	Pattern string `json:"pattern,omitempty" jsonschema:"title=Pattern,format=regex"`
	// Name is the specific environment variable name to inherit.
	Name string `json:"name,omitempty" jsonschema:"title=Name"`
}

// Compile compiles the pattern, if one is set.
func (c *CallerRef) Compile() error {
	if c.Pattern == "" {
		return nil
	}

	_, err := c.regexp()

	return err
}

func (c *CallerRef) regexp() (*regexp.Regexp, error) {
	if c.pattern == nil || c.pattern.source != c.Pattern {
		c.pattern = &lazyRegexp{source: c.Pattern}
	}

	return c.pattern.get()
}

// EnvVar represents an environment variable definition.
type EnvVar struct {
	// ValueFrom specifies a source for the environment variable value.
	ValueFrom *EnvVarSource `json:"valueFrom,omitempty" jsonschema:"title=Value From"`
	// Name is the environment variable name.
	Name string `json:"name" jsonschema:"title=Name"`
	// Value is the environment variable value.
	Value string `json:"value,omitempty" jsonschema:"title=Value"`
}

// EnvVarSource represents a source for an environment variable value.
type EnvVarSource struct {
	// CallerRef specifies how to get the value from the caller process environment.
	CallerRef *CallerRef `json:"callerRef,omitempty" jsonschema:"title=Caller Reference"`
}

// Command describes an external command and the environment it runs with.
// Only [EssentialEnv] and the variables selected by Env and EnvFrom are
// visible to the command.
type Command struct {
	baseEnv map[string]string
	// Command is the command to execute.
	Command string `json:"command" jsonschema:"title=Command,pattern=^\\S+$"`
	// Args contains the command line arguments.
	Args []string `json:"args,omitempty" jsonschema:"title=Arguments" yaml:"args,flow,omitempty"`
	// Env contains environment variable definitions.
	Env []EnvVar `json:"env,omitempty" jsonschema:"title=Environment Variables"`
	// EnvFrom contains sources for inheriting environment variables.
	EnvFrom []EnvFromSource `json:"envFrom,omitempty" jsonschema:"title=Environment Variables From"`
}

// NewCommand creates a new [Command].
// It accepts a base environment, which usually will be from [os.Environ].
func NewCommand(baseEnv []string) Command {
	e := Command{
		Env:     []EnvVar{},
		EnvFrom: []EnvFromSource{},
	}
	e.SetBaseEnv(baseEnv)

	return e
}

// ParseCommand parses a shell-like command line, such as
// `kubectl get prometheusrules -A -o json`, into a [Command] using the
// current process environment as the base environment.
// Environment variable references in the line are not expanded.
func ParseCommand(line string) (Command, error) {
	words, err := shellwords.Parse(line)
	if err != nil {
		return Command{}, fmt.Errorf("parse command %q: %w", line, err)
	}
	if len(words) == 0 {
		return Command{}, ErrEmptyCommand
	}

	c := NewCommand(os.Environ())
	c.Command = words[0]
	c.Args = words[1:]

	return c, nil
}

func (e *Command) SetBaseEnv(baseEnv []string) {
	e.baseEnv = make(map[string]string, len(baseEnv))
	for _, envVar := range baseEnv {
		if key, value, ok := strings.Cut(envVar, "="); ok {
			e.baseEnv[key] = value
		}
	}
}

// AddEnvVar adds a single environment variable.
func (e *Command) AddEnvVar(envVar EnvVar) {
	e.Env = append(e.Env, envVar)
}

// AddEnvFrom adds environment variable sources.
func (e *Command) AddEnvFrom(envFrom []EnvFromSource) {
	e.EnvFrom = append(e.EnvFrom, envFrom...)
}

// GetEnv constructs environment variables for command execution.
// The result is sorted by variable name.
func (e *Command) GetEnv() []string {
	envMap := make(map[string]string)

	for key, value := range e.baseEnv {
		if slices.Contains(EssentialEnv, key) {
			envMap[key] = value
		}
	}

	e.applyEnvFrom(envMap)
	e.applyEnv(envMap)

	env := make([]string, 0, len(envMap))
	for key, value := range envMap {
		env = append(env, key+"="+value)
	}

	sort.Strings(env)

	return env
}

// CompilePatterns compiles all regex patterns.
func (e *Command) CompilePatterns() error {
	for i, envVar := range e.Env {
		if envVar.ValueFrom != nil && envVar.ValueFrom.CallerRef != nil {
			err := envVar.ValueFrom.CallerRef.Compile()
			if err != nil {
				return fmt.Errorf("env[%d]: %w", i, err)
			}
		}
	}

	for i, envFromSource := range e.EnvFrom {
		if envFromSource.CallerRef != nil {
			err := envFromSource.CallerRef.Compile()
			if err != nil {
				return fmt.Errorf("envFrom[%d]: %w", i, err)
			}
		}
	}

	return nil
}

func (e *Command) String() string {
	if len(e.Args) == 0 {
		return e.Command
	}

	return e.Command + " " + strings.Join(e.Args, " ")
}

// applyEnvFrom applies all envFrom sources to the environment map.
// Patterns that fail to compile are ignored; see [Command.CompilePatterns].
func (e *Command) applyEnvFrom(envMap map[string]string) {
	for _, envFromSource := range e.EnvFrom {
		ref := envFromSource.CallerRef
		if ref == nil {
			continue
		}

		if ref.Pattern != "" {
			pattern, err := ref.regexp()
			if err == nil {
				for key, value := range e.baseEnv {
					if pattern.MatchString(key) {
						envMap[key] = value
					}
				}
			}
		}

		if ref.Name != "" {
			if value, exists := e.baseEnv[ref.Name]; exists {
				envMap[ref.Name] = value
			}
		}
	}
}

// applyEnv applies environment variables from the env field.
func (e *Command) applyEnv(envMap map[string]string) {
	for _, envVar := range e.Env {
		if envVar.Name == "" {
			continue
		}

		if envVar.Value != "" {
			envMap[envVar.Name] = envVar.Value

			continue
		}

		if envVar.ValueFrom != nil && envVar.ValueFrom.CallerRef != nil && envVar.ValueFrom.CallerRef.Name != "" {
			if value, exists := e.baseEnv[envVar.ValueFrom.CallerRef.Name]; exists {
				envMap[envVar.Name] = value
			}
		}
	}
}

// lazyRegexp compiles its source at most once.
type lazyRegexp struct {
	err    error
	regex  *regexp.Regexp
	source string
	once   sync.Once
}

func (lr *lazyRegexp) get() (*regexp.Regexp, error) {
	lr.once.Do(func() {
		lr.regex, lr.err = regexp.Compile(lr.source)
		if lr.err != nil {
			lr.err = fmt.Errorf("compile pattern %q: %w", lr.source, lr.err)
		}
	})

	return lr.regex, lr.err
}
