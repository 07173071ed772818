package expr

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/ext"
)

// Variable names declared by [NewRuleEnvironment].
const (
	VarAlert     = "alert"
	VarLabels    = "labels"
	VarGroup     = "group"
	VarNamespace = "namespace"
	VarName      = "name"
	VarRule      = "rule"
)

// Protect CEL environment creation and compilation from concurrent access.
var celMutex sync.Mutex

// Environment provides a thread-safe wrapper around a [*cel.Env].
type Environment struct {
	env *cel.Env
}

// NewEnvironment creates a new [Environment].
func NewEnvironment(opts ...cel.EnvOption) (*Environment, error) {
	celMutex.Lock()
	defer celMutex.Unlock()

	opts = append(opts, cel.Lib(&lib{}))

	env, err := cel.NewEnv(opts...)
	if err != nil {
		return nil, fmt.Errorf("create CEL environment: %w", err)
	}

	return &Environment{env: env}, nil
}

// NewRuleEnvironment creates an [Environment] with the variables that
// describe a single alerting rule.
func NewRuleEnvironment() (*Environment, error) {
	return NewEnvironment(
		cel.Variable(VarAlert, cel.StringType),
		cel.Variable(VarLabels, cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable(VarGroup, cel.StringType),
		cel.Variable(VarNamespace, cel.StringType),
		cel.Variable(VarName, cel.StringType),
		cel.Variable(VarRule, cel.MapType(cel.StringType, cel.DynType)),
	)
}

// Compile compiles a CEL expression and returns a program.
// The expression must evaluate to a bool.
//
//nolint:ireturn // Following CEL's function signature.
func (e *Environment) Compile(expression string) (cel.Program, error) {
	celMutex.Lock()
	defer celMutex.Unlock()

	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile expression: %w", issues.Err())
	}

	if !ast.OutputType().IsExactType(cel.BoolType) && !ast.OutputType().IsExactType(cel.DynType) {
		return nil, fmt.Errorf("compile expression: must return bool, got %s", ast.OutputType())
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("create program: %w", err)
	}

	return program, nil
}

type lib struct{}

func (lib) CompileOptions() []cel.EnvOption {
	return []cel.EnvOption{
		ext.Strings(),
		ext.Lists(),
	}
}

func (lib) ProgramOptions() []cel.ProgramOption {
	return []cel.ProgramOption{}
}
