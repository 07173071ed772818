package selector

import (
	"errors"
	"fmt"

	"github.com/google/cel-go/cel"

	"github.com/macropower/rulelabel/pkg/expr"
	"github.com/macropower/rulelabel/pkg/promrule"
)

// ErrEmptyExpression is returned by [New] for an empty expression.
var ErrEmptyExpression = errors.New("empty expression")

// Selector uses a CEL expression to decide whether a rule should be
// labeled.
//
// CEL expressions have access to variables:
//   - `alert` (string): The alert name
//   - `labels` (map<string, dyn>): The rule's labels
//   - `group` (string): The rule group name
//   - `namespace`, `name` (string): The PrometheusRule resource
//   - `rule` (map<string, dyn>): All fields of the rule
//
// Examples:
//   - labels.severity == "critical"
//   - alert.startsWith("Kube") && namespace == "openshift-monitoring"
//   - !("team" in labels)
//   - rule.expr.contains("node_")
//
// Expressions must return a boolean. Evaluation errors, e.g. a reference
// to a missing map key, and non-boolean results are treated as a
// non-match.
type Selector struct {
	program cel.Program

	// Match is the CEL expression.
	Match string
}

// New compiles expression into a [Selector].
func New(expression string) (*Selector, error) {
	if expression == "" {
		return nil, ErrEmptyExpression
	}

	env, err := expr.NewRuleEnvironment()
	if err != nil {
		return nil, err //nolint:wrapcheck // Already wrapped.
	}

	program, err := env.Compile(expression)
	if err != nil {
		return nil, fmt.Errorf("selector %q: %w", expression, err)
	}

	return &Selector{program: program, Match: expression}, nil
}

// MustNew is like [New], but panics on error.
func MustNew(expression string) *Selector {
	s, err := New(expression)
	if err != nil {
		panic(err)
	}

	return s
}

// Select evaluates the expression against rule.
func (s *Selector) Select(loc promrule.Location, rule promrule.Rule) bool {
	alert, _ := rule.Alert()

	labels, ok := rule.Labels()
	if !ok {
		labels = map[string]any{}
	}

	result, _, err := s.program.Eval(map[string]any{
		expr.VarAlert:     alert,
		expr.VarLabels:    labels,
		expr.VarGroup:     loc.Group,
		expr.VarNamespace: loc.Namespace,
		expr.VarName:      loc.Name,
		expr.VarRule:      rule.Fields(),
	})
	if err != nil {
		return false
	}

	if b, ok := result.Value().(bool); ok {
		return b
	}

	return false
}

func (s *Selector) String() string {
	return s.Match
}
