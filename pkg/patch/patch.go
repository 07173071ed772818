package patch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/macropower/rulelabel/pkg/log"
	"github.com/macropower/rulelabel/pkg/promrule"
)

// Mode selects how matched rules are labeled.
type Mode string

const (
	// ModeUpdate sets the label on matched rules in the input document.
	ModeUpdate Mode = "update"
	// ModeClone copies matched rules into a new PrometheusRule resource,
	// renames them with a suffix, and sets the label on the copies.
	ModeClone Mode = "clone"

	// DefaultSuffix is appended to the alert name of cloned rules.
	DefaultSuffix = "-custom"
)

var (
	ErrEmptyLabel  = errors.New("label key must not be empty")
	ErrNoCriteria  = errors.New("no alert names or selector given")
	ErrUnknownMode = errors.New("unknown mode")

	AllModes = []string{
		string(ModeClone),
		string(ModeUpdate),
	}
)

// ParseMode returns the [Mode] named by s.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(s))
	if slices.Contains([]Mode{ModeClone, ModeUpdate}, m) {
		return m, nil
	}

	return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// Label is the label set on each matched rule.
type Label struct {
	Key   string
	Value string
}

func (l Label) String() string {
	return l.Key + "=" + l.Value
}

// Selector narrows the set of matched rules.
type Selector interface {
	Select(loc promrule.Location, rule promrule.Rule) bool
}

// SelectorFunc adapts a function to a [Selector].
type SelectorFunc func(loc promrule.Location, rule promrule.Rule) bool

func (f SelectorFunc) Select(loc promrule.Location, rule promrule.Rule) bool {
	return f(loc, rule)
}

// Match describes a rule that was labeled.
type Match struct {
	// Alert is the alert name in the input document.
	Alert string
	// Output is the alert name in the output document.
	Output   string
	Location promrule.Location
}

// Result is the outcome of [Patcher.Patch].
type Result struct {
	// Output is the document to write: the input document in
	// [ModeUpdate], or a new PrometheusRule resource in [ModeClone].
	Output promrule.Object
	// Matches lists the labeled rules in traversal order.
	Matches []Match
	Mode    Mode
	// Skipped counts rules without an alert name or labels.
	Skipped int
	// SkippedBranches counts items and groups that did not have the
	// expected shape.
	SkippedBranches int
}

// Patcher sets a label on rules whose alert name is in a set of names.
type Patcher struct {
	tracer   trace.Tracer
	selector Selector
	names    AlertNames
	envelope promrule.EnvelopeConfig
	label    Label
	mode     Mode
	suffix   string
}

// Opt configures a [Patcher].
type Opt func(*Patcher)

// WithMode sets the patch mode. The default is [ModeClone].
func WithMode(m Mode) Opt {
	return func(p *Patcher) {
		p.mode = m
	}
}

// WithSuffix sets the alert name suffix used in [ModeClone].
func WithSuffix(suffix string) Opt {
	return func(p *Patcher) {
		p.suffix = suffix
	}
}

// WithSelector adds a [Selector] that must also accept a rule for it to
// match. If no alert names are given, the selector alone decides.
func WithSelector(s Selector) Opt {
	return func(p *Patcher) {
		p.selector = s
	}
}

// WithEnvelope configures the resource created in [ModeClone].
func WithEnvelope(ec promrule.EnvelopeConfig) Opt {
	return func(p *Patcher) {
		p.envelope = ec
	}
}

// New creates a new [Patcher]. A nil names set means "no name filter", in
// which case a selector is required. An empty, non-nil set matches nothing.
func New(label Label, names AlertNames, opts ...Opt) (*Patcher, error) {
	p := &Patcher{
		tracer: otel.Tracer("patcher"),
		label:  label,
		names:  names,
		mode:   ModeClone,
		suffix: DefaultSuffix,
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.label.Key == "" {
		return nil, ErrEmptyLabel
	}
	if _, err := ParseMode(string(p.mode)); err != nil {
		return nil, err
	}
	if p.names == nil && p.selector == nil {
		return nil, ErrNoCriteria
	}

	return p, nil
}

// Mode returns the patch mode.
func (p *Patcher) Mode() Mode {
	return p.mode
}

// Patch labels the matching rules of doc.
//
// In [ModeUpdate], doc is modified and returned as the output.
// In [ModeClone], doc is not modified.
func (p *Patcher) Patch(ctx context.Context, doc promrule.Document) *Result {
	_, span := p.tracer.Start(ctx, "patch", trace.WithAttributes(
		attribute.String("mode", string(p.mode)),
		attribute.String("label", p.label.String()),
	))
	defer span.End()

	logger := log.WithContext(ctx).With(
		slog.String("mode", string(p.mode)),
		slog.String("label", p.label.String()),
	)

	res := &Result{Mode: p.mode}

	var env *promrule.Envelope
	if p.mode == ModeClone {
		env = promrule.NewEnvelope(p.envelope)
	}

	promrule.Walk(doc, promrule.VisitorFuncs{
		Rule: func(loc promrule.Location, rule promrule.Rule) {
			alert, ok := rule.Alert()
			if !ok {
				res.Skipped++

				return
			}

			if _, ok := rule.Labels(); !ok {
				res.Skipped++

				if p.names.Has(alert) {
					logger.DebugContext(ctx, "skip rule without labels",
						slog.String("alert", alert),
						slog.String("resource", loc.Resource),
						slog.String("group", loc.Group),
					)
				}

				return
			}

			if !p.matches(loc, alert, rule) {
				return
			}

			m := Match{Alert: alert, Output: alert, Location: loc}

			switch p.mode {
			case ModeUpdate:
				rule.SetLabel(p.label.Key, p.label.Value)

			case ModeClone:
				m.Output = alert + p.suffix

				custom := rule.Clone()
				custom.SetAlert(m.Output)
				custom.SetLabel(p.label.Key, p.label.Value)
				env.Add(custom)
			}

			logger.DebugContext(ctx, "labeled rule",
				slog.String("alert", m.Output),
				slog.String("resource", loc.Resource),
				slog.String("group", loc.Group),
			)

			res.Matches = append(res.Matches, m)
		},
		Skip: func(loc promrule.Location, reason promrule.SkipReason) {
			res.SkippedBranches++

			logger.DebugContext(ctx, "skip malformed branch",
				slog.String("reason", string(reason)),
				slog.Int("item", loc.Item),
				slog.Int("group", loc.GroupIdx),
			)
		},
	})

	switch p.mode {
	case ModeUpdate:
		res.Output = promrule.Object(doc)
	case ModeClone:
		res.Output = env.Object()
	}

	span.SetAttributes(
		attribute.Int("matches", len(res.Matches)),
		attribute.Int("skipped", res.Skipped),
	)

	return res
}

func (p *Patcher) matches(loc promrule.Location, alert string, rule promrule.Rule) bool {
	if p.names != nil && !p.names.Has(alert) {
		return false
	}
	if p.selector != nil && !p.selector.Select(loc, rule) {
		return false
	}

	return true
}
