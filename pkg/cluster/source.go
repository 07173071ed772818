package cluster

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/macropower/rulelabel/pkg/execs"
	"github.com/macropower/rulelabel/pkg/log"
	"github.com/macropower/rulelabel/pkg/promrule"
)

var (
	// ErrNotFound is returned when the rules file does not exist.
	ErrNotFound = errors.New("file not found")

	// ErrFetch is returned when the fetch command fails.
	ErrFetch = errors.New("fetch rules")
)

// Source supplies the rule document to patch.
type Source interface {
	Fetch(ctx context.Context) (promrule.Document, error)
}

// FileSource reads a rule document from a JSON file.
type FileSource struct {
	Path string
}

// Fetch reads and decodes the file. It returns an error wrapping
// [ErrNotFound] if the file does not exist, or [promrule.ErrInvalidJSON]
// if it cannot be decoded.
func (s FileSource) Fetch(ctx context.Context) (promrule.Document, error) {
	_, span := otel.Tracer("source").Start(ctx, "fetch", trace.WithAttributes(
		attribute.String("path", s.Path),
	))
	defer span.End()

	f, err := os.Open(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("rules %q: %w", s.Path, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("open rules: %w", err)
	}
	defer f.Close() //nolint:errcheck // Read only.

	doc, err := promrule.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("rules %q: %w", s.Path, err)
	}

	logDocument(ctx, doc, slog.String("path", s.Path))

	return doc, nil
}

// CommandSource runs a command that prints a rule document as JSON.
type CommandSource struct {
	ex  execs.Executor
	dir string
}

// NewCommandSource creates a [CommandSource] running cmd in dir.
func NewCommandSource(cmd execs.Command, dir string) *CommandSource {
	return &CommandSource{
		ex:  execs.NewExecutor(cmd),
		dir: dir,
	}
}

// Fetch runs the command and decodes its standard output.
func (s *CommandSource) Fetch(ctx context.Context) (promrule.Document, error) {
	log.WithContext(ctx).InfoContext(ctx, "fetch rules", slog.String("command", s.ex.String()))

	res, err := s.ex.Exec(ctx, s.dir)
	if err != nil {
		if res != nil && res.Stderr != "" {
			return nil, fmt.Errorf("%w: %w: %s", ErrFetch, err, strings.TrimSpace(res.Stderr))
		}

		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}

	doc, err := promrule.DecodeBytes([]byte(res.Stdout))
	if err != nil {
		return nil, fmt.Errorf("%w: output of %q: %w", ErrFetch, s.ex.String(), err)
	}

	logDocument(ctx, doc, slog.String("command", s.ex.String()))

	return doc, nil
}

// String returns the command line.
func (s *CommandSource) String() string {
	return s.ex.String()
}

func logDocument(ctx context.Context, doc promrule.Document, attrs ...any) {
	obj := promrule.Object(doc)

	log.WithContext(ctx).DebugContext(ctx, "read rules", append(attrs,
		slog.String("apiVersion", obj.GetAPIVersion()),
		slog.String("kind", obj.GetKind()),
	)...)
}
