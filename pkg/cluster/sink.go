package cluster

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/macropower/rulelabel/pkg/execs"
	"github.com/macropower/rulelabel/pkg/log"
	"github.com/macropower/rulelabel/pkg/promrule"
)

// WriteFile writes v to path as indented JSON. The file is written to a
// temporary file in the same directory first and then renamed, so path is
// never left half-written.
func WriteFile(ctx context.Context, path string, v any) error {
	b, err := promrule.Marshal(v)
	if err != nil {
		return err //nolint:wrapcheck // Already wrapped.
	}

	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // No-op after a successful rename.

	_, err = tmp.Write(b)
	if err != nil {
		_ = tmp.Close()

		return fmt.Errorf("write %s: %w", path, err)
	}

	err = tmp.Close()
	if err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}

	err = os.Chmod(tmpName, 0o644) //nolint:gosec // G302: Output is not secret.
	if err != nil {
		return fmt.Errorf("chmod %s: %w", path, err)
	}

	err = os.Rename(tmpName, path)
	if err != nil {
		return fmt.Errorf("rename %s: %w", path, err)
	}

	log.WithContext(ctx).InfoContext(ctx, "wrote rules",
		slog.String("path", path),
		slog.String("size", humanize.Bytes(uint64(len(b)))),
	)

	return nil
}

// Applier applies a written rules file to a cluster.
type Applier interface {
	Apply(ctx context.Context, path string) error
}

// NopApplier does nothing.
type NopApplier struct{}

func (NopApplier) Apply(context.Context, string) error {
	return nil
}

// CommandApplier runs a command with the file path appended to its
// arguments, e.g. `oc apply -f <path>`.
type CommandApplier struct {
	cmd execs.Command
	dir string
}

// NewCommandApplier creates a [CommandApplier] running cmd in dir.
func NewCommandApplier(cmd execs.Command, dir string) *CommandApplier {
	return &CommandApplier{cmd: cmd, dir: dir}
}

// Apply runs the command and waits for it to exit. Command output is
// logged.
func (a *CommandApplier) Apply(ctx context.Context, path string) error {
	ex := execs.NewExecutor(a.cmd, path)
	logger := log.WithContext(ctx).With(slog.String("command", ex.String()))

	logger.InfoContext(ctx, "apply rules")

	res, err := ex.Exec(ctx, a.dir)
	if res != nil {
		if out := strings.TrimSpace(res.Stdout); out != "" {
			logger.InfoContext(ctx, out)
		}
		if out := strings.TrimSpace(res.Stderr); out != "" {
			logger.WarnContext(ctx, out)
		}
	}
	if err != nil {
		return fmt.Errorf("apply %s: %w", path, err)
	}

	return nil
}
