package execs

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/macropower/rulelabel/pkg/log"
)

// Executor runs a [Command] with optional extra arguments appended.
type Executor struct {
	tracer    trace.Tracer
	cmd       Command
	extraArgs []string
}

func NewExecutor(cmd Command, args ...string) Executor {
	return Executor{
		tracer:    otel.Tracer("executor"),
		cmd:       cmd,
		extraArgs: args,
	}
}

func (e Executor) Exec(ctx context.Context, dir string) (*Result, error) {
	return e.ExecWithStdin(ctx, dir, nil)
}

// ExecWithStdin runs the command in dir and waits for it to exit.
// If the command fails after writing output, the partial [Result] is
// returned along with an error wrapping [ErrCommandExecution].
func (e Executor) ExecWithStdin(ctx context.Context, dir string, stdin []byte) (*Result, error) {
	ctx, span := e.tracer.Start(ctx, "exec", trace.WithAttributes(
		attribute.String("command", e.String()),
		attribute.String("path", dir),
	))
	defer span.End()

	if e.cmd.Command == "" {
		span.SetStatus(codes.Error, ErrEmptyCommand.Error())

		return nil, ErrEmptyCommand
	}

	logger := log.WithContext(ctx).With(
		slog.String("command", e.String()),
	)

	start := time.Now()

	//nolint:gosec // G204: Subprocess launched with a potential tainted input or cmd arguments.
	cmd := exec.CommandContext(ctx, e.cmd.Command, e.Args()...)
	cmd.Dir = dir
	cmd.Env = e.cmd.GetEnv()
	cmd.Stdin = bytes.NewReader(stdin)

	var stdout, stderr bytes.Buffer

	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logger.DebugContext(ctx, "run command")

	err := cmd.Run()
	result := &Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "command failed")

		logger.DebugContext(ctx, "command failed",
			slog.Duration("duration", time.Since(start)),
			slog.Any("error", err),
		)

		if stdout.Len() > 0 || stderr.Len() > 0 {
			return result, fmt.Errorf("%w: %w", ErrCommandExecution, err)
		}

		return nil, fmt.Errorf("%w: %w", ErrCommandExecution, err)
	}

	logger.DebugContext(ctx, "command executed successfully",
		slog.Duration("duration", time.Since(start)),
	)

	return result, nil
}

// Args returns the command arguments followed by the extra arguments.
func (e Executor) Args() []string {
	allArgs := append([]string{}, e.cmd.Args...)

	return append(allArgs, e.extraArgs...)
}

func (e Executor) String() string {
	return strings.TrimSpace(fmt.Sprintf("%s %s", e.cmd.Command, strings.Join(e.Args(), " ")))
}
