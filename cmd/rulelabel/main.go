package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/fang"

	"github.com/macropower/rulelabel/internal/cli"
	"github.com/macropower/rulelabel/pkg/version"
)

func main() {
	ctx := context.Background()

	shutdown, err := cli.SetupTracing(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "setup tracing: %v\n", err)
		os.Exit(1)
	}

	err = fang.Execute(ctx, cli.NewRootCmd(),
		fang.WithVersion(version.GetVersion()),
		fang.WithCommit(version.Revision),
		fang.WithErrorHandler(cli.ErrorHandler),
		fang.WithNotifySignal(os.Interrupt),
	)

	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if shutdownErr := shutdown(flushCtx); shutdownErr != nil {
		fmt.Fprintf(os.Stderr, "%v\n", shutdownErr)
	}

	cancel()

	if err != nil {
		os.Exit(1)
	}
}
