package main

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"

	"twcollector/pkg/ui"
)

// Process exit codes
const (
	exitOK      = 0
	exitFailure = 1
	exitPartial = 2
)

// exitError carries a non-default exit code out of a command
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// execute runs the CLI with args and maps the outcome to an exit code:
// 0 when every account succeeded, 2 when the run completed with failed
// accounts, 1 on setup, configuration or I/O errors.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	rootCmd := newRootCmd()
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return exitOK
	}

	var exitErr *exitError
	if errors.As(err, &exitErr) {
		ui.PrintWarning(exitErr.Error())
		return exitErr.code
	}

	ui.PrintError("Error", err)
	return exitFailure
}
