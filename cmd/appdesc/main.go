package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/artpar/appdesc/internal/core/app"
)

// Version information (set by build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

// Exit codes
const (
	ExitSuccess     = 0
	ExitError       = 1
	ExitConfigError = 2
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newRootCmd()
	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitCode(err)
	}
	return ExitSuccess
}

// exitCode maps descriptor and build-context problems to ExitConfigError.
func exitCode(err error) int {
	var cfgErr *app.ConfigurationError
	var valErr *app.ValidationError
	var toolErr *configError
	if errors.As(err, &cfgErr) || errors.As(err, &valErr) || errors.As(err, &toolErr) {
		return ExitConfigError
	}
	return ExitError
}

// configError marks a failure to load the tool configuration.
type configError struct {
	err error
}

func (e *configError) Error() string { return "configuration error: " + e.err.Error() }
func (e *configError) Unwrap() error { return e.err }
