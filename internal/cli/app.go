// Package cli implements the minimize command-line interface.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/afero"
)

// Version is reported by --version; release builds override it with -ldflags.
var Version = "dev"

// App is the minimize CLI application.
type App struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	fs     afero.Fs
}

// NewApp creates a CLI application reading answers from stdin and writing to stdout/stderr.
func NewApp(stdin io.Reader, stdout, stderr io.Writer) *App {
	return &App{
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
		fs:     afero.NewOsFs(),
	}
}

// Run parses arguments and runs the pipeline in workDir.
// Returns the exit code (0 for success, 1 for error).
func (a *App) Run(args []string, workDir string) int {
	return a.RunContext(context.Background(), args, workDir)
}

// RunContext is Run with a context that cancels an in-flight batch.
func (a *App) RunContext(ctx context.Context, args []string, workDir string) int {
	cmd := a.newRootCmd(workDir)
	if len(args) > 0 {
		args = args[1:] // skip program name
	}
	cmd.SetArgs(expandMultiValue(args))
	cmd.SetIn(a.stdin)
	cmd.SetOut(a.stdout)
	cmd.SetErr(a.stderr)

	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(a.stderr, "Error: %s\n", err)
		return 1
	}
	return 0
}

// WorkDir returns the process working directory, or "." if it cannot be determined.
func WorkDir() string {
	if wd, err := os.Getwd(); err == nil {
		return wd
	}
	return "."
}
