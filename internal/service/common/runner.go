//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/oshokin/lumen-provision/internal/logger"
)

// Command is one external process invocation.
type Command struct {
	// Name is the executable, looked up in PATH.
	Name string
	// Args are passed after Name.
	Args []string
	// Dir is the working directory; empty means the current one.
	Dir string
	// Stdin feeds the process, e.g. answers to interactive prompts.
	Stdin io.Reader
}

// String renders the command line for logs.
func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Runner executes external tools and checks their presence.
type Runner interface {
	// Run blocks until the command exits and fails on a non-zero status.
	Run(ctx context.Context, cmd Command) error
	// LookPath reports where an executable lives.
	LookPath(name string) (string, error)
}

// ExecRunner runs commands with os/exec and streams their output.
type ExecRunner struct {
	stdout io.Writer
	stderr io.Writer
}

// NewExecRunner creates a runner attached to the process stdout and stderr.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
}

// Run implements Runner. No timeout is applied besides ctx.
func (r *ExecRunner) Run(ctx context.Context, cmd Command) error {
	logger.DebugKV(ctx, "Running command", "command", cmd.String(), "dir", cmd.Dir)

	//nolint:gosec // Commands are built from fixed tool names and paths owned by the run.
	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	c.Stdin = cmd.Stdin
	c.Stdout = r.stdout
	c.Stderr = r.stderr

	if err := c.Run(); err != nil {
		return fmt.Errorf("%s: %w", cmd.String(), err)
	}

	return nil
}

// LookPath implements Runner.
func (r *ExecRunner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

// HasTool reports whether name is available to runner.
func HasTool(runner Runner, name string) bool {
	_, err := runner.LookPath(name)
	return err == nil
}
