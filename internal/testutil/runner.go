// Package testutil provides fakes shared by service tests.
package testutil

import (
	"context"
	"fmt"
	"os/exec"
	"sync"

	"github.com/oshokin/lumen-provision/internal/service/common"
)

// Runner records commands instead of executing them.
type Runner struct {
	mu sync.Mutex

	// Tools lists executables LookPath reports as present.
	Tools map[string]bool
	// Failures makes Run fail for the given executable name.
	Failures map[string]error
	// Hooks run instead of the command, e.g. to create converted packages.
	Hooks map[string]func(cmd common.Command) error

	calls []common.Command
}

// NewRunner creates a runner that reports tools as present.
func NewRunner(tools ...string) *Runner {
	r := &Runner{
		Tools:    make(map[string]bool, len(tools)),
		Failures: make(map[string]error),
		Hooks:    make(map[string]func(cmd common.Command) error),
	}

	for _, tool := range tools {
		r.Tools[tool] = true
	}

	return r
}

// Run implements common.Runner.
func (r *Runner) Run(_ context.Context, cmd common.Command) error {
	r.mu.Lock()
	r.calls = append(r.calls, cmd)
	hook := r.Hooks[cmd.Name]
	failure := r.Failures[cmd.Name]
	r.mu.Unlock()

	if failure != nil {
		return fmt.Errorf("%s: %w", cmd.String(), failure)
	}

	if hook != nil {
		return hook(cmd)
	}

	return nil
}

// LookPath implements common.Runner.
func (r *Runner) LookPath(name string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.Tools[name] {
		return "/usr/bin/" + name, nil
	}

	return "", fmt.Errorf("%s: %w", name, exec.ErrNotFound)
}

// Calls returns every recorded command.
func (r *Runner) Calls() []common.Command {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]common.Command(nil), r.calls...)
}

// Names returns the executable of every recorded command, in order.
func (r *Runner) Names() []string {
	calls := r.Calls()
	names := make([]string, 0, len(calls))

	for _, call := range calls {
		names = append(names, call.Name)
	}

	return names
}

// Called reports whether name was run at least once.
func (r *Runner) Called(name string) bool {
	for _, call := range r.Calls() {
		if call.Name == name {
			return true
		}
	}

	return false
}
