//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"os"

	"github.com/mitchellh/go-ps"

	"github.com/oshokin/lumen-provision/internal/logger"
)

// commLength is the length Linux truncates process names to in /proc/<pid>/stat.
const commLength = 15

// ProcessGuard looks for running instances of the application before its
// files are replaced.
type ProcessGuard struct {
	// name is the executable name to match.
	name string
	// stop kills matching processes instead of only warning about them.
	stop bool
	// list enumerates processes.
	list func() ([]ps.Process, error)
}

// NewProcessGuard creates a guard for the executable name.
func NewProcessGuard(name string, stop bool) *ProcessGuard {
	return &ProcessGuard{
		name: name,
		stop: stop,
		list: ps.Processes,
	}
}

// Check warns about, or kills, running instances and returns their PIDs.
// It never fails: a replaced file under a live process is a degraded state,
// not a reason to abort.
func (g *ProcessGuard) Check(ctx context.Context) []int {
	if g.name == "" {
		return nil
	}

	processList, err := g.list()
	if err != nil {
		logger.WarnKV(ctx, "Unable to list processes", "error", err)
		return nil
	}

	var (
		self  = os.Getpid()
		want  = truncateComm(g.name)
		found []int
	)

	for _, process := range processList {
		if process.Pid() == self || truncateComm(process.Executable()) != want {
			continue
		}

		found = append(found, process.Pid())

		if !g.stop {
			logger.WarnKV(ctx, "Application is running, restart it after provisioning",
				"pid", process.Pid(), "executable", process.Executable())

			continue
		}

		g.kill(ctx, process.Pid())
	}

	return found
}

func (g *ProcessGuard) kill(ctx context.Context, pid int) {
	runningProcess, err := os.FindProcess(pid)
	if err == nil {
		err = runningProcess.Kill()
	}

	if err != nil {
		logger.WarnKV(ctx, "Unable to stop running application", "pid", pid, "error", err)
		return
	}

	logger.InfoKV(ctx, "Stopped running application", "pid", pid)
}

func truncateComm(name string) string {
	if len(name) > commLength {
		return name[:commLength]
	}

	return name
}
