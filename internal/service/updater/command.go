package updater

import (
	"context"

	"github.com/oshokin/lumen-provision/internal/logger"
	"github.com/oshokin/lumen-provision/internal/service/provision"
)

// Options are inputs accepted by the updater entry point.
type Options struct {
	// ConfigPath is the optional YAML overlay for the built-in settings.
	ConfigPath string
	// StopRunning kills running application instances before updating.
	StopRunning bool
}

// Result is the outcome of an update check.
type Result int

const (
	// ResultAlreadyCurrent means the installed release is the latest one.
	ResultAlreadyCurrent Result = iota
	// ResultUpdated means the latest release was installed.
	ResultUpdated
	// ResultInstalledNewer means the marker records a release newer than any published one.
	ResultInstalledNewer
	// ResultFailed means the upgrade was attempted and did not complete.
	ResultFailed
)

// String implements fmt.Stringer.
func (r Result) String() string {
	switch r {
	case ResultAlreadyCurrent:
		return "already current"
	case ResultUpdated:
		return "updated"
	case ResultInstalledNewer:
		return "installed newer"
	case ResultFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Run executes the update check and is the public entry point for the CLI.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "lumen-updater")

	pipeline, err := provision.Open(&provision.Options{
		ConfigPath:  opts.ConfigPath,
		StopRunning: opts.StopRunning,
	})
	if err != nil {
		logger.ErrorKV(ctx, "Unable to load settings", "error", err)
		return err
	}

	result, err := Check(ctx, pipeline)
	if err != nil {
		logger.ErrorKV(ctx, "Update failed", "error", err)
		return err
	}

	logger.InfoKV(ctx, "Updater completed", "result", result.String())

	return nil
}

// Check compares the installed release with the latest published one and
// upgrades when the latest is newer or nothing is installed.
func Check(ctx context.Context, p *provision.Pipeline) (Result, error) {
	s := p.Prepare(ctx)
	latest := s.Release.Version
	installed := p.InstalledVersion(ctx)

	switch cmp := latest.Compare(installed); {
	case installed.IsZero():
		logger.InfoKV(ctx, "No installed version recorded, updating", "latest", latest.String())
	case cmp == 0:
		logger.InfoKV(ctx, "Already up to date", "version", installed.String())
		return ResultAlreadyCurrent, nil
	case cmp < 0:
		logger.WarnKV(ctx, "Installed version is newer than the latest published one",
			"installed", installed.String(), "latest", latest.String())

		return ResultInstalledNewer, nil
	default:
		logger.InfoKV(ctx, "Newer version available",
			"installed", installed.String(), "latest", latest.String())
	}

	if err := p.Upgrade(ctx, s); err != nil {
		return ResultFailed, err
	}

	return ResultUpdated, nil
}
