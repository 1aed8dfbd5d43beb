package provision

import (
	"context"

	"github.com/oshokin/lumen-provision/internal/config"
	"github.com/oshokin/lumen-provision/internal/logger"
	"github.com/oshokin/lumen-provision/internal/service/common"
)

// Options are inputs accepted by the provisioning entry point.
type Options struct {
	// ConfigPath is the optional YAML overlay for the built-in settings.
	ConfigPath string
	// StopRunning kills running application instances before installing.
	StopRunning bool
}

// Run performs a full install and is the public entry point for the CLI.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "lumen-provision")

	pipeline, err := Open(opts)
	if err != nil {
		logger.ErrorKV(ctx, "Unable to load settings", "error", err)
		return err
	}

	if err = pipeline.Install(ctx, pipeline.Prepare(ctx)); err != nil {
		logger.ErrorKV(ctx, "Provisioning failed", "error", err)
		return err
	}

	logger.Info(ctx, "Provisioning completed")

	return nil
}

// Open loads the settings named by opts and builds a Pipeline on the real host.
func Open(opts *Options) (*Pipeline, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	return New(cfg, Dependencies{
		Guard: common.NewProcessGuard(cfg.AppBinary, opts.StopRunning),
	})
}
