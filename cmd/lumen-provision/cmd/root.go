package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/lumen-provision/internal/logger"
	"github.com/oshokin/lumen-provision/internal/service/common"
	"github.com/oshokin/lumen-provision/internal/service/provision"
	"github.com/oshokin/lumen-provision/internal/service/updater"
	"github.com/oshokin/lumen-provision/internal/version"
)

var errUnknownLogLevel = errors.New("unknown log level")

var (
	// configPath to the optional YAML overlay.
	configPath string
	// logLevel is one of debug, info, warn or error.
	logLevel string
	// updateOnly installs only when a newer release is published.
	updateOnly bool
	// stopRunning kills running application instances before installing.
	stopRunning bool
	// noSudo disables re-executing through sudo.
	noSudo bool

	// rootCmd installs or updates the application.
	rootCmd = &cobra.Command{
		Use:          version.Name,
		Short:        "Install or update the Lumen beta on any Linux distribution",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			level, ok := logger.ParseLogLevel(logLevel)
			if !ok {
				return fmt.Errorf("%w: %s", errUnknownLogLevel, logLevel)
			}

			logger.SetLevel(level)

			return nil
		},
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			defer logger.Sync()

			if !noSudo {
				if err := common.Elevate(ctx); err != nil {
					logger.ErrorKV(ctx, "Unable to obtain root privileges", "error", err)
					return err
				}
			}

			if updateOnly {
				return updater.Run(ctx, &updater.Options{
					ConfigPath:  configPath,
					StopRunning: stopRunning,
				})
			}

			return provision.Run(ctx, &provision.Options{
				ConfigPath:  configPath,
				StopRunning: stopRunning,
			})
		},
	}
)

// Execute runs the lumen-provision CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	flags := rootCmd.Flags()
	flags.BoolVar(&updateOnly, "update", false, "install only when a newer release is published")
	flags.BoolVar(&stopRunning, "stop-running", false, "kill running application instances before installing")
	flags.BoolVar(&noSudo, "no-sudo", false, "do not re-execute through sudo when not running as root")

	persistent := rootCmd.PersistentFlags()
	persistent.StringVarP(&configPath, "config", "c", "", "path to an optional configuration file")
	persistent.StringVarP(&logLevel, "log-level", "l", "info", "log level: debug, info, warn or error")
}
