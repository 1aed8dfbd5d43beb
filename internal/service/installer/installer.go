package installer

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/oshokin/lumen-provision/internal/config"
	"github.com/oshokin/lumen-provision/internal/domain/distro"
	"github.com/oshokin/lumen-provision/internal/logger"
	"github.com/oshokin/lumen-provision/internal/service/common"
)

// Strategy names the way a package ended up on the host.
type Strategy string

const (
	// StrategyNative is a direct apt install.
	StrategyNative Strategy = "native"
	// StrategyConverted is an install of a package produced by alien or debtap.
	StrategyConverted Strategy = "converted"
	// StrategyExtracted is a manual unpack of the payload.
	StrategyExtracted Strategy = "extracted"
)

// debtapAnswers feeds the interactive prompts debtap may still show with -Q.
const debtapAnswers = 32

var (
	// ErrNativeInstall is returned when apt rejects the package.
	ErrNativeInstall = errors.New("native package installation failed")

	errNoConvertedPackage = errors.New("conversion produced no package")
	errUnsupportedFamily  = errors.New("unsupported distribution family")
)

// Installer dispatches on the distribution family.
type Installer struct {
	runner     common.Runner
	extractor  *Extractor
	scratchDir string
}

// New creates an Installer.
func New(cfg *config.Config, runner common.Runner) *Installer {
	return &Installer{
		runner:     runner,
		extractor:  NewExtractor(cfg),
		scratchDir: cfg.ScratchDir,
	}
}

// Install installs the package at pkgPath and reports the strategy that
// succeeded. Conversion failures degrade to manual extraction; a failed apt
// install or a failed extraction is returned.
func (i *Installer) Install(ctx context.Context, s common.Session, pkgPath string) (Strategy, error) {
	ctx = logger.WithName(ctx, "installer")

	absPath, err := filepath.Abs(pkgPath)
	if err != nil {
		return "", fmt.Errorf("resolve package path: %w", err)
	}

	logger.InfoKV(ctx, "Installing package",
		"release", s.Release.Version.String(),
		"family", s.Distro.Family.Name(),
		"package", absPath)

	switch family := s.Distro.Family.(type) {
	case distro.Debian:
		return i.installNative(ctx, absPath)
	case distro.RPM:
		return i.installConverted(ctx, absPath, common.Command{
			Name: family.ConversionTool(),
			Args: []string{"--to-rpm", "--scripts", absPath},
			Dir:  i.scratchDir,
		}, "*.rpm", func(converted string) common.Command {
			return common.Command{Name: "rpm", Args: []string{"-Uvh", "--nodeps", "--force", converted}}
		})
	case distro.Arch:
		return i.installConverted(ctx, absPath, common.Command{
			Name:  family.ConversionTool(),
			Args:  []string{"-Q", absPath},
			Dir:   i.scratchDir,
			Stdin: strings.NewReader(strings.Repeat("y\n", debtapAnswers)),
		}, "*.pkg.tar*", func(converted string) common.Command {
			return common.Command{Name: "pacman", Args: []string{"-U", "--noconfirm", converted}}
		})
	case distro.Unknown:
		logger.InfoKV(ctx, "Unknown distribution, extracting manually", "id", s.Distro.ID)
		return i.extract(ctx, absPath)
	default:
		return "", fmt.Errorf("%T: %w", family, errUnsupportedFamily)
	}
}

func (i *Installer) installNative(ctx context.Context, pkgPath string) (Strategy, error) {
	cmd := common.Command{Name: "apt-get", Args: []string{"install", "-y", pkgPath}}

	if err := i.runner.Run(ctx, cmd); err != nil {
		return "", fmt.Errorf("%w: %w", ErrNativeInstall, err)
	}

	return StrategyNative, nil
}

// installConverted runs convert in the scratch directory, picks the produced
// file matching pattern and installs it with the command built by install.
func (i *Installer) installConverted(
	ctx context.Context,
	pkgPath string,
	convert common.Command,
	pattern string,
	install func(converted string) common.Command,
) (Strategy, error) {
	if !common.HasTool(i.runner, convert.Name) {
		logger.WarnKV(ctx, "Conversion tool not found, extracting manually", "tool", convert.Name)
		return i.extract(ctx, pkgPath)
	}

	err := i.runner.Run(ctx, convert)
	if err == nil {
		var converted string

		converted, err = i.findConverted(pattern, pkgPath)
		if err == nil {
			logger.InfoKV(ctx, "Installing converted package", "package", converted)
			err = i.runner.Run(ctx, install(converted))
		}
	}

	if err != nil {
		logger.WarnKV(ctx, "Converted install failed, extracting manually", "tool", convert.Name, "error", err)
		return i.extract(ctx, pkgPath)
	}

	return StrategyConverted, nil
}

func (i *Installer) findConverted(pattern, pkgPath string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(i.scratchDir, pattern))
	if err != nil {
		return "", fmt.Errorf("look up converted package: %w", err)
	}

	sort.Strings(matches)

	for _, match := range matches {
		if match != pkgPath {
			return match, nil
		}
	}

	return "", fmt.Errorf("%s: %w", pattern, errNoConvertedPackage)
}

func (i *Installer) extract(ctx context.Context, pkgPath string) (Strategy, error) {
	if err := i.extractor.Extract(ctx, pkgPath); err != nil {
		return "", err
	}

	return StrategyExtracted, nil
}
