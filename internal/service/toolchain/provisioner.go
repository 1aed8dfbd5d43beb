package toolchain

import (
	"context"

	"github.com/oshokin/lumen-provision/internal/domain/distro"
	"github.com/oshokin/lumen-provision/internal/logger"
	"github.com/oshokin/lumen-provision/internal/service/common"
)

// aurHelpers are tried, in order, when debtap is not in the official repositories.
//
//nolint:gochecknoglobals // Fixed lookup order.
var aurHelpers = []string{"yay", "paru"}

// Provisioner installs conversion tools through the native package manager.
type Provisioner struct {
	runner common.Runner
	// helperUser runs AUR helpers, which refuse to build as root.
	helperUser string
}

// Option configures a Provisioner.
type Option func(*Provisioner)

// WithHelperUser sets the account AUR helpers run as. Empty runs them as
// the current user.
func WithHelperUser(name string) Option {
	return func(p *Provisioner) {
		p.helperUser = name
	}
}

// New creates a Provisioner. AUR helpers run as the user that invoked sudo
// unless WithHelperUser says otherwise.
func New(runner common.Runner, opts ...Option) *Provisioner {
	p := &Provisioner{
		runner:     runner,
		helperUser: common.InvokingUser(),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Ensure makes a best-effort attempt to install the conversion tool of the
// identity's family. It reports whether the tool is available afterwards.
func (p *Provisioner) Ensure(ctx context.Context, identity distro.Identity) bool {
	ctx = logger.WithName(ctx, "toolchain")

	switch family := identity.Family.(type) {
	case distro.Debian:
		logger.Debug(ctx, "Native package format, no conversion tool needed")
		return false
	case distro.Unknown:
		logger.InfoKV(ctx, "Unknown distribution, skipping tool installation", "id", identity.ID)
		return false
	case distro.RPM:
		return p.ensure(ctx, family.ConversionTool(), rpmInstallCommands(family.Manager))
	case distro.Arch:
		return p.ensure(ctx, family.ConversionTool(), p.archInstallCommands())
	default:
		logger.WarnKV(ctx, "Unsupported distribution family, skipping tool installation", "family", family)
		return false
	}
}

// ensure runs candidates until the tool shows up in PATH.
func (p *Provisioner) ensure(ctx context.Context, tool string, candidates []common.Command) bool {
	if common.HasTool(p.runner, tool) {
		logger.DebugKV(ctx, "Conversion tool already installed", "tool", tool)
		return true
	}

	for _, cmd := range candidates {
		logger.InfoKV(ctx, "Installing conversion tool", "tool", tool, "command", cmd.String())

		if err := p.runner.Run(ctx, cmd); err != nil {
			logger.WarnKV(ctx, "Conversion tool installation failed", "tool", tool, "error", err)
			continue
		}

		if common.HasTool(p.runner, tool) {
			return true
		}
	}

	logger.WarnKV(ctx, "Conversion tool unavailable, manual extraction will be used", "tool", tool)

	return false
}

func rpmInstallCommands(manager string) []common.Command {
	switch manager {
	case distro.ManagerZypper:
		return []common.Command{{
			Name: distro.ManagerZypper,
			Args: []string{"--non-interactive", "install", distro.ToolAlien},
		}}
	case distro.ManagerYUM:
		return []common.Command{{
			Name: distro.ManagerYUM,
			Args: []string{"install", "-y", distro.ToolAlien},
		}}
	default:
		return []common.Command{{
			Name: distro.ManagerDNF,
			Args: []string{"install", "-y", distro.ToolAlien},
		}}
	}
}

// archInstallCommands tries every AUR helper present, then pacman.
func (p *Provisioner) archInstallCommands() []common.Command {
	installArgs := []string{"-S", "--noconfirm", "--needed", distro.ToolDebtap}
	commands := make([]common.Command, 0, len(aurHelpers)+1)

	for _, helper := range aurHelpers {
		if !common.HasTool(p.runner, helper) {
			continue
		}

		if p.helperUser == "" {
			commands = append(commands, common.Command{Name: helper, Args: installArgs})
			continue
		}

		commands = append(commands, common.Command{
			Name: "sudo",
			Args: append([]string{"-u", p.helperUser, helper}, installArgs...),
		})
	}

	return append(commands, common.Command{Name: "pacman", Args: installArgs})
}
