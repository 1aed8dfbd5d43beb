package provision

import (
	"context"
	"errors"
	"fmt"

	"github.com/oshokin/lumen-provision/internal/config"
	"github.com/oshokin/lumen-provision/internal/domain/release"
	"github.com/oshokin/lumen-provision/internal/logger"
	"github.com/oshokin/lumen-provision/internal/repository/marker"
	"github.com/oshokin/lumen-provision/internal/service/common"
	"github.com/oshokin/lumen-provision/internal/service/fetcher"
	"github.com/oshokin/lumen-provision/internal/service/installer"
	"github.com/oshokin/lumen-provision/internal/service/patcher"
	"github.com/oshokin/lumen-provision/internal/service/probe"
	"github.com/oshokin/lumen-provision/internal/service/resolver"
	"github.com/oshokin/lumen-provision/internal/service/toolchain"
)

// ErrMarkerWrite is returned when the installed version cannot be recorded.
var ErrMarkerWrite = errors.New("unable to record the installed version")

// Guard looks for running application instances before files are replaced.
type Guard interface {
	Check(ctx context.Context) []int
}

// Dependencies are the host integrations. Zero fields use the real ones.
type Dependencies struct {
	// Runner executes package managers and conversion tools.
	Runner common.Runner
	// HTTPClient performs listing and package requests.
	HTTPClient common.HTTPClient
	// Uname reads the machine architecture.
	Uname probe.UnameFunc
	// Guard checks for running instances.
	Guard Guard
}

// Pipeline runs the provisioning steps in order.
type Pipeline struct {
	prober    *probe.Prober
	resolver  *resolver.Resolver
	fetcher   *fetcher.Fetcher
	toolchain *toolchain.Provisioner
	installer *installer.Installer
	patcher   *patcher.Patcher
	markers   marker.Repository
	guard     Guard
	cfg       *config.Config
}

type noGuard struct{}

func (noGuard) Check(context.Context) []int { return nil }

// New builds a Pipeline for cfg.
func New(cfg *config.Config, deps Dependencies) (*Pipeline, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	if deps.Runner == nil {
		deps.Runner = common.NewExecRunner()
	}

	if deps.Guard == nil {
		deps.Guard = noGuard{}
	}

	res, err := resolver.New(cfg, common.NewClient(
		common.WithHTTPClient(deps.HTTPClient),
		common.WithTimeout(cfg.ListingTimeout),
	))
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		prober:    probe.New(cfg.OSReleasePaths, probe.WithUname(deps.Uname)),
		resolver:  res,
		fetcher:   fetcher.New(cfg, common.NewClient(common.WithHTTPClient(deps.HTTPClient))),
		toolchain: toolchain.New(deps.Runner),
		installer: installer.New(cfg, deps.Runner),
		patcher:   patcher.New(),
		markers:   marker.NewFileRepository(cfg.MarkerPath()),
		guard:     deps.Guard,
		cfg:       cfg,
	}, nil
}

// Prepare probes the host and resolves the latest release. It never fails.
func (p *Pipeline) Prepare(ctx context.Context) common.Session {
	identity := p.prober.Probe(ctx)
	latest := p.resolver.Resolve(ctx)

	logger.InfoKV(ctx, "Session prepared",
		"distro", identity.ID,
		"family", identity.Family.Name(),
		"arch", identity.Architecture,
		"release", latest.Version.String())

	return common.NewSession(p.cfg, identity, latest)
}

// InstalledVersion reads the marker. A missing or unreadable marker is
// reported as the zero version.
func (p *Pipeline) InstalledVersion(ctx context.Context) release.Version {
	installed, err := p.markers.Load(ctx)

	switch {
	case errors.Is(err, marker.ErrNotFound):
		logger.Debug(ctx, "No installed version recorded")
	case err != nil:
		logger.WarnKV(ctx, "Ignoring unreadable version marker", "error", err)
	}

	return installed
}

// Install runs the full pipeline including conversion tool provisioning.
func (p *Pipeline) Install(ctx context.Context, s common.Session) error {
	return p.deploy(ctx, s, true)
}

// Upgrade runs the pipeline without provisioning conversion tools.
func (p *Pipeline) Upgrade(ctx context.Context, s common.Session) error {
	return p.deploy(ctx, s, false)
}

func (p *Pipeline) deploy(ctx context.Context, s common.Session, provisionTools bool) error {
	ctx = logger.WithKV(ctx, "release", s.Release.Filename)

	downloadURL, err := s.DownloadURL()
	if err != nil {
		return fmt.Errorf("%w: %w", fetcher.ErrFetch, err)
	}

	pkgPath, err := p.fetcher.Fetch(ctx, downloadURL)
	if err != nil {
		return err
	}

	if provisionTools {
		p.toolchain.Ensure(ctx, s.Distro)
	}

	p.guard.Check(ctx)

	strategy, err := p.installer.Install(ctx, s, pkgPath)
	if err != nil {
		return err
	}

	logger.InfoKV(ctx, "Package installed", "strategy", string(strategy))

	p.patcher.Patch(ctx, s)

	if err = p.markers.Save(ctx, s.Release.Version); err != nil {
		return fmt.Errorf("%w: %w", ErrMarkerWrite, err)
	}

	logger.InfoKV(ctx, "Installed version recorded",
		"version", s.Release.Version.String(), "path", p.cfg.MarkerPath())

	return nil
}
