package probe

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/oshokin/lumen-provision/internal/domain/distro"
	"github.com/oshokin/lumen-provision/internal/logger"
)

// UnameFunc returns the machine field of uname(2).
type UnameFunc func() (string, error)

// Prober detects the distribution and architecture of the host.
type Prober struct {
	// paths are the os-release candidates, first readable one wins.
	paths []string
	// uname reads the machine name.
	uname UnameFunc
}

// Option configures a Prober.
type Option func(*Prober)

// WithUname replaces the uname(2) call.
func WithUname(fn UnameFunc) Option {
	return func(p *Prober) {
		if fn != nil {
			p.uname = fn
		}
	}
}

// New creates a Prober reading the given os-release candidates.
func New(paths []string, opts ...Option) *Prober {
	p := &Prober{
		paths: paths,
		uname: machine,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Probe returns the host identity. It has no side effects and never fails.
func (p *Prober) Probe(ctx context.Context) distro.Identity {
	ctx = logger.WithName(ctx, "probe")

	fields := p.readOSRelease(ctx)

	var idLike []string
	if like := fields["ID_LIKE"]; like != "" {
		idLike = strings.Fields(like)
	}

	identity := distro.NewIdentity(fields["ID"], idLike, p.architecture(ctx))

	logger.InfoKV(ctx, "Detected host",
		"id", identity.ID,
		"family", identity.Family.Name(),
		"architecture", identity.Architecture)

	return identity
}

// readOSRelease returns the first candidate that has an ID, or else the
// first one that could be read at all.
func (p *Prober) readOSRelease(ctx context.Context) map[string]string {
	var fallback map[string]string

	for _, path := range p.paths {
		file, err := os.Open(filepath.Clean(path))
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				logger.WarnKV(ctx, "Unable to open os-release", "path", path, "error", err)
			}

			continue
		}

		fields, err := parseOSRelease(file)
		_ = file.Close()

		if err != nil {
			logger.WarnKV(ctx, "Unable to parse os-release", "path", path, "error", err)
			continue
		}

		if fields["ID"] == "" {
			logger.WarnKV(ctx, "os-release has no ID", "path", path)

			if fallback == nil {
				fallback = fields
			}

			continue
		}

		return fields
	}

	if fallback == nil {
		logger.Warn(ctx, "No os-release file found, treating the distribution as unknown")
	}

	return fallback
}

func (p *Prober) architecture(ctx context.Context) string {
	arch, err := p.uname()
	if err == nil && arch != "" {
		return normalizeArch(arch)
	}

	logger.DebugKV(ctx, "uname failed, using the build architecture", "error", err)

	return normalizeArch(runtime.GOARCH)
}

func normalizeArch(arch string) string {
	switch arch {
	case "amd64":
		return "x86_64"
	case "arm64":
		return "aarch64"
	case "386":
		return "i686"
	default:
		return arch
	}
}

func machine() (string, error) {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return "", fmt.Errorf("uname: %w", err)
	}

	return unix.ByteSliceToString(uts.Machine[:]), nil
}
