package patcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/multierr"

	"github.com/oshokin/lumen-provision/internal/config"
	"github.com/oshokin/lumen-provision/internal/domain/distro"
	"github.com/oshokin/lumen-provision/internal/logger"
	"github.com/oshokin/lumen-provision/internal/service/common"
)

// BundledSuffix is appended to the vendor library when it is set aside.
const BundledSuffix = ".bundled"

var (
	errSourceNotFound = errors.New("library not found in any library directory")
	errForeignFile    = errors.New("a regular file already occupies the link path")
	errNotRegular     = errors.New("bundled library is not a regular file")
)

// Patcher applies the host compatibility fixes.
type Patcher struct{}

// New creates a Patcher.
func New() *Patcher {
	return &Patcher{}
}

// CompatDir returns the multiarch library directory for the session's architecture.
func CompatDir(s common.Session) string {
	return filepath.Join(s.Config.CompatRoot, distro.MultiarchTriplet(s.Distro.Architecture))
}

// Patch creates the configured compatibility links and swaps the vendor
// library. It never fails.
func (p *Patcher) Patch(ctx context.Context, s common.Session) *Report {
	ctx = logger.WithName(ctx, "patcher")
	report := &Report{}

	compatDir := CompatDir(s)

	if err := os.MkdirAll(compatDir, config.DefaultDirPermissions); err != nil {
		report.warn(fmt.Errorf("create compatibility directory: %w", err))
	} else {
		for _, link := range s.Config.CompatLinks {
			p.link(ctx, report, s.Config.LibraryDirs, compatDir, link)
		}
	}

	if s.Config.VendorLibrary != "" {
		p.swap(ctx, report, s, compatDir)
	}

	for _, warning := range report.Warnings() {
		logger.WarnKV(ctx, "Compatibility fix not applied", "error", warning)
	}

	logger.InfoKV(ctx, "Compatibility fixes applied",
		"linked", len(report.Linked),
		"unchanged", len(report.Unchanged),
		"skipped", len(report.Skipped))

	return report
}

func (p *Patcher) link(
	ctx context.Context,
	report *Report,
	libraryDirs []string,
	compatDir string,
	link config.CompatLink,
) {
	linkPath := filepath.Join(compatDir, link.Name)

	source, ok := findLibrary(libraryDirs, link.SourceName())
	if !ok {
		report.Skipped = append(report.Skipped, linkPath)
		report.warn(fmt.Errorf("%s: %w", link.SourceName(), errSourceNotFound))

		return
	}

	info, err := os.Lstat(linkPath)

	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		report.Skipped = append(report.Skipped, linkPath)
		report.warn(fmt.Errorf("inspect %s: %w", linkPath, err))

		return
	case info.Mode()&fs.ModeSymlink == 0:
		report.Skipped = append(report.Skipped, linkPath)
		report.warn(fmt.Errorf("%s: %w", linkPath, errForeignFile))

		return
	default:
		if current, readErr := os.Readlink(linkPath); readErr == nil && current == source {
			report.Unchanged = append(report.Unchanged, linkPath)
			return
		}

		if err = os.Remove(linkPath); err != nil {
			report.Skipped = append(report.Skipped, linkPath)
			report.warn(fmt.Errorf("remove stale link %s: %w", linkPath, err))

			return
		}
	}

	if err = os.Symlink(source, linkPath); err != nil {
		report.Skipped = append(report.Skipped, linkPath)
		report.warn(fmt.Errorf("link %s: %w", linkPath, err))

		return
	}

	logger.DebugKV(ctx, "Linked library", "link", linkPath, "target", source)

	report.Linked = append(report.Linked, linkPath)
}

// swap replaces the bundled library with a link to the host one.
func (p *Patcher) swap(ctx context.Context, report *Report, s common.Session, compatDir string) {
	bundled := filepath.Join(s.Config.InstallDir, s.Config.VendorLibrary)

	suppress := func(err error) {
		logger.DebugKV(ctx, "Vendor library left in place", "library", bundled, "error", err)
		report.Suppressed = append(report.Suppressed, err)
	}

	info, err := os.Lstat(bundled)
	if err != nil {
		suppress(err)
		return
	}

	if info.Mode()&fs.ModeSymlink != 0 {
		logger.DebugKV(ctx, "Vendor library already swapped", "library", bundled)
		return
	}

	if !info.Mode().IsRegular() {
		suppress(fmt.Errorf("%s: %w", bundled, errNotRegular))
		return
	}

	dirs := append(append([]string(nil), s.Config.LibraryDirs...), compatDir)

	system, ok := findLibrary(dirs, filepath.Base(bundled))
	if !ok {
		suppress(fmt.Errorf("%s: %w", filepath.Base(bundled), errSourceNotFound))
		return
	}

	if err = os.Rename(bundled, bundled+BundledSuffix); err != nil {
		suppress(fmt.Errorf("set bundled library aside: %w", err))
		return
	}

	if err = os.Symlink(system, bundled); err != nil {
		suppress(restoreBundled(err, bundled))
		return
	}

	report.Swapped = bundled

	logger.DebugKV(ctx, "Vendor library swapped", "library", bundled, "target", system)
}

// restoreBundled puts the bundled library back after a failed link.
func restoreBundled(linkErr error, bundled string) error {
	err := fmt.Errorf("link host library: %w", linkErr)

	if restoreErr := os.Rename(bundled+BundledSuffix, bundled); restoreErr != nil {
		err = multierr.Append(err, fmt.Errorf("restore bundled library: %w", restoreErr))
	}

	return err
}

// findLibrary returns the first dirs entry holding name. Dangling links do not count.
func findLibrary(dirs []string, name string) (string, bool) {
	for _, dir := range dirs {
		candidate := filepath.Join(dir, name)

		info, err := os.Stat(candidate)
		if err == nil && !info.IsDir() {
			return candidate, true
		}
	}

	return "", false
}
