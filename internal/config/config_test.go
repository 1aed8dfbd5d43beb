package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestValidate checks required fields and format validations.
func TestValidate(t *testing.T) {
	t.Parallel()

	require.NoError(t, Validate(Default()))
	require.Error(t, Validate(nil))

	// Missing product.
	cfg := Default()
	cfg.Product = " "
	require.ErrorIs(t, Validate(cfg), errProductRequired)

	// Unsupported scheme.
	cfg = Default()
	cfg.BaseURL = "ftp://mirror.local/pub/"
	require.ErrorIs(t, Validate(cfg), errUnsupportedScheme)

	// Relative install directory.
	cfg = Default()
	cfg.InstallDir = "opt/Lumen"
	require.ErrorIs(t, Validate(cfg), errRelativePath)

	// Scratch directory pointing at the root.
	cfg = Default()
	cfg.ScratchDir = "/"
	require.ErrorIs(t, Validate(cfg), errUnsafeScratchDir)

	// Fallback for another product.
	cfg = Default()
	cfg.FallbackFilename = "Other-Beta-1.2.3.4.deb"
	require.ErrorIs(t, Validate(cfg), errFallbackDoesNotMatch)
}

// TestValidateFillsDefaults ensures zero values are replaced.
func TestValidateFillsDefaults(t *testing.T) {
	t.Parallel()

	cfg := &Config{
		Product:          "Lumen",
		BaseURL:          "https://mirror.local/",
		FallbackFilename: "Lumen-Beta-1.0.0.1.deb",
		ScratchDir:       "/tmp/scratch",
		InstallDir:       "/opt/Lumen",
		PayloadPrefix:    "/opt/Lumen/",
	}

	require.NoError(t, Validate(cfg))
	require.Equal(t, "lumen", cfg.AppBinary)
	require.Equal(t, "deb", cfg.PackageExtension)
	require.Equal(t, "package.deb", cfg.PackageFilename)
	require.Equal(t, "opt/Lumen", cfg.PayloadPrefix)
	require.Equal(t, DefaultListingTimeout, cfg.ListingTimeout)
	require.Equal(t, "/opt/Lumen/.installed-version", cfg.MarkerPath())
	require.Equal(t, "/tmp/scratch/package.deb", cfg.PackagePath())
}

// TestLoadOverlaysDefaults verifies that a partial file keeps the built-in values.
func TestLoadOverlaysDefaults(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "settings.yaml")
	contents := []byte("base_url: https://mirror.local/lumen/\nlisting_timeout: 5s\n")
	require.NoError(t, os.WriteFile(path, contents, DefaultFilePermissions))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "https://mirror.local/lumen/", cfg.BaseURL)
	require.Equal(t, 5*time.Second, cfg.ListingTimeout)
	require.Equal(t, DefaultInstallDir, cfg.InstallDir)
	require.Len(t, cfg.CompatLinks, len(Default().CompatLinks))
}

// TestLoadWithoutPath returns the defaults.
func TestLoadWithoutPath(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

// TestSaveLoadRoundtrip ensures settings are persisted and loaded back correctly.
func TestSaveLoadRoundtrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "settings.yaml")

	cfg := Default()
	cfg.InstallDir = "/srv/lumen"
	cfg.CompatLinks = []CompatLink{{Name: "libz.so.1"}}

	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg.InstallDir, loaded.InstallDir)
	require.Equal(t, cfg.CompatLinks, loaded.CompatLinks)
	require.Equal(t, "libz.so.1", loaded.CompatLinks[0].SourceName())
}
