package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/lumen-provision/internal/domain/release"
)

// CompatLink describes one library symlink created in the Debian-style
// multiarch directory.
type CompatLink struct {
	// Name is the filename the application expects inside the compatibility directory.
	Name string `yaml:"name"`
	// Source is the library filename searched in LibraryDirs. Empty means Name.
	Source string `yaml:"source"`
}

// SourceName returns the library filename to look up on the host.
func (l CompatLink) SourceName() string {
	if l.Source == "" {
		return l.Name
	}

	return l.Source
}

// Config holds every fixed path and location used by a provisioning run.
type Config struct {
	// Product is the vendor product name used in package filenames.
	Product string `yaml:"product"`
	// AppBinary is the process name of the installed application.
	AppBinary string `yaml:"app_binary"`
	// BaseURL is the directory listing that hosts the vendor packages.
	BaseURL string `yaml:"base_url"`
	// FallbackFilename is used when the listing cannot be read or has no matches.
	FallbackFilename string `yaml:"fallback_filename"`
	// PackageExtension is the vendor package extension without the leading dot.
	PackageExtension string `yaml:"package_extension"`
	// ScratchDir is wiped and recreated at the start of every fetch.
	ScratchDir string `yaml:"scratch_dir"`
	// PackageFilename is the fixed name of the downloaded package inside ScratchDir.
	PackageFilename string `yaml:"package_filename"`
	// InstallDir is where the application lives under the optional-software tree.
	InstallDir string `yaml:"install_dir"`
	// PayloadPrefix is the path inside the package data archive that maps to InstallDir.
	PayloadPrefix string `yaml:"payload_prefix"`
	// MarkerFilename is the version marker stored inside InstallDir.
	MarkerFilename string `yaml:"marker_filename"`
	// OSReleasePaths are probed in order for the distribution identity.
	OSReleasePaths []string `yaml:"os_release_paths"`
	// CompatRoot is the parent of the multiarch compatibility directory.
	CompatRoot string `yaml:"compat_root"`
	// LibraryDirs are searched for host libraries, in order.
	LibraryDirs []string `yaml:"library_dirs"`
	// CompatLinks are the symlinks created in the compatibility directory.
	CompatLinks []CompatLink `yaml:"compat_links"`
	// VendorLibrary is the bundled library, relative to InstallDir, swapped for the host one.
	VendorLibrary string `yaml:"vendor_library"`
	// ListingTimeout bounds the directory listing request.
	ListingTimeout time.Duration `yaml:"listing_timeout"`
}

const (
	// DefaultProduct is the vendor product name.
	DefaultProduct = "Lumen"

	// DefaultBaseURL hosts the Linux beta packages.
	DefaultBaseURL = "https://downloads.lumen-app.com/linux/beta/"

	// DefaultFallbackFilename is the last release known to be published.
	DefaultFallbackFilename = "Lumen-Beta-2024.1400.0.911.deb"

	// DefaultScratchDir is the per-run workspace.
	DefaultScratchDir = "/tmp/lumen-provision"

	// DefaultInstallDir is where the application is installed.
	DefaultInstallDir = "/opt/Lumen"

	// DefaultMarkerFilename records the installed release inside DefaultInstallDir.
	DefaultMarkerFilename = ".installed-version"

	// DefaultListingTimeout bounds the directory listing request.
	DefaultListingTimeout = 30 * time.Second

	// DefaultFilePermissions is used for files written by the provisioner.
	DefaultFilePermissions = 0o644

	// DefaultDirPermissions is used for directories created by the provisioner.
	DefaultDirPermissions = 0o755
)

var (
	errConfigIsNotSet       = errors.New("configuration is not set")
	errProductRequired      = errors.New("product must be provided")
	errUnsupportedScheme    = errors.New("base URL must use http or https")
	errRelativePath         = errors.New("path must be absolute")
	errUnsafeScratchDir     = errors.New("scratch directory must not be the root or the install directory")
	errFallbackDoesNotMatch = errors.New("fallback filename does not match the package pattern")
)

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Product:          DefaultProduct,
		AppBinary:        strings.ToLower(DefaultProduct),
		BaseURL:          DefaultBaseURL,
		FallbackFilename: DefaultFallbackFilename,
		PackageExtension: "deb",
		ScratchDir:       DefaultScratchDir,
		PackageFilename:  "package.deb",
		InstallDir:       DefaultInstallDir,
		PayloadPrefix:    "opt/" + DefaultProduct,
		MarkerFilename:   DefaultMarkerFilename,
		OSReleasePaths:   []string{"/etc/os-release", "/usr/lib/os-release"},
		CompatRoot:       "/usr/lib",
		LibraryDirs:      []string{"/usr/lib64", "/usr/lib", "/lib64", "/lib"},
		CompatLinks: []CompatLink{
			{Name: "libcurl-gnutls.so.4", Source: "libcurl.so.4"},
			{Name: "libssl.so.3"},
			{Name: "libcrypto.so.3"},
			{Name: "libffi.so.7", Source: "libffi.so.8"},
		},
		VendorLibrary:  "libstdc++.so.6",
		ListingTimeout: DefaultListingTimeout,
	}
}

// Load returns the built-in configuration, overlaid with the YAML file at path
// when one is given.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		contents, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			return nil, fmt.Errorf("read settings: %w", err)
		}

		if err = yaml.Unmarshal(contents, cfg); err != nil {
			return nil, fmt.Errorf("unmarshal settings: %w", err)
		}
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes the configuration as YAML.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if err = os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks required fields and fills the zero values with defaults.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if strings.TrimSpace(cfg.Product) == "" {
		return errProductRequired
	}

	fillDefaults(cfg)

	baseURL, err := url.ParseRequestURI(cfg.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}

	if baseURL.Scheme != "http" && baseURL.Scheme != "https" {
		return fmt.Errorf("%s: %w", cfg.BaseURL, errUnsupportedScheme)
	}

	for _, dir := range []string{cfg.ScratchDir, cfg.InstallDir, cfg.CompatRoot} {
		if !filepath.IsAbs(dir) {
			return fmt.Errorf("%s: %w", dir, errRelativePath)
		}
	}

	scratch := filepath.Clean(cfg.ScratchDir)
	if scratch == string(filepath.Separator) || scratch == filepath.Clean(cfg.InstallDir) {
		return fmt.Errorf("%s: %w", cfg.ScratchDir, errUnsafeScratchDir)
	}

	pattern := release.NewPattern(cfg.Product, cfg.PackageExtension)
	if _, err = pattern.Parse(cfg.FallbackFilename); err != nil {
		return fmt.Errorf("%s: %w", cfg.FallbackFilename, errFallbackDoesNotMatch)
	}

	return nil
}

// MarkerPath returns the absolute path of the installed version marker.
func (c *Config) MarkerPath() string {
	return filepath.Join(c.InstallDir, c.MarkerFilename)
}

// PackagePath returns the absolute path of the downloaded package.
func (c *Config) PackagePath() string {
	return filepath.Join(c.ScratchDir, c.PackageFilename)
}

func fillDefaults(cfg *Config) {
	defaults := Default()

	if cfg.AppBinary == "" {
		cfg.AppBinary = strings.ToLower(cfg.Product)
	}

	if cfg.FallbackFilename == "" {
		cfg.FallbackFilename = defaults.FallbackFilename
	}

	if cfg.PackageExtension == "" {
		cfg.PackageExtension = defaults.PackageExtension
	}

	cfg.PackageExtension = strings.TrimPrefix(cfg.PackageExtension, ".")

	if cfg.PackageFilename == "" {
		cfg.PackageFilename = "package." + cfg.PackageExtension
	}

	if cfg.PayloadPrefix == "" {
		cfg.PayloadPrefix = "opt/" + cfg.Product
	}

	cfg.PayloadPrefix = strings.Trim(cfg.PayloadPrefix, "/")

	if cfg.MarkerFilename == "" {
		cfg.MarkerFilename = defaults.MarkerFilename
	}

	if len(cfg.OSReleasePaths) == 0 {
		cfg.OSReleasePaths = defaults.OSReleasePaths
	}

	if cfg.CompatRoot == "" {
		cfg.CompatRoot = defaults.CompatRoot
	}

	if len(cfg.LibraryDirs) == 0 {
		cfg.LibraryDirs = defaults.LibraryDirs
	}

	if cfg.ListingTimeout <= 0 {
		cfg.ListingTimeout = DefaultListingTimeout
	}
}
