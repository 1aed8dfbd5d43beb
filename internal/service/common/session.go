//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"github.com/oshokin/lumen-provision/internal/config"
	"github.com/oshokin/lumen-provision/internal/domain/distro"
	"github.com/oshokin/lumen-provision/internal/domain/release"
)

// Session is built once per run from the probed identity and the resolved
// release. It is passed by value and never modified afterwards.
type Session struct {
	// Config holds the fixed locations of the run.
	Config config.Config
	// Distro is the detected host identity.
	Distro distro.Identity
	// Release is the package selected for this run.
	Release release.Descriptor
}

// NewSession copies cfg so later changes to the caller's value are not observed.
func NewSession(cfg *config.Config, identity distro.Identity, latest release.Descriptor) Session {
	return Session{
		Config:  *cfg,
		Distro:  identity,
		Release: latest,
	}
}

// DownloadURL returns the URL of the selected package.
func (s Session) DownloadURL() (string, error) {
	return s.Release.URL(s.Config.BaseURL)
}
