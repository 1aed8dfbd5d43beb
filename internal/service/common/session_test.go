//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/lumen-provision/internal/config"
	"github.com/oshokin/lumen-provision/internal/domain/distro"
	"github.com/oshokin/lumen-provision/internal/domain/release"
)

// TestNewSessionCopiesConfig ensures the session does not observe later edits.
func TestNewSessionCopiesConfig(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	latest, err := release.NewPattern(cfg.Product, cfg.PackageExtension).Parse(cfg.FallbackFilename)
	require.NoError(t, err)

	s := NewSession(cfg, distro.NewIdentity("ubuntu", nil, "x86_64"), latest)
	cfg.BaseURL = "https://changed.local/"

	require.Equal(t, config.DefaultBaseURL, s.Config.BaseURL)

	u, err := s.DownloadURL()
	require.NoError(t, err)
	require.Equal(t, config.DefaultBaseURL+config.DefaultFallbackFilename, u)
}
