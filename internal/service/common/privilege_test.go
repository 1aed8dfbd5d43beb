//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestDetectUser ensures the username is detected and non-empty.
func TestDetectUser(t *testing.T) {
	t.Parallel()

	name, err := DetectUser()
	require.NoError(t, err)
	require.NotEmpty(t, name)
}

// TestIsPrivileged agrees with the effective UID.
func TestIsPrivileged(t *testing.T) {
	t.Parallel()

	require.Equal(t, os.Geteuid() == 0, IsPrivileged())
}

// TestElevateAsRoot is a no-op when already privileged.
func TestElevateAsRoot(t *testing.T) {
	t.Parallel()

	if !IsPrivileged() {
		t.Skip("elevation would replace the test binary")
	}

	require.NoError(t, Elevate(context.Background()))
}
