package distro

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestClassify covers direct IDs, ID_LIKE fallback and unknown IDs.
func TestClassify(t *testing.T) {
	t.Parallel()

	cases := []struct {
		id     string
		idLike []string
		want   Family
	}{
		{"ubuntu", nil, Debian{}},
		{"Debian", nil, Debian{}},
		{"fedora", nil, RPM{Manager: ManagerDNF}},
		{"opensuse-tumbleweed", nil, RPM{Manager: ManagerZypper}},
		{"manjaro", nil, Arch{}},
		{"tuxedo", []string{"ubuntu", "debian"}, Debian{}},
		{"ultramarine", []string{"fedora"}, RPM{Manager: ManagerDNF}},
		{"gentoo", nil, Unknown{}},
		{UnknownID, nil, Unknown{}},
	}

	for _, tc := range cases {
		require.Equal(t, tc.want, Classify(tc.id, tc.idLike), tc.id)
	}
}

// TestNewIdentity normalizes the ID and fills the family.
func TestNewIdentity(t *testing.T) {
	t.Parallel()

	id := NewIdentity(" Fedora ", nil, "x86_64")
	require.Equal(t, "fedora", id.ID)
	require.Equal(t, RPM{Manager: ManagerDNF}, id.Family)
	require.False(t, id.IsUnknown())

	id = NewIdentity("", nil, "")
	require.True(t, id.IsUnknown())
	require.Equal(t, Unknown{}, id.Family)
}

// TestConversionTool checks the tool carried by each family.
func TestConversionTool(t *testing.T) {
	t.Parallel()

	require.Empty(t, Debian{}.ConversionTool())
	require.Equal(t, ToolAlien, RPM{}.ConversionTool())
	require.Equal(t, ToolDebtap, Arch{}.ConversionTool())
	require.Empty(t, Unknown{}.ConversionTool())
}

// TestMultiarchTriplet maps machines to Debian library directories.
func TestMultiarchTriplet(t *testing.T) {
	t.Parallel()

	require.Equal(t, "x86_64-linux-gnu", MultiarchTriplet("x86_64"))
	require.Equal(t, "aarch64-linux-gnu", MultiarchTriplet("aarch64"))
	require.Equal(t, "i386-linux-gnu", MultiarchTriplet("i686"))
	require.Equal(t, "x86_64-linux-gnu", MultiarchTriplet(""))
}
