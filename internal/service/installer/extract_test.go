package installer

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/lumen-provision/internal/testutil"
)

// TestExtractCompressions unpacks every supported data member format.
func TestExtractCompressions(t *testing.T) {
	t.Parallel()

	for _, compression := range []testutil.Compression{
		testutil.CompressionXZ,
		testutil.CompressionZstd,
		testutil.CompressionGzip,
		testutil.CompressionNone,
	} {
		compression := compression

		t.Run("data.tar."+string(compression), func(t *testing.T) {
			t.Parallel()

			cfg := testConfig(t)
			testutil.WriteDeb(t, cfg.PackagePath(), payload(), compression)

			require.NoError(t, NewExtractor(cfg).Extract(context.Background(), cfg.PackagePath()))

			body, err := os.ReadFile(filepath.Join(cfg.InstallDir, "resources", "app.js"))
			require.NoError(t, err)
			require.Equal(t, "console.log(1)", string(body))

			info, err := os.Stat(filepath.Join(cfg.InstallDir, "lumen"))
			require.NoError(t, err)
			require.Equal(t, fs.FileMode(0o755), info.Mode().Perm())

			link, err := os.Readlink(filepath.Join(cfg.InstallDir, "bin"))
			require.NoError(t, err)
			require.Equal(t, "lumen", link)

			require.NoFileExists(t, filepath.Join(cfg.InstallDir, "usr", "share", "doc", "lumen", "README"))
		})
	}
}

// TestExtractIsIdempotent reruns over an existing tree.
func TestExtractIsIdempotent(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	testutil.WriteDeb(t, cfg.PackagePath(), payload(), testutil.CompressionZstd)

	extractor := NewExtractor(cfg)
	require.NoError(t, extractor.Extract(context.Background(), cfg.PackagePath()))
	require.NoError(t, extractor.Extract(context.Background(), cfg.PackagePath()))

	entries, err := os.ReadDir(cfg.InstallDir)
	require.NoError(t, err)

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}

	require.ElementsMatch(t, []string{"bin", "libstdc++.so.6", "lumen", "resources"}, names)
}

// TestExtractReplacesSymlinkWithFile must not write through a swapped library.
func TestExtractReplacesSymlinkWithFile(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	testutil.WriteDeb(t, cfg.PackagePath(), payload(), testutil.CompressionXZ)

	host := filepath.Join(t.TempDir(), "libstdc++.so.6")
	require.NoError(t, os.WriteFile(host, []byte("host"), 0o600))
	require.NoError(t, os.MkdirAll(cfg.InstallDir, 0o755))
	require.NoError(t, os.Symlink(host, filepath.Join(cfg.InstallDir, "libstdc++.so.6")))

	require.NoError(t, NewExtractor(cfg).Extract(context.Background(), cfg.PackagePath()))

	info, err := os.Lstat(filepath.Join(cfg.InstallDir, "libstdc++.so.6"))
	require.NoError(t, err)
	require.True(t, info.Mode().IsRegular())

	body, err := os.ReadFile(host)
	require.NoError(t, err)
	require.Equal(t, "host", string(body))
}

// TestExtractSpecialModesAndHardLinks keeps setuid bits and hard links.
func TestExtractSpecialModesAndHardLinks(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	testutil.WriteDeb(t, cfg.PackagePath(), map[string]testutil.Entry{
		"./opt/Lumen/chrome-sandbox": {Body: "sandbox", Mode: 0o4755},
		"./opt/Lumen/lumen":          {Body: "app", Mode: 0o755},
		"./opt/Lumen/lumen-alias":    {HardLink: "./opt/Lumen/lumen"},
	}, testutil.CompressionGzip)

	require.NoError(t, NewExtractor(cfg).Extract(context.Background(), cfg.PackagePath()))

	info, err := os.Stat(filepath.Join(cfg.InstallDir, "chrome-sandbox"))
	require.NoError(t, err)
	require.NotZero(t, info.Mode()&fs.ModeSetuid)

	original, err := os.Stat(filepath.Join(cfg.InstallDir, "lumen"))
	require.NoError(t, err)

	alias, err := os.Stat(filepath.Join(cfg.InstallDir, "lumen-alias"))
	require.NoError(t, err)
	require.True(t, os.SameFile(original, alias))
}

// TestExtractRejectsEscapes covers dot-dot names, symlinked parents and
// hard links leaving the payload.
func TestExtractRejectsEscapes(t *testing.T) {
	t.Parallel()

	outside := t.TempDir()

	tests := []struct {
		name    string
		entries map[string]testutil.Entry
	}{
		{
			name: "dot-dot",
			entries: map[string]testutil.Entry{
				"./opt/Lumen/lumen":             {Body: "app"},
				"./opt/Lumen/../../../etc/evil": {Body: "evil"},
			},
		},
		{
			name: "symlinked parent",
			entries: map[string]testutil.Entry{
				"./opt/Lumen/evil":        {Link: outside},
				"./opt/Lumen/evil/passwd": {Body: "evil"},
			},
		},
		{
			name: "hard link outside the payload",
			entries: map[string]testutil.Entry{
				"./etc/shadow":      {Body: "secret"},
				"./opt/Lumen/alias": {HardLink: "./etc/shadow"},
			},
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := testConfig(t)
			testutil.WriteDeb(t, cfg.PackagePath(), tt.entries, testutil.CompressionNone)

			err := NewExtractor(cfg).Extract(context.Background(), cfg.PackagePath())
			require.ErrorIs(t, err, ErrExtraction)
			require.ErrorIs(t, err, errPathEscape)
			require.NoFileExists(t, filepath.Join(outside, "passwd"))
		})
	}
}

// TestExtractFailures are fatal extraction errors.
func TestExtractFailures(t *testing.T) {
	t.Parallel()

	t.Run("not an ar archive", func(t *testing.T) {
		t.Parallel()

		cfg := testConfig(t)
		require.NoError(t, os.WriteFile(cfg.PackagePath(), []byte("<html>not found</html>"), 0o600))

		err := NewExtractor(cfg).Extract(context.Background(), cfg.PackagePath())
		require.ErrorIs(t, err, ErrExtraction)
		require.ErrorIs(t, err, errNotArArchive)
	})

	t.Run("empty payload", func(t *testing.T) {
		t.Parallel()

		cfg := testConfig(t)
		testutil.WriteDeb(t, cfg.PackagePath(), map[string]testutil.Entry{
			"./usr/bin/other": {Body: "other"},
		}, testutil.CompressionXZ)

		err := NewExtractor(cfg).Extract(context.Background(), cfg.PackagePath())
		require.ErrorIs(t, err, ErrExtraction)
		require.ErrorIs(t, err, errEmptyPayload)
	})

	t.Run("missing package", func(t *testing.T) {
		t.Parallel()

		cfg := testConfig(t)

		err := NewExtractor(cfg).Extract(context.Background(), cfg.PackagePath())
		require.ErrorIs(t, err, ErrExtraction)
		require.ErrorIs(t, err, fs.ErrNotExist)
	})
}
