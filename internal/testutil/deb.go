package testutil

import (
	"archive/tar"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/blakesmith/ar"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz"
)

// Entry is one member of a generated data archive.
type Entry struct {
	// Body is the content of a regular file.
	Body string
	// Link makes the entry a symlink to Link.
	Link string
	// HardLink makes the entry a hard link to another archive path.
	HardLink string
	// Mode defaults to 0o644 for files and 0o755 for directories.
	Mode int64
	// Dir makes the entry a directory.
	Dir bool
}

// Compression selects the data member suffix.
type Compression string

// Supported data member compressions.
const (
	CompressionXZ   Compression = "xz"
	CompressionZstd Compression = "zst"
	CompressionGzip Compression = "gz"
	CompressionNone Compression = ""
)

// BuildDeb returns a .deb containing debian-binary, control.tar.gz and a
// data.tar member holding entries, keyed by archive path.
func BuildDeb(t *testing.T, entries map[string]Entry, compression Compression) []byte {
	t.Helper()

	data := compress(t, buildTar(t, entries), compression)
	control := compress(t, buildTar(t, map[string]Entry{
		"./control": {Body: "Package: lumen\nVersion: 1.0\n"},
	}), CompressionGzip)

	dataName := "data.tar"
	if compression != CompressionNone {
		dataName += "." + string(compression)
	}

	var buf bytes.Buffer

	w := ar.NewWriter(&buf)
	require.NoError(t, w.WriteGlobalHeader())

	for _, member := range []struct {
		name string
		body []byte
	}{
		{"debian-binary", []byte("2.0\n")},
		{"control.tar.gz", control},
		{dataName, data},
	} {
		require.NoError(t, w.WriteHeader(&ar.Header{
			Name:    member.name,
			ModTime: time.Unix(1700000000, 0),
			Mode:    0o644,
			Size:    int64(len(member.body)),
		}))

		_, err := w.Write(member.body)
		require.NoError(t, err)
	}

	return buf.Bytes()
}

// WriteDeb stores BuildDeb output at path.
func WriteDeb(t *testing.T, path string, entries map[string]Entry, compression Compression) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, BuildDeb(t, entries, compression), 0o600))
}

func buildTar(t *testing.T, entries map[string]Entry) []byte {
	t.Helper()

	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}

	sort.Strings(names)

	var buf bytes.Buffer

	tw := tar.NewWriter(&buf)

	for _, name := range names {
		entry := entries[name]

		hdr := &tar.Header{Name: name, ModTime: time.Unix(1700000000, 0), Mode: entry.Mode}

		switch {
		case entry.Dir:
			hdr.Typeflag = tar.TypeDir
			if hdr.Mode == 0 {
				hdr.Mode = 0o755
			}
		case entry.HardLink != "":
			hdr.Typeflag = tar.TypeLink
			hdr.Linkname = entry.HardLink
			if hdr.Mode == 0 {
				hdr.Mode = 0o644
			}
		case entry.Link != "":
			hdr.Typeflag = tar.TypeSymlink
			hdr.Linkname = entry.Link
			hdr.Mode = 0o777
		default:
			hdr.Typeflag = tar.TypeReg
			hdr.Size = int64(len(entry.Body))
			if hdr.Mode == 0 {
				hdr.Mode = 0o644
			}
		}

		require.NoError(t, tw.WriteHeader(hdr))

		if hdr.Typeflag == tar.TypeReg {
			_, err := io.WriteString(tw, entry.Body)
			require.NoError(t, err)
		}
	}

	require.NoError(t, tw.Close())

	return buf.Bytes()
}

func compress(t *testing.T, data []byte, compression Compression) []byte {
	t.Helper()

	var (
		buf bytes.Buffer
		w   io.WriteCloser
		err error
	)

	switch compression {
	case CompressionXZ:
		w, err = xz.NewWriter(&buf)
	case CompressionZstd:
		w, err = zstd.NewWriter(&buf)
	case CompressionGzip:
		w = gzip.NewWriter(&buf)
	default:
		return data
	}

	require.NoError(t, err)

	_, err = w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	return buf.Bytes()
}
