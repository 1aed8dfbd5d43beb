package installer

import (
	"archive/tar"
	"bytes"
	"compress/bzip2"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/blakesmith/ar"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
	"go.uber.org/multierr"

	"github.com/oshokin/lumen-provision/internal/config"
	"github.com/oshokin/lumen-provision/internal/logger"
)

const (
	arMagic = "!<arch>\n"

	dataMemberPrefix = "data.tar"

	// preservedBits are the mode bits copied from the archive.
	preservedBits = fs.ModePerm | fs.ModeSetuid | fs.ModeSetgid | fs.ModeSticky
)

var (
	// ErrExtraction wraps every manual extraction failure.
	ErrExtraction = errors.New("manual extraction failed")

	errNotArArchive      = errors.New("not an ar archive")
	errNoDataMember      = errors.New("package has no data archive")
	errUnsupportedFormat = errors.New("unsupported data archive compression")
	errEmptyPayload      = errors.New("no entries under the payload prefix")
	errPathEscape        = errors.New("entry escapes the install directory")
)

// Extractor unpacks the payload of a .deb without any package manager.
type Extractor struct {
	scratchDir string
	installDir string
	prefix     string
}

// NewExtractor creates an Extractor for the configured locations.
func NewExtractor(cfg *config.Config) *Extractor {
	return &Extractor{
		scratchDir: cfg.ScratchDir,
		installDir: cfg.InstallDir,
		prefix:     strings.Trim(cfg.PayloadPrefix, "/"),
	}
}

// Extract copies the data member of the package at pkgPath into the scratch
// directory, then unpacks the entries under the payload prefix into the
// install directory.
func (e *Extractor) Extract(ctx context.Context, pkgPath string) error {
	ctx = logger.WithName(ctx, "extractor")

	dataPath, err := e.copyDataMember(pkgPath)
	if err != nil {
		return fmt.Errorf("%w: read package: %w", ErrExtraction, err)
	}

	count, err := e.unpack(ctx, dataPath)
	if err != nil {
		return fmt.Errorf("%w: unpack %s: %w", ErrExtraction, filepath.Base(dataPath), err)
	}

	logger.InfoKV(ctx, "Payload extracted", "entries", count, "dir", e.installDir)

	return nil
}

// copyDataMember walks the ar members and stores data.tar* in the scratch
// directory under its own name.
func (e *Extractor) copyDataMember(pkgPath string) (dataPath string, err error) {
	f, err := os.Open(filepath.Clean(pkgPath))
	if err != nil {
		return "", fmt.Errorf("open package: %w", err)
	}

	defer func() {
		err = multierr.Append(err, f.Close())
	}()

	magic := make([]byte, len(arMagic))
	if _, err = io.ReadFull(f, magic); err != nil || string(magic) != arMagic {
		return "", errNotArArchive
	}

	// ar.NewReader skips the global header itself.
	reader := ar.NewReader(io.MultiReader(bytes.NewReader(magic), f))

	for {
		hdr, nextErr := reader.Next()
		if errors.Is(nextErr, io.EOF) {
			return "", errNoDataMember
		}

		if nextErr != nil {
			return "", fmt.Errorf("read ar header: %w", nextErr)
		}

		name := strings.TrimSuffix(strings.TrimSpace(hdr.Name), "/")
		if !strings.HasPrefix(name, dataMemberPrefix) || name != filepath.Base(name) {
			continue
		}

		dataPath = filepath.Join(e.scratchDir, name)
		if err = writeFile(dataPath, config.DefaultFilePermissions, io.LimitReader(reader, hdr.Size)); err != nil {
			return "", fmt.Errorf("copy %s: %w", name, err)
		}

		return dataPath, nil
	}
}

func (e *Extractor) unpack(ctx context.Context, dataPath string) (count int, err error) {
	stream, err := openDecompressed(dataPath)
	if err != nil {
		return 0, err
	}

	defer func() {
		err = multierr.Append(err, stream.Close())
	}()

	if err = os.MkdirAll(e.installDir, config.DefaultDirPermissions); err != nil {
		return 0, fmt.Errorf("create install directory: %w", err)
	}

	root, err := filepath.EvalSymlinks(e.installDir)
	if err != nil {
		return 0, fmt.Errorf("resolve install directory: %w", err)
	}

	tr := tar.NewReader(stream)

	for {
		if err = ctx.Err(); err != nil {
			return count, err
		}

		hdr, nextErr := tr.Next()
		if errors.Is(nextErr, io.EOF) {
			break
		}

		if errors.Is(nextErr, tar.ErrInsecurePath) {
			return count, fmt.Errorf("%s: %w", hdr.Name, errPathEscape)
		}

		if nextErr != nil {
			return count, fmt.Errorf("read tar header: %w", nextErr)
		}

		rel, ok, relErr := e.relative(hdr.Name)
		if relErr != nil {
			return count, relErr
		}

		if !ok {
			logger.DebugKV(ctx, "Skipping entry outside the payload", "entry", hdr.Name)
			continue
		}

		if err = e.writeEntry(root, rel, hdr, tr); err != nil {
			return count, fmt.Errorf("%s: %w", hdr.Name, err)
		}

		count++
	}

	if count == 0 {
		return 0, fmt.Errorf("%s: %w", e.prefix, errEmptyPayload)
	}

	return count, nil
}

// relative maps an archive name to a path below the install directory.
// The second result is false for entries outside the payload prefix.
func (e *Extractor) relative(name string) (string, bool, error) {
	clean := path.Clean(strings.TrimPrefix(name, "./"))
	if clean == ".." || strings.HasPrefix(clean, "../") || strings.Contains(clean, "/../") {
		return "", false, fmt.Errorf("%s: %w", name, errPathEscape)
	}

	clean = strings.TrimPrefix(clean, "/")

	switch {
	case clean == e.prefix:
		return "", true, nil
	case strings.HasPrefix(clean, e.prefix+"/"):
		return strings.TrimPrefix(clean, e.prefix+"/"), true, nil
	default:
		return "", false, nil
	}
}

func (e *Extractor) writeEntry(root, rel string, hdr *tar.Header, r io.Reader) error {
	target := filepath.Join(e.installDir, filepath.FromSlash(rel))
	mode := hdr.FileInfo().Mode() & preservedBits

	if rel != "" {
		if err := ensureInside(root, filepath.Dir(target)); err != nil {
			return err
		}
	}

	switch hdr.Typeflag {
	case tar.TypeDir:
		return writeDir(target, mode, rel != "")
	case tar.TypeReg:
		return writeFile(target, mode, r)
	case tar.TypeSymlink:
		return writeSymlink(target, hdr.Linkname)
	case tar.TypeLink:
		linkRel, ok, err := e.relative(hdr.Linkname)
		if err != nil {
			return err
		}

		if !ok || linkRel == "" {
			return fmt.Errorf("hard link to %s: %w", hdr.Linkname, errPathEscape)
		}

		source := filepath.Join(e.installDir, filepath.FromSlash(linkRel))
		if err = ensureInside(root, filepath.Dir(source)); err != nil {
			return err
		}

		return writeHardLink(target, source)
	default:
		return nil
	}
}

func writeDir(target string, mode fs.FileMode, chmod bool) error {
	if info, err := os.Lstat(target); err == nil && !info.IsDir() {
		if err = os.Remove(target); err != nil {
			return fmt.Errorf("replace with directory: %w", err)
		}
	}

	if err := os.MkdirAll(target, config.DefaultDirPermissions); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	if !chmod {
		return nil
	}

	return os.Chmod(target, mode)
}

// writeFile replaces target through a rename, which also swaps out a symlink
// or a running executable instead of writing through it.
func writeFile(target string, mode fs.FileMode, r io.Reader) (err error) {
	dir := filepath.Dir(target)

	if err = os.MkdirAll(dir, config.DefaultDirPermissions); err != nil {
		return fmt.Errorf("create parent directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".extract-*")
	if err != nil {
		return fmt.Errorf("create temporary file: %w", err)
	}

	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = io.Copy(tmp, r); err != nil { //nolint:gosec // Size is bounded by the archive header.
		_ = tmp.Close()
		return fmt.Errorf("write file: %w", err)
	}

	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close file: %w", err)
	}

	// Chmod rather than the create mode so umask does not drop bits.
	if err = os.Chmod(tmp.Name(), mode); err != nil {
		return fmt.Errorf("set file mode: %w", err)
	}

	if info, statErr := os.Lstat(target); statErr == nil && info.IsDir() {
		if err = os.RemoveAll(target); err != nil {
			return fmt.Errorf("replace directory: %w", err)
		}
	}

	if err = os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("move file into place: %w", err)
	}

	return nil
}

func writeSymlink(target, linkname string) error {
	if err := removeExisting(target); err != nil {
		return err
	}

	if err := os.Symlink(linkname, target); err != nil {
		return fmt.Errorf("create symlink: %w", err)
	}

	return nil
}

func writeHardLink(target, source string) error {
	if err := removeExisting(target); err != nil {
		return err
	}

	if err := os.Link(source, target); err != nil {
		return fmt.Errorf("create hard link: %w", err)
	}

	return nil
}

func removeExisting(target string) error {
	info, err := os.Lstat(target)

	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil
	case err != nil:
		return fmt.Errorf("inspect existing entry: %w", err)
	case info.IsDir():
		err = os.RemoveAll(target)
	default:
		err = os.Remove(target)
	}

	if err != nil {
		return fmt.Errorf("remove existing entry: %w", err)
	}

	return nil
}

// ensureInside resolves the deepest existing ancestor of dir and checks it
// still lies under root, so entries cannot be written through a symlink.
func ensureInside(root, dir string) error {
	existing := dir

	for {
		if _, err := os.Lstat(existing); err == nil {
			break
		}

		parent := filepath.Dir(existing)
		if parent == existing {
			break
		}

		existing = parent
	}

	resolved, err := filepath.EvalSymlinks(existing)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", existing, err)
	}

	rel, err := filepath.Rel(root, resolved)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("%s: %w", dir, errPathEscape)
	}

	return nil
}

type decompressed struct {
	io.Reader
	closers []func() error
}

func (d *decompressed) Close() error {
	var err error

	for i := len(d.closers) - 1; i >= 0; i-- {
		err = multierr.Append(err, d.closers[i]())
	}

	return err
}

// openDecompressed picks the decoder from the member suffix.
func openDecompressed(dataPath string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Clean(dataPath))
	if err != nil {
		return nil, fmt.Errorf("open data archive: %w", err)
	}

	stream := &decompressed{Reader: f, closers: []func() error{f.Close}}

	switch ext := strings.TrimPrefix(filepath.Base(dataPath), dataMemberPrefix); ext {
	case "":
	case ".xz":
		stream.Reader, err = xz.NewReader(f)
	case ".zst":
		var decoder *zstd.Decoder

		decoder, err = zstd.NewReader(f)
		if err == nil {
			stream.Reader = decoder
			stream.closers = append(stream.closers, func() error {
				decoder.Close()
				return nil
			})
		}
	case ".gz":
		var gz *gzip.Reader

		gz, err = gzip.NewReader(f)
		if err == nil {
			stream.Reader = gz
			stream.closers = append(stream.closers, gz.Close)
		}
	case ".bz2":
		stream.Reader = bzip2.NewReader(f)
	default:
		err = fmt.Errorf("%s: %w", ext, errUnsupportedFormat)
	}

	if err != nil {
		return nil, multierr.Append(fmt.Errorf("open decoder: %w", err), f.Close())
	}

	return stream, nil
}
