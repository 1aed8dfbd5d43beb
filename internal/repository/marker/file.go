package marker

import (
	"bytes"
	"context"
	"crypto"
	_ "crypto/sha512" // Registers crypto.SHA512 for ChecksumFunction.
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	goupdate "github.com/doitdistributed/go-update"

	"github.com/oshokin/lumen-provision/internal/config"
	"github.com/oshokin/lumen-provision/internal/domain/release"
)

// ChecksumFunction verifies the marker contents during the atomic replace.
const ChecksumFunction = crypto.SHA512

// Repository defines persistence operations for the installed version.
type Repository interface {
	Load(ctx context.Context) (release.Version, error)
	Save(ctx context.Context, version release.Version) error
}

// FileRepository stores the version as text at a fixed path.
type FileRepository struct {
	// path is the filesystem location of the marker.
	path string
	// mu serializes access to the marker within the process.
	mu sync.Mutex
}

var (
	// ErrNotFound is returned when no marker has been written yet.
	ErrNotFound = errors.New("installed version marker not found")

	// ErrMalformed is returned when the marker does not hold a release version.
	ErrMalformed = errors.New("installed version marker is malformed")

	errZeroVersion = errors.New("refusing to record an empty version")
)

// NewFileRepository creates a repository for the marker at path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{
		path: filepath.Clean(path),
	}
}

// Load reads the installed version.
func (r *FileRepository) Load(_ context.Context) (release.Version, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	contents, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return release.Version{}, ErrNotFound
		}

		return release.Version{}, fmt.Errorf("read marker: %w", err)
	}

	version, err := release.ParseVersion(strings.TrimSpace(string(contents)))
	if err != nil {
		return release.Version{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	return version, nil
}

// Save atomically replaces the marker with version.
func (r *FileRepository) Save(_ context.Context, version release.Version) error {
	if version.IsZero() {
		return errZeroVersion
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(r.path), config.DefaultDirPermissions); err != nil {
		return fmt.Errorf("create marker directory: %w", err)
	}

	// The replace renames the current file aside, so one must exist.
	placeholder := false

	if _, err := os.Stat(r.path); errors.Is(err, os.ErrNotExist) {
		f, createErr := os.Create(r.path)
		if createErr != nil {
			return fmt.Errorf("create marker: %w", createErr)
		}

		placeholder = true

		if createErr = f.Close(); createErr != nil {
			_ = os.Remove(r.path)
			return fmt.Errorf("create marker: %w", createErr)
		}
	}

	data := []byte(version.String() + "\n")

	hash := ChecksumFunction.New()
	_, _ = hash.Write(data)

	options := goupdate.Options{
		TargetPath: r.path,
		TargetMode: config.DefaultFilePermissions,
		Checksum:   hash.Sum(nil),
		Hash:       ChecksumFunction,
	}

	if err := goupdate.Apply(bytes.NewReader(data), options); err != nil {
		// An empty marker would read back as malformed, not as absent.
		if placeholder {
			_ = os.Remove(r.path)
		}

		return fmt.Errorf("write marker: %w", err)
	}

	dir, name := filepath.Split(r.path)
	for _, leftover := range []string{name + ".old", "." + name + ".old"} {
		_ = os.Remove(filepath.Join(dir, leftover))
	}

	return nil
}
