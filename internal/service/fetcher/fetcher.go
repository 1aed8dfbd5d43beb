package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"

	"github.com/oshokin/lumen-provision/internal/config"
	"github.com/oshokin/lumen-provision/internal/logger"
)

// ErrFetch wraps every download failure. Nothing downstream can proceed
// without the package, so callers treat it as fatal.
var ErrFetch = errors.New("package fetch failed")

// Getter fetches a URL; *common.Client implements it.
type Getter interface {
	Get(ctx context.Context, rawURL string, consume func(body io.Reader, size int64) error) error
}

// Fetcher downloads the package into the scratch workspace.
type Fetcher struct {
	// client performs the download.
	client Getter
	// scratchDir is exclusively owned by the current run.
	scratchDir string
	// filename is the fixed name of the package inside scratchDir.
	filename string
}

// New creates a Fetcher for the configured workspace.
func New(cfg *config.Config, client Getter) *Fetcher {
	return &Fetcher{
		client:     client,
		scratchDir: cfg.ScratchDir,
		filename:   cfg.PackageFilename,
	}
}

// Reset removes everything left by a previous run and recreates the workspace.
func (f *Fetcher) Reset() error {
	if err := os.RemoveAll(f.scratchDir); err != nil {
		return fmt.Errorf("clear scratch directory: %w", err)
	}

	if err := os.MkdirAll(f.scratchDir, config.DefaultDirPermissions); err != nil {
		return fmt.Errorf("create scratch directory: %w", err)
	}

	return nil
}

// Fetch resets the workspace and downloads rawURL into it. It returns the
// path of the package.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	ctx = logger.WithName(ctx, "fetcher")

	if err := f.Reset(); err != nil {
		return "", fmt.Errorf("%w: %w", ErrFetch, err)
	}

	logger.InfoKV(ctx, "Downloading package", "url", rawURL)

	target := filepath.Join(f.scratchDir, f.filename)

	var written int64

	err := f.client.Get(ctx, rawURL, func(body io.Reader, size int64) error {
		if size > 0 {
			logger.DebugKV(ctx, "Download size announced", "size", humanize.IBytes(uint64(size)))
		}

		var err error

		written, err = writeAtomically(f.scratchDir, target, body)

		return err
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrFetch, err)
	}

	logger.InfoKV(ctx, "Downloaded package", "path", target, "size", humanize.IBytes(uint64(written)))

	return target, nil
}

// writeAtomically copies body into a temp file in dir and renames it to target.
func writeAtomically(dir, target string, body io.Reader) (int64, error) {
	tempFile, err := os.CreateTemp(dir, "download-*.tmp")
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}

	tempPath := tempFile.Name()

	defer func() {
		_ = tempFile.Close()
		_ = os.Remove(tempPath)
	}()

	written, err := io.Copy(tempFile, body)
	if err != nil {
		return written, fmt.Errorf("write package: %w", err)
	}

	if err = tempFile.Sync(); err != nil {
		return written, fmt.Errorf("sync package: %w", err)
	}

	if err = tempFile.Close(); err != nil {
		return written, fmt.Errorf("close package: %w", err)
	}

	if err = os.Rename(tempPath, target); err != nil {
		return written, fmt.Errorf("finalize package: %w", err)
	}

	return written, nil
}
