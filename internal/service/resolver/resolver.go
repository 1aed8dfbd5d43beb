package resolver

import (
	"context"
	"fmt"
	"io"

	"github.com/oshokin/lumen-provision/internal/config"
	"github.com/oshokin/lumen-provision/internal/domain/release"
	"github.com/oshokin/lumen-provision/internal/logger"
)

// maxListingSize caps how much of the listing page is read.
const maxListingSize = 8 << 20

// Getter fetches a URL; *common.Client implements it.
type Getter interface {
	Get(ctx context.Context, rawURL string, consume func(body io.Reader, size int64) error) error
}

// Resolver selects the release to install.
type Resolver struct {
	// client reads the listing.
	client Getter
	// baseURL is the directory listing location.
	baseURL string
	// pattern recognizes package filenames.
	pattern *release.Pattern
	// fallback is returned when the listing is unusable.
	fallback release.Descriptor
}

// New creates a Resolver from the configuration.
func New(cfg *config.Config, client Getter) (*Resolver, error) {
	pattern := release.NewPattern(cfg.Product, cfg.PackageExtension)

	fallback, err := pattern.Parse(cfg.FallbackFilename)
	if err != nil {
		return nil, fmt.Errorf("fallback filename: %w", err)
	}

	return &Resolver{
		client:   client,
		baseURL:  cfg.BaseURL,
		pattern:  pattern,
		fallback: fallback,
	}, nil
}

// Resolve returns the newest listed release, or the fallback with a warning.
// It never fails.
func (r *Resolver) Resolve(ctx context.Context) release.Descriptor {
	ctx = logger.WithName(ctx, "resolver")

	listing, err := r.listing(ctx)
	if err != nil {
		logger.WarnKV(ctx, "Unable to read the package listing, using the fallback release",
			"url", r.baseURL, "fallback", r.fallback.Filename, "error", err)

		return r.fallback
	}

	latest, ok := Select(r.pattern, listing)
	if !ok {
		logger.WarnKV(ctx, "No packages found in the listing, using the fallback release",
			"url", r.baseURL, "fallback", r.fallback.Filename)

		return r.fallback
	}

	logger.InfoKV(ctx, "Resolved latest release", "file", latest.Filename, "version", latest.Version.String())

	return latest
}

func (r *Resolver) listing(ctx context.Context) (string, error) {
	var listing []byte

	err := r.client.Get(ctx, r.baseURL, func(body io.Reader, _ int64) error {
		var err error

		listing, err = io.ReadAll(io.LimitReader(body, maxListingSize))

		return err
	})
	if err != nil {
		return "", err
	}

	return string(listing), nil
}

// Select returns the highest version among the filenames found in text,
// compared numerically segment by segment.
func Select(pattern *release.Pattern, text string) (release.Descriptor, bool) {
	var (
		latest release.Descriptor
		found  bool
	)

	for _, filename := range pattern.FindAll(text) {
		candidate, err := pattern.Parse(filename)
		if err != nil {
			continue
		}

		if !found || candidate.Version.Compare(latest.Version) > 0 {
			latest = candidate
			found = true
		}
	}

	return latest, found
}
