package release

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"
)

var errFilenameMismatch = errors.New("filename does not match the package pattern")

// Descriptor is a resolved vendor package.
type Descriptor struct {
	// Filename is the package name as published on the download server.
	Filename string
	// Version is the release embedded in Filename.
	Version Version
}

// URL joins the descriptor filename onto base.
func (d Descriptor) URL(base string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse base URL: %w", err)
	}

	u.Path = path.Join(u.Path, d.Filename)

	return u.String(), nil
}

// Pattern matches `<product>-Beta-<major>.<minor>.<patch>.<build>.<ext>`.
type Pattern struct {
	search *regexp.Regexp
	exact  *regexp.Regexp
}

// NewPattern builds the filename pattern for product and extension.
func NewPattern(product, extension string) *Pattern {
	body := regexp.QuoteMeta(product) +
		`-Beta-(\d+\.\d+\.\d+\.\d+)\.` +
		regexp.QuoteMeta(strings.TrimPrefix(extension, "."))

	return &Pattern{
		search: regexp.MustCompile(body),
		exact:  regexp.MustCompile("^" + body + "$"),
	}
}

// FindAll returns every substring of text that looks like a package filename.
func (p *Pattern) FindAll(text string) []string {
	return p.search.FindAllString(text, -1)
}

// Parse turns a complete filename into a Descriptor.
func (p *Pattern) Parse(filename string) (Descriptor, error) {
	match := p.exact.FindStringSubmatch(filename)
	if match == nil {
		return Descriptor{}, fmt.Errorf("%q: %w", filename, errFilenameMismatch)
	}

	v, err := ParseVersion(match[1])
	if err != nil {
		return Descriptor{}, err
	}

	return Descriptor{Filename: filename, Version: v}, nil
}
