package release

import (
	"errors"
	"fmt"
	"strings"

	goversion "github.com/hashicorp/go-version"
)

// None is how a missing version is rendered.
const None = "none"

const segmentCount = 4

var errMalformedVersion = errors.New("malformed version")

// Version is a four-part dotted version ordered numerically segment by
// segment. The zero value means "no version".
type Version struct {
	v *goversion.Version
}

// ParseVersion parses exactly four dot-separated non-negative integers.
func ParseVersion(s string) (Version, error) {
	s = strings.TrimSpace(s)

	parts := strings.Split(s, ".")
	if len(parts) != segmentCount {
		return Version{}, fmt.Errorf("%q: want %d segments: %w", s, segmentCount, errMalformedVersion)
	}

	for _, part := range parts {
		if part == "" || strings.Trim(part, "0123456789") != "" {
			return Version{}, fmt.Errorf("%q: %w", s, errMalformedVersion)
		}
	}

	v, err := goversion.NewVersion(s)
	if err != nil {
		return Version{}, fmt.Errorf("%q: %w: %w", s, errMalformedVersion, err)
	}

	return Version{v: v}, nil
}

// MustParseVersion is ParseVersion for constants known to be valid.
func MustParseVersion(s string) Version {
	v, err := ParseVersion(s)
	if err != nil {
		panic(err)
	}

	return v
}

// IsZero reports whether v holds no version.
func (v Version) IsZero() bool {
	return v.v == nil
}

// Compare returns -1, 0 or 1. The zero Version sorts before every other one.
func (v Version) Compare(other Version) int {
	switch {
	case v.IsZero() && other.IsZero():
		return 0
	case v.IsZero():
		return -1
	case other.IsZero():
		return 1
	default:
		return v.v.Compare(other.v)
	}
}

// Equal reports whether both versions have the same segments.
func (v Version) Equal(other Version) bool {
	return v.Compare(other) == 0
}

// String renders the canonical dotted form, or None.
func (v Version) String() string {
	if v.IsZero() {
		return None
	}

	return v.v.String()
}
