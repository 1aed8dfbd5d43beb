package resolver

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/lumen-provision/internal/config"
	"github.com/oshokin/lumen-provision/internal/domain/release"
	"github.com/oshokin/lumen-provision/internal/service/common"
)

var _ Getter = (*common.Client)(nil)

func listingPage(files ...string) string {
	var b strings.Builder

	b.WriteString("<html><body><pre>\n")

	for _, f := range files {
		fmt.Fprintf(&b, "<a href=\"%s\">%s</a>  12-Mar-2024 10:00  98M\n", f, f)
	}

	b.WriteString("</pre></body></html>\n")

	return b.String()
}

func newResolver(t *testing.T, handler http.Handler) *Resolver {
	t.Helper()

	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	cfg := config.Default()
	cfg.BaseURL = ts.URL + "/linux/beta/"

	r, err := New(cfg, common.NewClient())
	require.NoError(t, err)

	return r
}

// TestResolvePicksNumericMaximum ensures lexical order is never used.
func TestResolvePicksNumericMaximum(t *testing.T) {
	t.Parallel()

	page := listingPage(
		"Lumen-Beta-2024.999.9.999.deb",
		"Lumen-Beta-2024.1400.0.911.deb",
		"Lumen-Beta-2024.1400.0.99.deb",
		"Lumen-Beta-2023.2000.0.1.deb",
	)

	r := newResolver(t, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Path != "/linux/beta/" {
			http.NotFound(w, req)
			return
		}

		_, _ = w.Write([]byte(page))
	}))

	got := r.Resolve(context.Background())
	require.Equal(t, "Lumen-Beta-2024.1400.0.911.deb", got.Filename)
	require.Equal(t, "2024.1400.0.911", got.Version.String())
}

// TestResolveNoMatchesUsesFallback returns the fixed filename.
func TestResolveNoMatchesUsesFallback(t *testing.T) {
	t.Parallel()

	r := newResolver(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(listingPage("Other-Beta-1.2.3.4.deb", "README.txt")))
	}))

	got := r.Resolve(context.Background())
	require.Equal(t, config.DefaultFallbackFilename, got.Filename)
	require.False(t, got.Version.IsZero())
}

// TestResolveFetchFailureUsesFallback covers error statuses.
func TestResolveFetchFailureUsesFallback(t *testing.T) {
	t.Parallel()

	r := newResolver(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	got := r.Resolve(context.Background())
	require.Equal(t, config.DefaultFallbackFilename, got.Filename)
	require.Equal(t, "2024.1400.0.911", got.Version.String())
}

// TestResolveUnreachableUsesFallback covers network errors.
func TestResolveUnreachableUsesFallback(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.NotFoundHandler())
	ts.Close()

	cfg := config.Default()
	cfg.BaseURL = ts.URL + "/"

	r, err := New(cfg, common.NewClient())
	require.NoError(t, err)

	got := r.Resolve(context.Background())
	require.Equal(t, config.DefaultFallbackFilename, got.Filename)
}

// TestNewRejectsBadFallback guards the fallback invariant.
func TestNewRejectsBadFallback(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.FallbackFilename = "Lumen-latest.deb"

	_, err := New(cfg, common.NewClient())
	require.Error(t, err)
}

// TestSelectOrdering checks every pair against numeric ordering.
func TestSelectOrdering(t *testing.T) {
	t.Parallel()

	versions := []string{"1.2.3.4", "1.10.0.0", "1.9.99.99", "10.0.0.0", "9.99.99.99", "1.2.3.40"}
	pattern := release.NewPattern("Lumen", "deb")

	for _, a := range versions {
		for _, b := range versions {
			text := "Lumen-Beta-" + a + ".deb Lumen-Beta-" + b + ".deb"

			got, ok := Select(pattern, text)
			require.True(t, ok)

			want := release.MustParseVersion(a)
			if release.MustParseVersion(b).Compare(want) > 0 {
				want = release.MustParseVersion(b)
			}

			require.True(t, want.Equal(got.Version), "%s vs %s", a, b)
		}
	}

	_, ok := Select(pattern, "")
	require.False(t, ok)
}
