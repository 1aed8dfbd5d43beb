//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/lumen-provision/internal/version"
)

// TestClientGet reads the body and sends the user agent.
func TestClientGet(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.UserAgent() != version.UserAgent() {
			w.WriteHeader(http.StatusForbidden)
			return
		}

		_, _ = w.Write([]byte("listing"))
	}))
	defer ts.Close()

	var got string

	err := NewClient().Get(context.Background(), ts.URL, func(body io.Reader, _ int64) error {
		data, err := io.ReadAll(body)
		got = string(data)

		return err
	})
	require.NoError(t, err)
	require.Equal(t, "listing", got)
}

// TestClientGetBadStatus reports non-200 responses without calling consume.
func TestClientGetBadStatus(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.NotFoundHandler())
	defer ts.Close()

	called := false
	err := NewClient().Get(context.Background(), ts.URL, func(io.Reader, int64) error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, ErrBadHTTPStatus)
	require.False(t, called)
}

// TestClientGetTimeout applies the configured deadline.
func TestClientGetTimeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer ts.Close()
	defer close(release)

	err := NewClient(WithTimeout(50*time.Millisecond)).Get(context.Background(), ts.URL, func(io.Reader, int64) error {
		return nil
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
