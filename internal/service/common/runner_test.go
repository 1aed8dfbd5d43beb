//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestExecRunner runs real processes through the shell.
func TestExecRunner(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer

	runner := &ExecRunner{stdout: &stdout, stderr: &stderr}
	dir := t.TempDir()

	err := runner.Run(context.Background(), Command{
		Name:  "sh",
		Args:  []string{"-c", "pwd; cat"},
		Dir:   dir,
		Stdin: strings.NewReader("answer\n"),
	})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	require.Len(t, lines, 2)

	want, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)

	got, err := filepath.EvalSymlinks(lines[0])
	require.NoError(t, err)
	require.Equal(t, want, got)
	require.Equal(t, "answer", lines[1])

	err = runner.Run(context.Background(), Command{Name: "sh", Args: []string{"-c", "exit 3"}})
	require.ErrorContains(t, err, "sh -c exit 3")
}

// TestHasTool checks PATH lookups.
func TestHasTool(t *testing.T) {
	t.Parallel()

	runner := NewExecRunner()
	require.True(t, HasTool(runner, "sh"))
	require.False(t, HasTool(runner, "definitely-not-a-real-tool-4711"))
}
