package probe

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// parseOSRelease reads KEY=value lines. Values follow shell quoting: single
// quotes are literal, double quotes allow the escapes os-release documents.
// Lines without a key are skipped.
func parseOSRelease(r io.Reader) (map[string]string, error) {
	fields := make(map[string]string)

	s := bufio.NewScanner(r)
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line == "" || line[0] == '#' {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		key = strings.TrimSpace(key)

		if !ok || key == "" {
			continue
		}

		fields[key] = unquote(strings.TrimSpace(value))
	}

	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("scan os-release: %w", err)
	}

	return fields, nil
}

func unquote(value string) string {
	if value == "" {
		return value
	}

	switch value[0] {
	case '\'':
		value = strings.TrimFunc(value, func(r rune) bool { return r == '\'' })
		value = strings.ReplaceAll(value, `'\''`, `'`)
	case '"':
		value = strings.TrimFunc(value, func(r rune) bool { return r == '"' })
		value = strings.NewReplacer(
			"\\`", "`",
			`\\`, `\`,
			`\"`, `"`,
			`\$`, `$`,
		).Replace(value)
	}

	return value
}
