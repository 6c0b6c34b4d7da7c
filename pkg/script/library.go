package script

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// Library holds reference script lines loaded at startup. A new session's
// context is seeded with the lines most relevant to its characters.
type Library struct {
	lines []string
}

// NewLibrary creates a library from in-memory lines.
func NewLibrary(lines []string) *Library {
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			kept = append(kept, line)
		}
	}
	return &Library{lines: kept}
}

// LoadLibrary reads script lines from the given files. Missing files are
// tolerated; the library simply has less context to draw from.
func LoadLibrary(paths ...string) (*Library, error) {
	var lines []string
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("failed to open script file %s: %w", path, err)
		}

		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line != "" {
				lines = append(lines, line)
			}
		}
		err = scanner.Err()
		_ = f.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read script file %s: %w", path, err)
		}
	}
	return &Library{lines: lines}, nil
}

// Len returns the number of loaded lines.
func (l *Library) Len() int {
	return len(l.lines)
}

// Relevant returns the last n script lines spoken by any of the given
// characters. A line counts as spoken when it starts with "NAME:" in any
// case. With no characters or no matches, the result is empty.
func (l *Library) Relevant(characters []string, n int) []string {
	if len(characters) == 0 || n <= 0 {
		return nil
	}

	quoted := make([]string, 0, len(characters))
	for _, c := range characters {
		c = strings.TrimSpace(c)
		if c != "" {
			quoted = append(quoted, regexp.QuoteMeta(c))
		}
	}
	if len(quoted) == 0 {
		return nil
	}

	re, err := regexp.Compile(`(?i)^(` + strings.Join(quoted, "|") + `):`)
	if err != nil {
		return nil
	}

	var matches []string
	for _, line := range l.lines {
		if re.MatchString(line) {
			matches = append(matches, line)
		}
	}

	if len(matches) > n {
		matches = matches[len(matches)-n:]
	}
	return matches
}
