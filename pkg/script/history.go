package script

// History is the rolling context of a single session. Lines are append-only;
// reads return a bounded window. Not safe for concurrent use, which matches
// the single active session thread that owns it.
type History struct {
	lines []string
}

// NewHistory creates an empty history, optionally seeded with initial lines.
func NewHistory(seed ...string) *History {
	h := &History{}
	for _, line := range seed {
		h.Append(line)
	}
	return h
}

// Append adds a line to the history. Blank lines are dropped.
func (h *History) Append(line string) {
	if line == "" {
		return
	}
	h.lines = append(h.lines, line)
}

// Len returns the number of stored lines.
func (h *History) Len() int {
	return len(h.lines)
}

// RecentWindow returns the last n lines, oldest-first. When fewer than n
// lines exist, all of them are returned. The returned slice is a copy.
func (h *History) RecentWindow(n int) []string {
	if n <= 0 || len(h.lines) == 0 {
		return nil
	}
	start := 0
	if len(h.lines) > n {
		start = len(h.lines) - n
	}
	window := make([]string, len(h.lines)-start)
	copy(window, h.lines[start:])
	return window
}
