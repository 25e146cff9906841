// Package gitignore manages the stable wald-managed block inside a
// .gitignore file — used both at the workspace root (C10) and inside
// each baum container (C5). The block is bracketed by "# wald:start"
// and "# wald:end" markers; EnsureBlock replaces the span between them
// (or appends a new block if absent) so repeated calls are idempotent:
// exactly one block survives no matter how many times it is rewritten
// (§8 property 4, the "idempotent init" test).
package gitignore

import (
	"os"
	"strings"
)

const (
	startMarker = "# wald:start"
	endMarker   = "# wald:end"
)

// EnsureBlock rewrites the wald-managed block in the .gitignore file at
// path so it contains exactly lines, creating the file if necessary.
// Content outside the markers is preserved verbatim.
func EnsureBlock(path string, lines []string) error {
	existing, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}

	before, after, _ := splitBlock(string(existing))

	var b strings.Builder
	b.WriteString(before)
	if before != "" && !strings.HasSuffix(before, "\n") {
		b.WriteString("\n")
	}
	b.WriteString(startMarker + "\n")
	for _, line := range lines {
		b.WriteString(line + "\n")
	}
	b.WriteString(endMarker + "\n")
	b.WriteString(after)

	return os.WriteFile(path, []byte(b.String()), 0o644)
}

// splitBlock locates the wald-managed blocks in content and returns
// the text before the first one and the text outside any block
// (markers excluded), plus whether a block was found at all. If a
// file somehow accumulated more than one block, every one of them is
// consumed, so the next EnsureBlock collapses them back to a single
// block.
func splitBlock(content string) (before, after string, found bool) {
	lines := strings.Split(content, "\n")
	var beforeLines, afterLines []string
	state := 0 // 0 = before, 1 = inside block, 2 = after
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == startMarker:
			found = true
			state = 1
			continue
		case trimmed == endMarker && state == 1:
			state = 2
			continue
		case state == 0:
			beforeLines = append(beforeLines, line)
		case state == 1:
			// inside a block being replaced — discard.
		default:
			afterLines = append(afterLines, line)
		}
	}
	if state != 2 {
		// No block found (state stayed 0), or an unterminated block
		// (state stuck at 1): treat everything collected so far as
		// "before" and leave "after" empty, same as the no-block case.
		if state == 1 {
			beforeLines = append(beforeLines, afterLines...)
		}
		afterLines = nil
	}
	before = strings.Join(trimTrailingEmpty(beforeLines), "\n")
	after = strings.Join(afterLines, "\n")
	return before, after, found
}

func trimTrailingEmpty(lines []string) []string {
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// HasBlock reports whether the .gitignore file at path already
// contains a wald-managed block.
func HasBlock(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	_, _, found := splitBlock(string(data))
	return found
}
