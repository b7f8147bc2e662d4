package summarizer

import (
	"strings"
)

// FormatSummary keeps list items tight and separates plain paragraphs with a
// blank line. Line content is never changed.
func FormatSummary(summary string) string {
	lines := strings.Split(summary, "\n")

	var b strings.Builder
	b.Grow(len(summary) + len(lines))

	for _, line := range lines {
		b.WriteString(line)

		if IsBullet(line) || IsNumbered(line) {
			b.WriteString("\n")
		} else {
			b.WriteString("\n\n")
		}
	}

	return b.String()
}

// IsBullet reports whether the line is a bullet point.
func IsBullet(line string) bool {
	trimmed := strings.TrimSpace(line)

	return strings.HasPrefix(trimmed, "•") ||
		strings.HasPrefix(trimmed, "- ") ||
		strings.HasPrefix(trimmed, "* ")
}

// IsNumbered reports whether the line starts with "<digits>.".
func IsNumbered(line string) bool {
	trimmed := strings.TrimSpace(line)

	digits := 0
	for digits < len(trimmed) && trimmed[digits] >= '0' && trimmed[digits] <= '9' {
		digits++
	}

	return digits > 0 && digits < len(trimmed) && trimmed[digits] == '.'
}
