package markdown

import (
	"strings"
	"unicode/utf8"
)

// Taken from https://core.telegram.org/bots/api#markdownv2-style.
const mdV2SpecialChars = `._[](){}#|!+-=*~>` + "`" + `\`

func EscapeV2(input string) string {
	lookup := mdV2SpecialCharLookup()
	charsToEscape := 0

	for i := range len(input) {
		if lookup[input[i]] {
			charsToEscape++
		}
	}
	if charsToEscape == 0 {
		return input
	}

	var b strings.Builder
	b.Grow(len(input) + charsToEscape)

	for i := range len(input) {
		c := input[i]
		if lookup[c] {
			b.WriteByte('\\')
		}
		b.WriteByte(c)
	}

	return b.String()
}

// SplitEscapedV2 escapes text and cuts it into chunks of at most limit bytes.
// Chunks end on line boundaries where possible and never split an escape
// sequence or a UTF-8 character.
func SplitEscapedV2(text string, limit int) []string {
	return SplitV2(text, limit, EscapeV2)
}

// SplitV2 is SplitEscapedV2 with a custom per-line renderer. A line too long
// for one chunk is only escaped, so that cutting it cannot break an entity.
func SplitV2(text string, limit int, render func(line string) string) []string {
	var chunks []string
	var current strings.Builder

	flush := func() {
		if chunk := strings.TrimRight(current.String(), "\n"); strings.TrimSpace(chunk) != "" {
			chunks = append(chunks, chunk)
		}
		current.Reset()
	}

	for _, line := range strings.SplitAfter(text, "\n") {
		rendered := render(line)

		if current.Len()+len(rendered) <= limit {
			current.WriteString(rendered)
			continue
		}

		flush()

		if len(rendered) > limit {
			rendered = EscapeV2(line)
		}

		for len(rendered) > limit {
			cut := cutPoint(rendered, limit)
			chunks = append(chunks, rendered[:cut])
			rendered = rendered[cut:]
		}

		current.WriteString(rendered)
	}

	flush()

	return chunks
}

// RenderV2 converts one line of model output to MarkdownV2. Headings and
// **bold** spans become bold, "- " and "* " bullets become "• ", and all
// other text is escaped.
func RenderV2(line string) string {
	body, hasNewline := strings.CutSuffix(line, "\n")
	suffix := ""
	if hasNewline {
		suffix = "\n"
	}

	trimmed := strings.TrimSpace(body)

	if heading, ok := strings.CutPrefix(trimmed, "#"); ok {
		heading = strings.TrimSpace(strings.ReplaceAll(strings.TrimLeft(heading, "#"), "**", ""))
		if heading == "" {
			return suffix
		}

		return "*" + EscapeV2(heading) + "*" + suffix
	}

	for _, marker := range []string{"- ", "* "} {
		if rest, ok := strings.CutPrefix(trimmed, marker); ok {
			body = "• " + strings.TrimSpace(rest)
			break
		}
	}

	parts := strings.Split(body, "**")
	if len(parts)%2 == 0 {
		return EscapeV2(strings.Join(parts, "")) + suffix
	}

	var b strings.Builder
	for i, part := range parts {
		if i%2 == 1 && part != "" {
			b.WriteString("*" + EscapeV2(part) + "*")
			continue
		}
		b.WriteString(EscapeV2(part))
	}
	b.WriteString(suffix)

	return b.String()
}

// cutPoint returns the largest index <= limit that is neither inside a UTF-8
// character nor right after an escaping backslash.
func cutPoint(s string, limit int) int {
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}

	if cut > 0 && s[cut-1] == '\\' && !escapedBackslash(s, cut-1) {
		cut--
	}

	if cut == 0 {
		return limit
	}

	return cut
}

// escapedBackslash reports whether the backslash at i is itself escaped.
func escapedBackslash(s string, i int) bool {
	n := 0
	for j := i - 1; j >= 0 && s[j] == '\\'; j-- {
		n++
	}

	return n%2 == 1
}

func mdV2SpecialCharLookup() [256]bool {
	var m [256]bool
	for _, c := range []byte(mdV2SpecialChars) {
		m[c] = true
	}
	return m
}
