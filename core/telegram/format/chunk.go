package format

import (
	"strings"
	"unicode/utf8"
)

// MaxMessageLength is Telegram's limit for a single text message, in characters.
const MaxMessageLength = 4096

// SplitMessage breaks text on line boundaries so every chunk stays within max
// characters. A single line longer than max is cut hard.
func SplitMessage(text string, max int) []string {
	if max <= 0 {
		max = MaxMessageLength
	}
	if utf8.RuneCountInString(text) <= max {
		return []string{text}
	}
	lines := strings.SplitAfter(text, "\n")
	return Paginate("", lines, max)
}

// Paginate packs header followed by entries into chunks of at most max
// characters. Entries are never split across chunks unless a single entry is
// itself longer than max. The header only opens the first chunk.
func Paginate(header string, entries []string, max int) []string {
	if max <= 0 {
		max = MaxMessageLength
	}
	var (
		out  []string
		cur  strings.Builder
		size int
	)
	flush := func() {
		if size > 0 {
			out = append(out, cur.String())
		}
		cur.Reset()
		size = 0
	}
	if header != "" {
		cur.WriteString(header)
		size = utf8.RuneCountInString(header)
	}
	for _, entry := range entries {
		n := utf8.RuneCountInString(entry)
		if size+n > max {
			flush()
		}
		for n > max {
			r := []rune(entry)
			out = append(out, string(r[:max]))
			entry = string(r[max:])
			n -= max
		}
		cur.WriteString(entry)
		size += n
	}
	flush()
	return out
}
