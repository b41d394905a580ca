package warns

import (
	"strings"
	"unicode"
)

const (
	smartOpen  = '“'
	smartClose = '”'
)

// SplitQuotes splits text into a leading keyword and the rest. A keyword
// may be wrapped in ' " or smart quotes and may contain backslash escapes.
// Without a closing quote the text is split on the first run of whitespace.
func SplitQuotes(text string) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	open := runes[0]
	if open != '\'' && open != '"' && open != smartOpen {
		return splitOnce(text)
	}

	end := -1
	for i := 1; i < len(runes); i++ {
		if runes[i] == '\\' {
			i++
			continue
		}
		if runes[i] == open || (open == smartOpen && runes[i] == smartClose) {
			end = i
			break
		}
	}
	if end < 0 {
		return splitOnce(text)
	}

	key := removeEscapes(strings.TrimSpace(string(runes[1:end])))
	rest := strings.TrimSpace(string(runes[end+1:]))
	if key == "" {
		key = string([]rune{open, open})
	}
	out := []string{key}
	if rest != "" {
		out = append(out, rest)
	}
	return out
}

func splitOnce(text string) []string {
	text = strings.TrimLeftFunc(text, unicode.IsSpace)
	if text == "" {
		return nil
	}
	idx := strings.IndexFunc(text, unicode.IsSpace)
	if idx < 0 {
		return []string{text}
	}
	rest := strings.TrimLeftFunc(text[idx:], unicode.IsSpace)
	if rest == "" {
		return []string{text[:idx]}
	}
	return []string{text[:idx], rest}
}

func removeEscapes(text string) string {
	var b strings.Builder
	escaped := false
	for _, r := range text {
		if !escaped && r == '\\' {
			escaped = true
			continue
		}
		escaped = false
		b.WriteRune(r)
	}
	return b.String()
}
