package textutil

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Ellipsis terminates truncated bullets.
const Ellipsis = "…"

// CollapseWhitespace trims text and replaces every whitespace run (including
// newlines) with a single space.
func CollapseWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// Truncate bounds text to maxRunes runes, including the trailing ellipsis when
// the text is cut. Trailing spaces before the ellipsis are dropped.
func Truncate(text string, maxRunes int) string {
	if maxRunes <= 0 || utf8.RuneCountInString(text) <= maxRunes {
		return text
	}
	limit := maxRunes - utf8.RuneCountInString(Ellipsis)
	if limit <= 0 {
		return Ellipsis
	}
	count := 0
	for idx := range text {
		if count == limit {
			return strings.TrimRightFunc(text[:idx], unicode.IsSpace) + Ellipsis
		}
		count++
	}
	return text
}

// Sentences splits text into trimmed sentences on ., !, or ? followed by
// whitespace. Whitespace inside each sentence is collapsed and fragments
// shorter than minRunes are dropped.
func Sentences(text string, minRunes int) []string {
	collapsed := CollapseWhitespace(text)
	if collapsed == "" {
		return nil
	}
	var out []string
	start := 0
	runesSeen := []rune(collapsed)
	for i := 0; i < len(runesSeen); i++ {
		r := runesSeen[i]
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		if i+1 < len(runesSeen) && runesSeen[i+1] != ' ' {
			continue
		}
		out = appendSentence(out, string(runesSeen[start:i+1]), minRunes)
		start = i + 1
	}
	if start < len(runesSeen) {
		out = appendSentence(out, string(runesSeen[start:]), minRunes)
	}
	return out
}

func appendSentence(out []string, sentence string, minRunes int) []string {
	sentence = strings.TrimSpace(sentence)
	if sentence == "" || utf8.RuneCountInString(sentence) < minRunes {
		return out
	}
	return append(out, sentence)
}
