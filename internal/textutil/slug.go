package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold decomposes text (NFKD) and strips combining marks so accented Latin
// letters reduce to their ASCII base ("Café" becomes "Cafe").
func Fold(text string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, text)
	if err != nil {
		return text
	}
	return folded
}

// Slugify lowercases the folded text and replaces every run of characters
// outside [a-z0-9] with a single hyphen. Leading and trailing hyphens are
// dropped. When the slug exceeds maxLen it is cut back to the last hyphen
// inside the limit so words are not split; a single word longer than maxLen is
// cut hard. A non-positive maxLen disables truncation. The result is empty when
// the text has no ASCII letters or digits after folding.
func Slugify(text string, maxLen int) string {
	lowered := strings.ToLower(Fold(text))
	var b strings.Builder
	b.Grow(len(lowered))
	pendingHyphen := false
	for _, r := range lowered {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
			continue
		}
		pendingHyphen = true
	}
	return truncateSlug(b.String(), maxLen)
}

func truncateSlug(slug string, maxLen int) string {
	if maxLen <= 0 || len(slug) <= maxLen {
		return slug
	}
	if slug[maxLen] == '-' {
		return strings.TrimRight(slug[:maxLen], "-")
	}
	cut := slug[:maxLen]
	if idx := strings.LastIndexByte(cut, '-'); idx > 0 {
		cut = cut[:idx]
	}
	return strings.TrimRight(cut, "-")
}

// HasLetterOrDigit reports whether text contains any Unicode letter or digit.
func HasLetterOrDigit(text string) bool {
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
