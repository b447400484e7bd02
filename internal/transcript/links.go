package transcript

import (
	"errors"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ErrNoTranscriptLink reports an episode page without a recognizable transcript link.
var ErrNoTranscriptLink = errors.New("no transcript link found")

// FindTranscriptURL scans an episode page for the link most likely to be its
// transcript and resolves it against base. Anchors whose text mentions a
// transcript and whose href is a document win over either signal alone.
func FindTranscriptURL(r io.Reader, base *url.URL) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", err
	}

	var high, medium, low []string
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href := strings.TrimSpace(sel.AttrOr("href", ""))
		if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(strings.ToLower(href), "mailto:") {
			return
		}
		docLike := isDocumentHref(href)
		mentions := strings.Contains(strings.ToLower(sel.Text()), "transcript") ||
			strings.Contains(strings.ToLower(href), "transcript")
		switch {
		case docLike && mentions:
			high = append(high, href)
		case docLike:
			medium = append(medium, href)
		case mentions:
			low = append(low, href)
		}
	})

	for _, group := range [][]string{high, medium, low} {
		if len(group) == 0 {
			continue
		}
		return resolve(base, group[0])
	}
	return "", ErrNoTranscriptLink
}

func isDocumentHref(href string) bool {
	p := href
	if parsed, err := url.Parse(href); err == nil {
		p = parsed.Path
	}
	switch strings.ToLower(path.Ext(p)) {
	case ".pdf", ".txt":
		return true
	default:
		return false
	}
}

func resolve(base *url.URL, href string) (string, error) {
	ref, err := url.Parse(href)
	if err != nil {
		return "", err
	}
	if base == nil {
		return ref.String(), nil
	}
	return base.ResolveReference(ref).String(), nil
}
