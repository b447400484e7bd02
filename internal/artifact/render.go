package artifact

import "strings"

func render(meta metadata, s sections) string {
	var b strings.Builder
	b.Grow(1024)

	b.WriteString("# ")
	b.WriteString(meta.title)
	b.WriteString("\n\n")

	b.WriteString("**Published:** ")
	b.WriteString(valueOr(meta.published, unknownValue))
	b.WriteString("\n\n")

	b.WriteString("**Source:** ")
	b.WriteString(link(meta.episodeURL))
	b.WriteString("\n\n")

	if meta.audioURL != "" {
		b.WriteString("**Audio:** ")
		b.WriteString(link(meta.audioURL))
		b.WriteString("\n\n")
	}

	for _, note := range s.notes {
		b.WriteString("> **Note:** ")
		b.WriteString(note)
		b.WriteString("\n\n")
	}

	writeSection(&b, "Short Summary", s.short, true)
	writeSection(&b, "Detailed Summary", s.detailed, true)
	writeSection(&b, "Key Takeaways", s.takeaways, true)
	writeSection(&b, "Action Items", s.actions, false)

	return strings.TrimRight(b.String(), "\n") + "\n"
}

func writeSection(b *strings.Builder, heading string, bullets []string, required bool) {
	if len(bullets) == 0 && !required {
		return
	}
	b.WriteString("## ")
	b.WriteString(heading)
	b.WriteString("\n\n")
	if len(bullets) == 0 {
		bullets = []string{emptySection}
	}
	for _, bullet := range bullets {
		b.WriteString("- ")
		b.WriteString(bullet)
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
}

func link(url string) string {
	if url == "" {
		return notProvided
	}
	return "[" + url + "](" + url + ")"
}
