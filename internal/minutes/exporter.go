package minutes

import (
	"strconv"
	"strings"
)

const (
	generalMattersHeading = "ASSUNTOS GERAIS"
	deliberationPrefix    = "Deliberação: "
	closingSeparator      = "---"
)

// Export renders the document as canonical draft text. The output is stable
// under Import: title, agenda items, general matters and closing survive a
// round trip as long as free text does not contain importer keywords.
func Export(doc Document) string {
	var b strings.Builder

	title := strings.TrimSpace(doc.Header.Title)
	if title == "" {
		b.WriteString("#\n")
	} else {
		b.WriteString("# " + title + "\n")
	}

	dateTime := strings.TrimSpace(strings.Join(nonBlank(doc.Header.MeetingDate, doc.Header.Time), " "))
	writeParagraph(&b, dateTime)
	writeParagraph(&b, doc.Header.Location)
	writeParagraph(&b, doc.Header.Participants)

	for i, item := range doc.AgendaItems {
		b.WriteString("\n## PAUTA " + strconv.Itoa(i+1) + ": " + strings.TrimSpace(item.Title) + "\n")
		writeParagraph(&b, item.Body)
		if deliberation := labelLines(item.Deliberation); deliberation != "" {
			writeParagraph(&b, deliberation)
		}
	}

	if strings.TrimSpace(doc.GeneralMatters) != "" {
		b.WriteString("\n## " + generalMattersHeading + "\n")
		writeParagraph(&b, doc.GeneralMatters)
	}

	if strings.TrimSpace(doc.Closing) != "" {
		b.WriteString("\n" + closingSeparator + "\n")
		writeParagraph(&b, doc.Closing)
	}

	return b.String()
}

func writeParagraph(b *strings.Builder, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	b.WriteString("\n" + text + "\n")
}

// labelLines prefixes every non-blank line with the deliberation label.
func labelLines(text string) string {
	var lines []string
	for _, l := range strings.Split(text, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, deliberationPrefix+l)
		}
	}
	return strings.Join(lines, "\n")
}

func nonBlank(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
