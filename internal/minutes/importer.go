package minutes

import (
	"regexp"
	"strconv"
	"strings"
)

type section int

const (
	sectionHeader section = iota
	sectionAgendaItem
	sectionGeneralMatters
	sectionClosing
)

// headerScanLimit is the number of leading lines that may populate header fields.
const headerScanLimit = 10

var (
	agendaHeadingPattern  = regexp.MustCompile(`(?i)^PAUTA\s+(\d+)\s*[:\-]\s*(.*)$`)
	generalMattersPattern = regexp.MustCompile(`(?i)assuntos?\s+gera(?:is|l)`)
	closingPattern        = regexp.MustCompile(`(?i)nada mais havendo|lavrei a presente ata`)
	thematicBreakPattern  = regexp.MustCompile(`^(?:-{3,}|\*{3,}|_{3,})$`)
	deliberationLabel     = regexp.MustCompile(`(?i)^(?:\*\*\s*deliberação\s*:\s*\*\*|deliberação\s*:)\s*`)
)

// ImportReport describes how the importer classified its input.
type ImportReport struct {
	Lines int `json:"lines"`
	// Unclassified counts non-blank lines that no rule stored anywhere.
	Unclassified int `json:"unclassified"`
}

type parserState struct {
	doc       Document
	section   section
	current   *AgendaItem
	titleSeen bool
	index     int
	discarded int
}

// line is one input line with its trimmed form precomputed.
type line struct {
	raw     string
	trimmed string
}

type rule struct {
	name  string
	match func(st parserState, l line) bool
	apply func(st parserState, l line) parserState
}

// rules are evaluated top to bottom; the first match wins. Lines that match
// no rule fall through to appendContent.
var rules = []rule{
	{
		name: "title",
		match: func(_ parserState, l line) bool {
			return strings.HasPrefix(l.trimmed, "# ATA DA") || strings.HasPrefix(l.trimmed, "ATA DA")
		},
		apply: enterTitle,
	},
	{
		name: "agenda-item",
		match: func(_ parserState, l line) bool {
			return agendaHeadingPattern.MatchString(stripHeadingMarker(l.trimmed))
		},
		apply: func(st parserState, l line) parserState {
			st = closeItem(st)
			match := agendaHeadingPattern.FindStringSubmatch(stripHeadingMarker(l.trimmed))
			number, err := strconv.Atoi(match[1])
			if err != nil || number <= 0 {
				number = len(st.doc.AgendaItems) + 1
			}
			st.current = &AgendaItem{Number: number, Title: strings.TrimSpace(match[2])}
			st.section = sectionAgendaItem
			return st
		},
	},
	{
		name: "general-matters",
		match: func(_ parserState, l line) bool {
			return generalMattersPattern.MatchString(l.trimmed)
		},
		apply: func(st parserState, _ line) parserState {
			st = closeItem(st)
			st.section = sectionGeneralMatters
			return st
		},
	},
	{
		name: "closing-formula",
		match: func(_ parserState, l line) bool {
			return closingPattern.MatchString(l.trimmed)
		},
		apply: func(st parserState, l line) parserState {
			st = closeItem(st)
			st.section = sectionClosing
			st.doc.Closing += l.raw + "\n"
			return st
		},
	},
	{
		name: "closing-separator",
		match: func(_ parserState, l line) bool {
			return thematicBreakPattern.MatchString(l.trimmed)
		},
		apply: func(st parserState, _ line) parserState {
			st = closeItem(st)
			st.section = sectionClosing
			return st
		},
	},
	// Any other level-one heading is the title while none has been seen.
	{
		name: "heading-title",
		match: func(st parserState, l line) bool {
			return st.section == sectionHeader && !st.titleSeen &&
				(l.trimmed == "#" || strings.HasPrefix(l.trimmed, "# "))
		},
		apply: enterTitle,
	},
}

// Import partitions a free-text draft into a Document. It never fails:
// unexpected input yields a best-effort, possibly incomplete, document.
func Import(text string) Document {
	doc, _ := ImportWithReport(text)
	return doc
}

// ImportWithReport is Import plus counters describing the classification.
func ImportWithReport(text string) (Document, ImportReport) {
	lines := strings.Split(text, "\n")
	st := parserState{doc: Document{AgendaItems: []AgendaItem{}}, section: sectionHeader}
	for i, raw := range lines {
		st.index = i
		raw = strings.TrimRight(raw, "\r")
		st = step(st, line{raw: raw, trimmed: strings.TrimSpace(raw)})
	}
	st = closeItem(st)
	st.doc.Renumber()

	return st.doc, ImportReport{Lines: len(lines), Unclassified: st.discarded}
}

func step(st parserState, l line) parserState {
	for _, r := range rules {
		if r.match(st, l) {
			return r.apply(st, l)
		}
	}
	return appendContent(st, l)
}

func enterTitle(st parserState, l line) parserState {
	st = closeItem(st)
	st.doc.Header.Title = strings.TrimSpace(strings.TrimLeft(l.trimmed, "#"))
	st.titleSeen = true
	st.section = sectionHeader
	return st
}

func appendContent(st parserState, l line) parserState {
	switch st.section {
	case sectionGeneralMatters:
		st.doc.GeneralMatters += l.raw + "\n"
		return st
	case sectionClosing:
		st.doc.Closing += l.raw + "\n"
		return st
	}
	if l.trimmed == "" {
		return st
	}

	switch st.section {
	case sectionHeader:
		if st.index >= headerScanLimit {
			st.discarded++
			return st
		}
		matched := false
		if strings.Contains(l.trimmed, "horas") {
			st.doc.Header.Time = l.trimmed
			matched = true
		}
		if strings.Contains(l.trimmed, "reuniu-se") {
			st.doc.Header.Participants = joinLines(st.doc.Header.Participants, l.trimmed)
			matched = true
		}
		if strings.Contains(l.trimmed, "sala") {
			st.doc.Header.Location = l.trimmed
			matched = true
		}
		if !matched {
			st.discarded++
		}
	case sectionAgendaItem:
		if st.current == nil {
			st.discarded++
			return st
		}
		item := *st.current
		if strings.Contains(strings.ToLower(l.trimmed), "deliberação") {
			if text := strings.TrimSpace(deliberationLabel.ReplaceAllString(l.trimmed, "")); text != "" {
				item.Deliberation = joinLines(item.Deliberation, text)
			}
		} else {
			item.Body += l.raw + "\n"
		}
		st.current = &item
	}
	return st
}

func closeItem(st parserState) parserState {
	if st.current == nil {
		return st
	}
	items := make([]AgendaItem, len(st.doc.AgendaItems), len(st.doc.AgendaItems)+1)
	copy(items, st.doc.AgendaItems)
	st.doc.AgendaItems = append(items, *st.current)
	st.current = nil
	return st
}

func stripHeadingMarker(value string) string {
	return strings.TrimSpace(strings.TrimLeft(value, "#"))
}

func joinLines(existing, next string) string {
	if existing == "" {
		return next
	}
	return existing + "\n" + next
}
