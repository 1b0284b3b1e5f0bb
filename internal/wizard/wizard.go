// Package wizard implements the step-by-step authoring session that turns a
// list of registered agenda entries into a minutes draft without a recording.
package wizard

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEmptyExcerpt = errors.New("transcript excerpt is required")
	ErrFinalized    = errors.New("wizard session already finalized")
	ErrNotGeneral   = errors.New("current step is not the general matters step")
	ErrNotRegular   = errors.New("current step is the general matters step")
	ErrFragmentGone = errors.New("fragment index out of range")
)

// IncompleteError is returned by Finalize while regular steps are unsaved.
type IncompleteError struct {
	Count int
}

func (e *IncompleteError) Error() string {
	return fmt.Sprintf("%d agenda item(s) still incomplete", e.Count)
}

const (
	placeholderTitle       = "Conteúdo da Reunião"
	placeholderDescription = "Registre aqui o conteúdo discutido na reunião"
	generalTitle           = "Assuntos Gerais"
	generalDescription     = "Discussões e encaminhamentos diversos não previstos na pauta"
	nothingToRecord        = "Nada a registrar."
)

// AgendaEntry is a registered agenda topic offered to the wizard.
type AgendaEntry struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// RegularItem is a wizard step backed by an agenda entry or the placeholder.
type RegularItem struct {
	SourceAgendaID *string `json:"sourceAgendaId"`
	Title          string  `json:"title"`
	Description    string  `json:"description"`
	Excerpt        string  `json:"transcriptExcerpt"`
	Deliberation   string  `json:"deliberation"`
	Notes          string  `json:"notes"`
	Completed      bool    `json:"completed"`
}

// GeneralMattersItem is the final step. Fragments always holds at least one
// entry so the editor has a slot to type into.
type GeneralMattersItem struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Fragments   []string `json:"fragments"`
	FreeText    string   `json:"freeText"`
	Excerpt     string   `json:"transcriptExcerpt"`
	Completed   bool     `json:"completed"`
}

// DraftItem is the flat view of a step exposed to callers and persisted with
// the finalized minutes.
type DraftItem struct {
	SourceAgendaID       *string `json:"sourceAgendaId"`
	Title                string  `json:"title"`
	Description          string  `json:"description"`
	TranscriptExcerpt    string  `json:"transcriptExcerpt"`
	Deliberation         string  `json:"deliberation"`
	Notes                string  `json:"notes"`
	IsGeneralMattersSlot bool    `json:"isGeneralMattersSlot"`
	Completed            bool    `json:"completed"`
}

// Result is the output of a successful Finalize.
type Result struct {
	Text  string      `json:"text"`
	Items []DraftItem `json:"items"`
}

// StepUpdate carries the editable fields of a regular step. Nil fields are
// left unchanged.
type StepUpdate struct {
	Excerpt      *string `json:"transcriptExcerpt"`
	Deliberation *string `json:"deliberation"`
	Notes        *string `json:"notes"`
}

// Session is one authoring run. The step list is the regular items followed
// by exactly one general matters item; the cursor indexes into that list.
type Session struct {
	regular   []RegularItem
	general   GeneralMattersItem
	cursor    int
	finalized bool
}

// New builds a session from the registered entries. With no entries a single
// placeholder step is created so the meeting content still has a home.
func New(entries []AgendaEntry) *Session {
	s := &Session{
		general: GeneralMattersItem{
			Title:       generalTitle,
			Description: generalDescription,
			Fragments:   []string{""},
		},
	}
	for _, entry := range entries {
		id := entry.ID
		s.regular = append(s.regular, RegularItem{
			SourceAgendaID: &id,
			Title:          entry.Title,
			Description:    entry.Description,
		})
	}
	if len(s.regular) == 0 {
		s.regular = []RegularItem{{Title: placeholderTitle, Description: placeholderDescription}}
	}
	return s
}

// Len is the number of steps including the general matters step.
func (s *Session) Len() int { return len(s.regular) + 1 }

// Index is the current cursor.
func (s *Session) Index() int { return s.cursor }

func (s *Session) Finalized() bool { return s.finalized }

func (s *Session) last() int { return len(s.regular) }

func (s *Session) onGeneral() bool { return s.cursor == s.last() }

// Current returns the step under the cursor.
func (s *Session) Current() DraftItem {
	return s.item(s.cursor)
}

// Items returns every step in order.
func (s *Session) Items() []DraftItem {
	out := make([]DraftItem, 0, s.Len())
	for i := 0; i < s.Len(); i++ {
		out = append(out, s.item(i))
	}
	return out
}

// Fragments returns a copy of the general matters fragments.
func (s *Session) Fragments() []string {
	return append([]string(nil), s.general.Fragments...)
}

// FreeText returns the free-written general matters text.
func (s *Session) FreeText() string { return s.general.FreeText }

func (s *Session) item(i int) DraftItem {
	if i == s.last() {
		return DraftItem{
			Title:                s.general.Title,
			Description:          s.general.Description,
			TranscriptExcerpt:    s.general.Excerpt,
			IsGeneralMattersSlot: true,
			Completed:            s.general.Completed,
		}
	}
	r := s.regular[i]
	return DraftItem{
		SourceAgendaID:    r.SourceAgendaID,
		Title:             r.Title,
		Description:       r.Description,
		TranscriptExcerpt: r.Excerpt,
		Deliberation:      r.Deliberation,
		Notes:             r.Notes,
		Completed:         r.Completed,
	}
}

// Next moves forward one step, stopping at the last.
func (s *Session) Next() int {
	return s.JumpTo(s.cursor + 1)
}

// Previous moves back one step, stopping at the first.
func (s *Session) Previous() int {
	return s.JumpTo(s.cursor - 1)
}

// JumpTo moves the cursor to i, clamped to the valid range. Navigation never
// checks completeness.
func (s *Session) JumpTo(i int) int {
	switch {
	case i < 0:
		i = 0
	case i > s.last():
		i = s.last()
	}
	s.cursor = i
	return s.cursor
}

// UpdateStep edits the current regular step. Blanking the excerpt of a saved
// step marks it unsaved again.
func (s *Session) UpdateStep(update StepUpdate) error {
	if s.finalized {
		return ErrFinalized
	}
	if s.onGeneral() {
		return ErrNotRegular
	}
	item := &s.regular[s.cursor]
	if update.Excerpt != nil {
		item.Excerpt = *update.Excerpt
	}
	if update.Deliberation != nil {
		item.Deliberation = *update.Deliberation
	}
	if update.Notes != nil {
		item.Notes = *update.Notes
	}
	if strings.TrimSpace(item.Excerpt) == "" {
		item.Completed = false
	}
	return nil
}

// AddFragment appends an empty general matters fragment.
func (s *Session) AddFragment() error {
	if err := s.generalEditable(); err != nil {
		return err
	}
	s.general.Fragments = append(s.general.Fragments, "")
	return nil
}

// SetFragment replaces the text of fragment i.
func (s *Session) SetFragment(i int, text string) error {
	if err := s.generalEditable(); err != nil {
		return err
	}
	if i < 0 || i >= len(s.general.Fragments) {
		return ErrFragmentGone
	}
	s.general.Fragments[i] = text
	return nil
}

// RemoveFragment deletes fragment i. Removing the only fragment leaves a
// single empty one behind.
func (s *Session) RemoveFragment(i int) error {
	if err := s.generalEditable(); err != nil {
		return err
	}
	if i < 0 || i >= len(s.general.Fragments) {
		return ErrFragmentGone
	}
	fragments := append(s.general.Fragments[:i:i], s.general.Fragments[i+1:]...)
	if len(fragments) == 0 {
		fragments = []string{""}
	}
	s.general.Fragments = fragments
	return nil
}

// SetFreeText sets the free-written general matters text, which takes
// precedence over fragments on save.
func (s *Session) SetFreeText(text string) error {
	if err := s.generalEditable(); err != nil {
		return err
	}
	s.general.FreeText = text
	return nil
}

func (s *Session) generalEditable() error {
	if s.finalized {
		return ErrFinalized
	}
	if !s.onGeneral() {
		return ErrNotGeneral
	}
	return nil
}

// SaveCurrentStep commits the current step. A regular step needs a non-blank
// excerpt and advances the cursor on success; the general matters step always
// succeeds.
func (s *Session) SaveCurrentStep() error {
	if s.finalized {
		return ErrFinalized
	}
	if s.onGeneral() {
		s.general.Excerpt = s.combinedGeneral()
		s.general.Completed = true
		return nil
	}

	item := &s.regular[s.cursor]
	if strings.TrimSpace(item.Excerpt) == "" {
		return ErrEmptyExcerpt
	}
	item.Completed = true
	if s.cursor < s.last() {
		s.cursor++
	}
	return nil
}

func (s *Session) combinedGeneral() string {
	if strings.TrimSpace(s.general.FreeText) != "" {
		return s.general.FreeText
	}
	var valid []string
	for _, f := range s.general.Fragments {
		if strings.TrimSpace(f) != "" {
			valid = append(valid, f)
		}
	}
	return strings.Join(valid, "\n\n")
}

// Incomplete counts regular steps not yet saved.
func (s *Session) Incomplete() int {
	n := 0
	for _, item := range s.regular {
		if !item.Completed {
			n++
		}
	}
	return n
}

// Finalize renders the minutes text from the saved steps. It refuses with an
// *IncompleteError while any regular step is unsaved and produces nothing.
func (s *Session) Finalize(title string) (Result, error) {
	if s.finalized {
		return Result{}, ErrFinalized
	}
	if n := s.Incomplete(); n > 0 {
		return Result{}, &IncompleteError{Count: n}
	}

	var b strings.Builder
	b.WriteString(titleLine(title) + "\n\n")
	for i, item := range s.regular {
		fmt.Fprintf(&b, "\n## PAUTA %d: %s\n\n", i+1, strings.TrimSpace(item.Title))
		if desc := strings.TrimSpace(item.Description); desc != "" {
			b.WriteString("**Descrição:** " + desc + "\n\n")
		}
		b.WriteString("**Discussão:**\n" + strings.TrimSpace(item.Excerpt) + "\n\n")
		if delib := strings.TrimSpace(item.Deliberation); delib != "" {
			b.WriteString("**Deliberação:** " + delib + "\n\n")
		}
		if notes := strings.TrimSpace(item.Notes); notes != "" {
			b.WriteString("**Observações:** " + notes + "\n\n")
		}
	}

	b.WriteString("\n## ASSUNTOS GERAIS\n\n")
	if general := strings.TrimSpace(s.general.Excerpt); general != "" {
		b.WriteString(general + "\n")
	} else {
		b.WriteString(nothingToRecord + "\n")
	}

	s.finalized = true
	return Result{Text: b.String(), Items: s.Items()}, nil
}

// titleLine normalizes the session title to a top-level "ATA DA" heading so
// the importer recognizes it.
func titleLine(title string) string {
	title = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(title), "#"))
	if !strings.HasPrefix(strings.ToUpper(title), "ATA DA") {
		title = strings.TrimSpace("ATA DA " + title)
	}
	return "# " + title
}

type sessionJSON struct {
	Regular   []RegularItem      `json:"regular"`
	General   GeneralMattersItem `json:"general"`
	Cursor    int                `json:"cursor"`
	Finalized bool               `json:"finalized"`
}

func (s *Session) MarshalJSON() ([]byte, error) {
	return json.Marshal(sessionJSON{
		Regular:   s.regular,
		General:   s.general,
		Cursor:    s.cursor,
		Finalized: s.finalized,
	})
}

// UnmarshalJSON restores a stored session and repairs the structural
// invariants a hand-edited payload could break.
func (s *Session) UnmarshalJSON(data []byte) error {
	var raw sessionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw.Regular) == 0 {
		raw.Regular = []RegularItem{{Title: placeholderTitle, Description: placeholderDescription}}
	}
	if len(raw.General.Fragments) == 0 {
		raw.General.Fragments = []string{""}
	}
	s.regular = raw.Regular
	s.general = raw.General
	s.finalized = raw.Finalized
	s.JumpTo(raw.Cursor)
	return nil
}
