// Package minutes holds the structured form of a minutes document ("ata")
// and converts it to and from the canonical markdown-flavored draft text.
package minutes

// Header carries the free-form fields at the top of a minutes document.
// Empty values mean "not yet known".
type Header struct {
	Title        string `json:"title"`
	MeetingDate  string `json:"meetingDate"`
	Time         string `json:"time"`
	Location     string `json:"location"`
	Participants string `json:"participants"`
}

// AgendaItem is one discussion topic. Number is 1-based and always equals the
// item's position in Document.AgendaItems.
type AgendaItem struct {
	Number       int    `json:"number"`
	Title        string `json:"title"`
	Body         string `json:"body"`
	Deliberation string `json:"deliberation"`
}

// Document is the Section Model of one minutes document. It is owned by a
// single editor and is not safe for concurrent mutation.
type Document struct {
	Header         Header       `json:"header"`
	AgendaItems    []AgendaItem `json:"agendaItems"`
	GeneralMatters string       `json:"generalMatters"`
	Closing        string       `json:"closing"`
}

// New returns an empty document.
func New() *Document {
	return &Document{AgendaItems: []AgendaItem{}}
}

func (d *Document) SetTitle(value string)          { d.Header.Title = value }
func (d *Document) SetMeetingDate(value string)    { d.Header.MeetingDate = value }
func (d *Document) SetTime(value string)           { d.Header.Time = value }
func (d *Document) SetLocation(value string)       { d.Header.Location = value }
func (d *Document) SetParticipants(value string)   { d.Header.Participants = value }
func (d *Document) SetGeneralMatters(value string) { d.GeneralMatters = value }
func (d *Document) SetClosing(value string)        { d.Closing = value }

// AddAgendaItem appends an item at the end and returns it with its number set.
func (d *Document) AddAgendaItem(title, body, deliberation string) AgendaItem {
	item := AgendaItem{
		Number:       len(d.AgendaItems) + 1,
		Title:        title,
		Body:         body,
		Deliberation: deliberation,
	}
	d.AgendaItems = append(d.AgendaItems, item)
	return item
}

// RemoveAgendaItem deletes the item at index and renumbers the rest.
// An index out of range leaves the document untouched and reports false.
func (d *Document) RemoveAgendaItem(index int) bool {
	if index < 0 || index >= len(d.AgendaItems) {
		return false
	}
	d.AgendaItems = append(d.AgendaItems[:index], d.AgendaItems[index+1:]...)
	d.Renumber()
	return true
}

// UpdateAgendaItem replaces the text fields of the item at index.
func (d *Document) UpdateAgendaItem(index int, title, body, deliberation string) bool {
	if index < 0 || index >= len(d.AgendaItems) {
		return false
	}
	item := &d.AgendaItems[index]
	item.Title = title
	item.Body = body
	item.Deliberation = deliberation
	return true
}

// MoveAgendaItem moves the item at from to position to and renumbers.
func (d *Document) MoveAgendaItem(from, to int) bool {
	n := len(d.AgendaItems)
	if from < 0 || from >= n || to < 0 || to >= n {
		return false
	}
	if from == to {
		return true
	}
	item := d.AgendaItems[from]
	items := append(d.AgendaItems[:from:from], d.AgendaItems[from+1:]...)
	items = append(items[:to], append([]AgendaItem{item}, items[to:]...)...)
	d.AgendaItems = items
	d.Renumber()
	return true
}

// Renumber restores Number == index+1 for every item.
func (d *Document) Renumber() {
	for i := range d.AgendaItems {
		d.AgendaItems[i].Number = i + 1
	}
}

// Clone returns a deep copy.
func (d Document) Clone() Document {
	out := d
	out.AgendaItems = make([]AgendaItem, len(d.AgendaItems))
	copy(out.AgendaItems, d.AgendaItems)
	return out
}
