// Package search indexes minutes records and agenda entries in Meilisearch
// and falls back to Postgres pattern matching when the engine is down.
package search

import "context"

// ResultType identifies the kind of entity in a search result.
type ResultType string

const (
	ResultMinutes ResultType = "minutes"
	ResultAgenda  ResultType = "agenda"
)

// Result is a single search hit returned to the caller.
type Result struct {
	Type    ResultType `json:"type"`
	ID      string     `json:"id"`
	Title   string     `json:"title"`
	Snippet string     `json:"snippet"`
	Status  string     `json:"status,omitempty"`
}

// Query describes a search request. Results are always scoped to UserID.
type Query struct {
	Text       string
	UserID     string
	FilterType ResultType // empty = all types
	Limit      int
	Offset     int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
	Engine  string   `json:"engine"`
}

// Searcher can execute a full-text search.
type Searcher interface {
	Search(ctx context.Context, q Query) ([]Result, int, error)
}

// MinutesRecord is the data we index for a minutes record.
type MinutesRecord struct {
	ID            string `json:"id"`
	UserID        string `json:"userId"`
	SessionNumber string `json:"sessionNumber"`
	SessionType   string `json:"sessionType"`
	MeetingDate   string `json:"meetingDate"`
	Status        string `json:"status"`
	Draft         string `json:"draft"`
}

// AgendaRecord is the data we index for an agenda entry.
type AgendaRecord struct {
	ID          string `json:"id"`
	UserID      string `json:"userId"`
	Topic       string `json:"topic"`
	Description string `json:"description"`
	Status      string `json:"status"`
}

// Title is how a minutes record is labelled in result lists.
func (r MinutesRecord) Title() string {
	return "Ata " + r.SessionNumber + " - Sessão " + r.SessionType
}

func normalizeQuery(q Query) Query {
	if q.Limit <= 0 || q.Limit > 100 {
		q.Limit = 20
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	return q
}
