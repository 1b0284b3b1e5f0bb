package search

import (
	"context"
	"strings"

	"atas/api/internal/store"
)

// PgStore is the part of the Postgres store used for fallback search.
type PgStore interface {
	SearchMinutes(ctx context.Context, userID, query string, limit, offset int) ([]store.Minutes, error)
	SearchAgenda(ctx context.Context, userID, query string, limit, offset int) ([]store.AgendaEntry, error)
}

// PgSearch answers queries with ILIKE matching when Meilisearch is down.
type PgSearch struct {
	store PgStore
}

func NewPgSearch(st PgStore) *PgSearch {
	return &PgSearch{store: st}
}

func (p *PgSearch) Search(ctx context.Context, q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, 0, nil
	}
	q = normalizeQuery(q)

	var results []Result
	if q.FilterType == "" || q.FilterType == ResultMinutes {
		items, err := p.store.SearchMinutes(ctx, q.UserID, q.Text, q.Limit, q.Offset)
		if err != nil {
			return nil, 0, err
		}
		for _, item := range items {
			results = append(results, Result{
				Type:    ResultMinutes,
				ID:      item.ID,
				Title:   MinutesRecordFrom(item).Title(),
				Snippet: snippet(item.Draft, q.Text),
				Status:  item.Status,
			})
		}
	}
	if q.FilterType == "" || q.FilterType == ResultAgenda {
		items, err := p.store.SearchAgenda(ctx, q.UserID, q.Text, q.Limit, q.Offset)
		if err != nil {
			return nil, 0, err
		}
		for _, item := range items {
			results = append(results, Result{
				Type:    ResultAgenda,
				ID:      item.ID,
				Title:   item.Topic,
				Snippet: snippet(item.Description, q.Text),
				Status:  item.Status,
			})
		}
	}
	return results, len(results), nil
}

// snippet returns up to 80 runes either side of the first case-insensitive
// match, or the start of the text when there is none.
func snippet(text, query string) string {
	const radius = 80
	runes := []rune(text)
	lower := []rune(strings.ToLower(text))
	needle := []rune(strings.ToLower(strings.TrimSpace(query)))

	at := indexRunes(lower, needle)
	if at < 0 {
		if len(runes) > 2*radius {
			return strings.TrimSpace(string(runes[:2*radius])) + "…"
		}
		return strings.TrimSpace(text)
	}

	start := max(at-radius, 0)
	end := min(at+len(needle)+radius, len(runes))
	out := strings.TrimSpace(string(runes[start:end]))
	if start > 0 {
		out = "…" + out
	}
	if end < len(runes) {
		out += "…"
	}
	return out
}

func indexRunes(haystack, needle []rune) int {
	if len(needle) == 0 {
		return -1
	}
outer:
	for i := 0; i+len(needle) <= len(haystack); i++ {
		for j := range needle {
			if haystack[i+j] != needle[j] {
				continue outer
			}
		}
		return i
	}
	return -1
}

// MinutesRecordFrom converts a stored record to its indexed form.
func MinutesRecordFrom(m store.Minutes) MinutesRecord {
	return MinutesRecord{
		ID:            m.ID,
		UserID:        m.UserID,
		SessionNumber: m.SessionNumber,
		SessionType:   m.SessionType,
		MeetingDate:   m.MeetingDate,
		Status:        m.Status,
		Draft:         m.Draft,
	}
}

// AgendaRecordFrom converts a stored entry to its indexed form.
func AgendaRecordFrom(a store.AgendaEntry) AgendaRecord {
	return AgendaRecord{
		ID:          a.ID,
		UserID:      a.UserID,
		Topic:       a.Topic,
		Description: a.Description,
		Status:      a.Status,
	}
}
