package search

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	meili "github.com/meilisearch/meilisearch-go"
	"go.uber.org/zap"
)

const (
	idxMinutes = "atas_minutes"
	idxAgenda  = "atas_agenda"
)

// Meili implements Searcher and the indexing calls via Meilisearch.
type Meili struct {
	client  meili.ServiceManager
	logger  *zap.Logger
	healthy atomic.Bool
	done    chan struct{}
}

// NewMeili creates a Meilisearch client and configures indexes. An
// unreachable server is not an error: the health loop keeps probing.
func NewMeili(url, apiKey string, logger *zap.Logger) *Meili {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Meili{
		client: meili.New(url, meili.WithAPIKey(apiKey)),
		logger: logger.Named("search"),
		done:   make(chan struct{}),
	}

	if _, err := m.client.Health(); err != nil {
		m.logger.Warn("meilisearch unavailable", zap.String("url", url), zap.Error(err))
	} else {
		m.healthy.Store(true)
		m.configureIndexes()
	}

	go m.healthLoop()
	return m
}

func (m *Meili) configureIndexes() {
	indexes := []struct {
		uid        string
		filterable []string
		searchable []string
	}{
		{
			uid:        idxMinutes,
			filterable: []string{"userId", "status", "sessionType"},
			searchable: []string{"sessionNumber", "draft", "meetingDate"},
		},
		{
			uid:        idxAgenda,
			filterable: []string{"userId", "status"},
			searchable: []string{"topic", "description"},
		},
	}

	for _, idx := range indexes {
		if _, err := m.client.CreateIndex(&meili.IndexConfig{Uid: idx.uid, PrimaryKey: "id"}); err != nil {
			m.logger.Debug("create index", zap.String("index", idx.uid), zap.Error(err))
		}

		index := m.client.Index(idx.uid)
		filterable := make([]interface{}, len(idx.filterable))
		for i, v := range idx.filterable {
			filterable[i] = v
		}
		if _, err := index.UpdateFilterableAttributes(&filterable); err != nil {
			m.logger.Warn("update filterable attributes", zap.String("index", idx.uid), zap.Error(err))
		}
		if _, err := index.UpdateSearchableAttributes(&idx.searchable); err != nil {
			m.logger.Warn("update searchable attributes", zap.String("index", idx.uid), zap.Error(err))
		}
	}
}

func (m *Meili) healthLoop() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			_, err := m.client.Health()
			wasHealthy := m.healthy.Load()
			m.healthy.Store(err == nil)
			if err == nil && !wasHealthy {
				m.logger.Info("meilisearch recovered, reconfiguring indexes")
				m.configureIndexes()
			}
		}
	}
}

// Close stops the background health monitor.
func (m *Meili) Close() {
	close(m.done)
}

func (m *Meili) Healthy() bool {
	return m.healthy.Load()
}

func (m *Meili) Search(_ context.Context, q Query) ([]Result, int, error) {
	if !m.healthy.Load() {
		return nil, 0, fmt.Errorf("meilisearch unhealthy")
	}

	queries := buildQueries(normalizeQuery(q))
	if len(queries) == 0 {
		return nil, 0, nil
	}

	resp, err := m.client.MultiSearch(&meili.MultiSearchRequest{Queries: queries})
	if err != nil {
		m.healthy.Store(false)
		return nil, 0, fmt.Errorf("meilisearch multi-search: %w", err)
	}

	var results []Result
	total := 0
	for _, sr := range resp.Results {
		total += int(sr.EstimatedTotalHits)
		rtyp := indexToResultType(sr.IndexUID)
		for _, hit := range sr.Hits {
			results = append(results, hitToResult(hit, rtyp))
		}
	}
	return results, total, nil
}

func buildQueries(q Query) []*meili.SearchRequest {
	targets := []struct {
		uid  string
		rtyp ResultType
	}{
		{idxMinutes, ResultMinutes},
		{idxAgenda, ResultAgenda},
	}

	var queries []*meili.SearchRequest
	for _, target := range targets {
		if q.FilterType != "" && q.FilterType != target.rtyp {
			continue
		}
		queries = append(queries, &meili.SearchRequest{
			IndexUID:              target.uid,
			Query:                 q.Text,
			Limit:                 int64(q.Limit),
			Offset:                int64(q.Offset),
			Filter:                []string{fmt.Sprintf("userId = %q", q.UserID)},
			AttributesToHighlight: []string{"*"},
			AttributesToCrop:      []string{"draft", "description"},
			CropLength:            30,
			HighlightPreTag:       "<mark>",
			HighlightPostTag:      "</mark>",
		})
	}
	return queries
}

func indexToResultType(uid string) ResultType {
	switch uid {
	case idxMinutes:
		return ResultMinutes
	case idxAgenda:
		return ResultAgenda
	default:
		return ""
	}
}

func hitToResult(hit meili.Hit, rtyp ResultType) Result {
	r := Result{
		Type:   rtyp,
		ID:     decodeString(hit, "id"),
		Status: decodeString(hit, "status"),
	}

	switch rtyp {
	case ResultMinutes:
		r.Title = MinutesRecord{
			SessionNumber: decodeString(hit, "sessionNumber"),
			SessionType:   decodeString(hit, "sessionType"),
		}.Title()
		r.Snippet = firstNonBlank(decodeFormattedString(hit, "draft"), decodeString(hit, "meetingDate"))
	case ResultAgenda:
		r.Title = firstNonBlank(decodeFormattedString(hit, "topic"), decodeString(hit, "topic"))
		r.Snippet = firstNonBlank(decodeFormattedString(hit, "description"), decodeString(hit, "description"))
	}
	return r
}

func decodeString(hit meili.Hit, key string) string {
	raw, ok := hit[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return ""
}

func decodeFormattedString(hit meili.Hit, key string) string {
	raw, ok := hit["_formatted"]
	if !ok {
		return ""
	}
	var formatted map[string]any
	if err := json.Unmarshal(raw, &formatted); err != nil {
		return ""
	}
	value, _ := formatted[key].(string)
	return strings.TrimSpace(value)
}

func firstNonBlank(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}

func (m *Meili) IndexMinutes(records ...MinutesRecord) error {
	if len(records) == 0 {
		return nil
	}
	_, err := m.client.Index(idxMinutes).AddDocuments(records, nil)
	return err
}

func (m *Meili) IndexAgenda(records ...AgendaRecord) error {
	if len(records) == 0 {
		return nil
	}
	_, err := m.client.Index(idxAgenda).AddDocuments(records, nil)
	return err
}

func (m *Meili) DeleteMinutes(id string) error {
	_, err := m.client.Index(idxMinutes).DeleteDocument(id, nil)
	return err
}

func (m *Meili) DeleteAgenda(id string) error {
	_, err := m.client.Index(idxAgenda).DeleteDocument(id, nil)
	return err
}
