package search

import (
	"context"

	"go.uber.org/zap"
)

// Engine is the Meilisearch side of the facade.
type Engine interface {
	Searcher
	Healthy() bool
	IndexMinutes(records ...MinutesRecord) error
	IndexAgenda(records ...AgendaRecord) error
	DeleteMinutes(id string) error
	DeleteAgenda(id string) error
}

// Service is the facade that tries Meilisearch first and falls back to
// Postgres.
type Service struct {
	engine   Engine
	fallback Searcher
	logger   *zap.Logger
}

// NewService creates a search service. engine may be nil if Meilisearch is
// not configured.
func NewService(engine Engine, fallback Searcher, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{engine: engine, fallback: fallback, logger: logger.Named("search")}
}

func (s *Service) engineUp() bool {
	return s.engine != nil && s.engine.Healthy()
}

func (s *Service) Search(ctx context.Context, q Query) Response {
	q = normalizeQuery(q)
	if s.engineUp() {
		results, total, err := s.engine.Search(ctx, q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text, Engine: "meilisearch"}
		}
		s.logger.Warn("meilisearch error, falling back to postgres", zap.Error(err))
	}

	if s.fallback == nil {
		return Response{Results: []Result{}, Query: q.Text, Engine: "none"}
	}
	results, total, err := s.fallback.Search(ctx, q)
	if err != nil {
		s.logger.Error("postgres search", zap.Error(err))
		return Response{Results: []Result{}, Query: q.Text, Engine: "postgres"}
	}
	return Response{Results: nonNil(results), Total: total, Query: q.Text, Engine: "postgres"}
}

// IndexMinutes pushes a record to Meilisearch without waiting.
func (s *Service) IndexMinutes(record MinutesRecord) {
	s.async("index minutes", record.ID, func() error { return s.engine.IndexMinutes(record) })
}

func (s *Service) IndexAgenda(record AgendaRecord) {
	s.async("index agenda", record.ID, func() error { return s.engine.IndexAgenda(record) })
}

func (s *Service) DeleteMinutes(id string) {
	s.async("delete minutes", id, func() error { return s.engine.DeleteMinutes(id) })
}

func (s *Service) DeleteAgenda(id string) {
	s.async("delete agenda", id, func() error { return s.engine.DeleteAgenda(id) })
}

func (s *Service) async(op, id string, fn func() error) {
	if !s.engineUp() {
		return
	}
	go func() {
		if err := fn(); err != nil {
			s.logger.Warn(op, zap.String("id", id), zap.Error(err))
		}
	}()
}

// Reindex pushes every given record synchronously. Used by atactl and on
// startup when the indexes are empty.
func (s *Service) Reindex(minutes []MinutesRecord, agenda []AgendaRecord) error {
	if !s.engineUp() {
		return nil
	}
	if err := s.engine.IndexMinutes(minutes...); err != nil {
		return err
	}
	return s.engine.IndexAgenda(agenda...)
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}
