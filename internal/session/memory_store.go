package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"atas/api/internal/wizard"
)

// MemoryStore keeps refresh tokens and wizard sessions in process memory.
// It serves single-instance deployments and tests that run without Redis;
// everything is lost on restart.
type MemoryStore struct {
	cache *gocache.Cache
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{cache: gocache.New(gocache.NoExpiration, 10*time.Minute)}
}

func (s *MemoryStore) SaveRefreshSession(_ context.Context, tokenHash, userID string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	s.cache.Set("refresh:"+tokenHash, userID, ttl)
	return nil
}

func (s *MemoryStore) LookupRefreshSession(_ context.Context, tokenHash string) (string, error) {
	value, ok := s.cache.Get("refresh:" + tokenHash)
	if !ok {
		return "", ErrNotFound
	}
	return value.(string), nil
}

func (s *MemoryStore) RevokeRefreshSession(_ context.Context, tokenHash string) error {
	s.cache.Delete("refresh:" + tokenHash)
	return nil
}

// SaveWizard stores a serialized copy so later edits to session do not leak
// into the stored state.
func (s *MemoryStore) SaveWizard(_ context.Context, minutesID string, session *wizard.Session, ttl time.Duration) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal wizard session: %w", err)
	}
	s.cache.Set("wizard:"+minutesID, data, ttl)
	return nil
}

func (s *MemoryStore) LoadWizard(_ context.Context, minutesID string) (*wizard.Session, error) {
	value, ok := s.cache.Get("wizard:" + minutesID)
	if !ok {
		return nil, ErrNotFound
	}
	session := &wizard.Session{}
	if err := json.Unmarshal(value.([]byte), session); err != nil {
		return nil, fmt.Errorf("unmarshal wizard session: %w", err)
	}
	return session, nil
}

func (s *MemoryStore) DeleteWizard(_ context.Context, minutesID string) error {
	s.cache.Delete("wizard:" + minutesID)
	return nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }
