// Package session keeps short-lived user state in Redis: refresh tokens and
// in-progress wizard sessions.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"atas/api/internal/wizard"
)

// ErrNotFound is returned when a key is missing or expired.
var ErrNotFound = errors.New("session not found or expired")

// TokenData holds the data stored for each refresh token
type TokenData struct {
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// RedisStore implements refresh token and wizard storage using Redis
type RedisStore struct {
	client       *redis.Client
	prefix       string
	wizardPrefix string
}

// NewRedisStore creates a new Redis-backed session store
func NewRedisStore(redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewRedisStoreWithClient(client), nil
}

// NewRedisStoreWithClient creates a store from an existing Redis client
func NewRedisStoreWithClient(client *redis.Client) *RedisStore {
	return &RedisStore{
		client:       client,
		prefix:       "refresh:",
		wizardPrefix: "wizard:",
	}
}

func (s *RedisStore) key(tokenHash string) string {
	return s.prefix + tokenHash
}

func (s *RedisStore) wizardKey(minutesID string) string {
	return s.wizardPrefix + minutesID
}

// SaveRefreshSession stores a refresh token with expiration
func (s *RedisStore) SaveRefreshSession(ctx context.Context, tokenHash, userID string, expiresAt time.Time) error {
	data := TokenData{
		UserID:    userID,
		CreatedAt: time.Now(),
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal token data: %w", err)
	}

	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}

	if err := s.client.Set(ctx, s.key(tokenHash), jsonData, ttl).Err(); err != nil {
		return fmt.Errorf("save refresh token: %w", err)
	}
	return nil
}

// LookupRefreshSession returns the user ID a refresh token was issued to.
func (s *RedisStore) LookupRefreshSession(ctx context.Context, tokenHash string) (string, error) {
	jsonData, err := s.client.Get(ctx, s.key(tokenHash)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("lookup refresh token: %w", err)
	}

	var data TokenData
	if err := json.Unmarshal([]byte(jsonData), &data); err != nil {
		return "", fmt.Errorf("unmarshal token data: %w", err)
	}
	return data.UserID, nil
}

// RevokeRefreshSession deletes a refresh token
func (s *RedisStore) RevokeRefreshSession(ctx context.Context, tokenHash string) error {
	if err := s.client.Del(ctx, s.key(tokenHash)).Err(); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

// SaveWizard stores the wizard session of a minutes record, resetting its TTL.
func (s *RedisStore) SaveWizard(ctx context.Context, minutesID string, session *wizard.Session, ttl time.Duration) error {
	jsonData, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal wizard session: %w", err)
	}
	if err := s.client.Set(ctx, s.wizardKey(minutesID), jsonData, ttl).Err(); err != nil {
		return fmt.Errorf("save wizard session: %w", err)
	}
	return nil
}

func (s *RedisStore) LoadWizard(ctx context.Context, minutesID string) (*wizard.Session, error) {
	jsonData, err := s.client.Get(ctx, s.wizardKey(minutesID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load wizard session: %w", err)
	}

	session := &wizard.Session{}
	if err := json.Unmarshal(jsonData, session); err != nil {
		return nil, fmt.Errorf("unmarshal wizard session: %w", err)
	}
	return session, nil
}

func (s *RedisStore) DeleteWizard(ctx context.Context, minutesID string) error {
	if err := s.client.Del(ctx, s.wizardKey(minutesID)).Err(); err != nil {
		return fmt.Errorf("delete wizard session: %w", err)
	}
	return nil
}

// Close closes the Redis connection
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping checks if Redis is reachable
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
