package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atas/api/internal/wizard"
)

func setupTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	s := miniredis.RunT(t)
	store, err := NewRedisStore("redis://" + s.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store, s
}

func TestNewRedisStore(t *testing.T) {
	store, _ := setupTestRedis(t)

	assert.NoError(t, store.Ping(context.Background()))
}

func TestNewRedisStoreRejectsBadURL(t *testing.T) {
	_, err := NewRedisStore("://nope")
	assert.Error(t, err)
}

func TestSaveAndLookupRefreshSession(t *testing.T) {
	store, s := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, store.SaveRefreshSession(ctx, "hash-1", "user-123", time.Now().Add(24*time.Hour)))

	userID, err := store.LookupRefreshSession(ctx, "hash-1")
	require.NoError(t, err)
	assert.Equal(t, "user-123", userID)
	assert.True(t, s.Exists("refresh:hash-1"))
}

func TestLookupExpiredSession(t *testing.T) {
	store, s := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, store.SaveRefreshSession(ctx, "expired", "user-456", time.Now().Add(time.Hour)))
	s.FastForward(2 * time.Hour)

	_, err := store.LookupRefreshSession(ctx, "expired")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRevokeRefreshSession(t *testing.T) {
	store, _ := setupTestRedis(t)
	ctx := context.Background()
	expiresAt := time.Now().Add(24 * time.Hour)

	require.NoError(t, store.SaveRefreshSession(ctx, "token-1", "user-1", expiresAt))
	require.NoError(t, store.SaveRefreshSession(ctx, "token-2", "user-2", expiresAt))
	require.NoError(t, store.RevokeRefreshSession(ctx, "token-1"))

	_, err := store.LookupRefreshSession(ctx, "token-1")
	assert.ErrorIs(t, err, ErrNotFound)

	userID, err := store.LookupRefreshSession(ctx, "token-2")
	require.NoError(t, err)
	assert.Equal(t, "user-2", userID)

	assert.NoError(t, store.RevokeRefreshSession(ctx, "never-issued"))
}

func TestWizardSessionLifecycle(t *testing.T) {
	store, s := setupTestRedis(t)
	ctx := context.Background()

	session := wizard.New([]wizard.AgendaEntry{{ID: "pauta_1", Title: "Orçamento", Description: "Análise anual"}})
	excerpt := "Valores apresentados."
	require.NoError(t, session.UpdateStep(wizard.StepUpdate{Excerpt: &excerpt}))
	require.NoError(t, session.SaveCurrentStep())

	require.NoError(t, store.SaveWizard(ctx, "ata_1", session, time.Hour))
	assert.True(t, s.Exists("wizard:ata_1"))

	loaded, err := store.LoadWizard(ctx, "ata_1")
	require.NoError(t, err)
	assert.Equal(t, session.Items(), loaded.Items())
	assert.Equal(t, 1, loaded.Index())

	require.NoError(t, store.DeleteWizard(ctx, "ata_1"))
	_, err = store.LoadWizard(ctx, "ata_1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestWizardSessionExpires(t *testing.T) {
	store, s := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, store.SaveWizard(ctx, "ata_2", wizard.New(nil), time.Minute))
	s.FastForward(2 * time.Minute)

	_, err := store.LoadWizard(ctx, "ata_2")
	assert.ErrorIs(t, err, ErrNotFound)
}
