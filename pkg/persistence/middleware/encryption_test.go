package middleware_test

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"io"
	"testing"
	"time"

	"github.com/aretw0/curator/pkg/adapters/memory"
	"github.com/aretw0/curator/pkg/domain"
	"github.com/aretw0/curator/pkg/persistence/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generateKey(t *testing.T) []byte {
	k := make([]byte, 32)
	_, err := io.ReadFull(rand.Reader, k)
	require.NoError(t, err)
	return k
}

func sampleRecord(runID string) domain.RunRecord {
	return domain.RunRecord{
		RunID:     runID,
		Username:  "richard",
		StoreID:   "ABC",
		TopK:      2,
		Items:     []string{"Headset", "Monitor"},
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func encrypted(t *testing.T, cfg middleware.EncryptionConfig, next *memory.Store) interface {
	Save(context.Context, domain.RunRecord) error
	Load(context.Context, string) (domain.RunRecord, error)
} {
	mw, err := middleware.NewEncryptionMiddleware(cfg)
	require.NoError(t, err)
	return mw(next)
}

func TestEncryptionMiddleware_Roundtrip(t *testing.T) {
	underlying := memory.NewStore()
	secure := encrypted(t, middleware.EncryptionConfig{ActiveKey: generateKey(t)}, underlying)
	ctx := context.Background()

	require.NoError(t, secure.Save(ctx, sampleRecord("run-1")))

	stored, err := underlying.Load(ctx, "run-1")
	require.NoError(t, err)
	assert.Empty(t, stored.Username, "username must not be stored in the clear")
	assert.NotContains(t, stored.Items, "Headset")
	assert.Len(t, stored.Items, 1)
	assert.Equal(t, "run-1", stored.RunID)

	loaded, err := secure.Load(ctx, "run-1")
	require.NoError(t, err)
	want := sampleRecord("run-1")
	assert.True(t, want.CreatedAt.Equal(loaded.CreatedAt))
	loaded.CreatedAt = want.CreatedAt
	assert.Equal(t, want, loaded)
}

func TestEncryptionMiddleware_KeyRotation(t *testing.T) {
	underlying := memory.NewStore()
	oldKey, newKey := generateKey(t), generateKey(t)
	ctx := context.Background()

	oldStore := encrypted(t, middleware.EncryptionConfig{ActiveKey: oldKey}, underlying)
	require.NoError(t, oldStore.Save(ctx, sampleRecord("rotation")))

	newStore := encrypted(t, middleware.EncryptionConfig{ActiveKey: newKey, FallbackKeys: [][]byte{oldKey}}, underlying)
	loaded, err := newStore.Load(ctx, "rotation")
	require.NoError(t, err, "fallback key should open the old record")
	assert.Equal(t, []string{"Headset", "Monitor"}, loaded.Items)

	loaded.Items = []string{"Webcam"}
	require.NoError(t, newStore.Save(ctx, loaded))

	_, err = oldStore.Load(ctx, "rotation")
	assert.Error(t, err, "old key alone must not open a record sealed with the new key")
}

func TestEncryptionMiddleware_PlainRecord(t *testing.T) {
	underlying := memory.NewStore()
	ctx := context.Background()
	require.NoError(t, underlying.Save(ctx, sampleRecord("plain")))

	secure := encrypted(t, middleware.EncryptionConfig{ActiveKey: generateKey(t)}, underlying)
	_, err := secure.Load(ctx, "plain")
	assert.ErrorIs(t, err, middleware.ErrNotEncrypted)

	_, err = secure.Load(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrRunNotFound)
}

func TestEncryptionMiddleware_InvalidKey(t *testing.T) {
	_, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: []byte("short-key")})
	assert.Error(t, err)
}

func TestDecodeKey(t *testing.T) {
	key := generateKey(t)
	got, err := middleware.DecodeKey(base64.StdEncoding.EncodeToString(key))
	require.NoError(t, err)
	assert.Equal(t, key, got)

	_, err = middleware.DecodeKey("not base64!")
	assert.Error(t, err)
	_, err = middleware.DecodeKey(base64.StdEncoding.EncodeToString([]byte("short")))
	assert.Error(t, err)
}
