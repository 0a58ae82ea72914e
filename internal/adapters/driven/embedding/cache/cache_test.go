package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/custodia-labs/sercha-rag/internal/testutil"
)

func setupTestCache(t *testing.T) (*miniredis.Miniredis, *EmbeddingService, *testutil.Embedder) {
	t.Helper()
	mr := miniredis.RunT(t)
	inner := testutil.NewEmbedder("grid", "button")
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := New(inner, rdb, time.Hour, zap.NewNop())
	t.Cleanup(func() { _ = s.Close() })
	return mr, s, inner
}

func TestEmbeddingService_CachesVectors(t *testing.T) {
	mr, s, inner := setupTestCache(t)
	ctx := context.Background()

	first, err := s.Embed(ctx, "grid button grid")
	require.NoError(t, err)
	assert.Equal(t, []float32{2, 1}, first)
	assert.Equal(t, 1, inner.Calls())

	second, err := s.Embed(ctx, "grid button grid")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.Calls())

	assert.True(t, mr.Exists(s.Key("grid button grid")))
	assert.Equal(t, time.Hour, mr.TTL(s.Key("grid button grid")))
}

func TestEmbeddingService_EmbedBatch_OnlyMisses(t *testing.T) {
	_, s, inner := setupTestCache(t)
	ctx := context.Background()

	_, err := s.Embed(ctx, "button")
	require.NoError(t, err)

	out, err := s.EmbedBatch(ctx, []string{"grid", "button", "grid grid"})

	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 0}, {0, 1}, {2, 0}}, out)
	assert.Equal(t, 3, inner.Calls())
}

func TestEmbeddingService_Expiry(t *testing.T) {
	mr, s, inner := setupTestCache(t)
	ctx := context.Background()

	_, err := s.Embed(ctx, "grid")
	require.NoError(t, err)
	mr.FastForward(2 * time.Hour)
	_, err = s.Embed(ctx, "grid")
	require.NoError(t, err)

	assert.Equal(t, 2, inner.Calls())
}

func TestEmbeddingService_RedisDownFallsThrough(t *testing.T) {
	mr := miniredis.RunT(t)
	inner := testutil.NewEmbedder("grid")
	core, logs := observer.New(zapcore.WarnLevel)
	s := New(inner, redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1}), 0, zap.New(core))
	mr.Close()

	v, err := s.Embed(context.Background(), "grid")

	require.NoError(t, err)
	assert.Equal(t, []float32{1}, v)
	assert.Equal(t, DefaultTTL, s.ttl)
	assert.Equal(t, 1, logs.FilterMessage("cache lookup failed").Len())
	assert.Equal(t, 1, logs.FilterMessage("cache store failed").Len())
}

func TestEmbeddingService_InnerError(t *testing.T) {
	_, s, inner := setupTestCache(t)
	inner.Err = testutil.ErrEmbed

	_, err := s.Embed(context.Background(), "grid")

	assert.ErrorIs(t, err, testutil.ErrEmbed)
}

func TestEmbeddingService_Delegates(t *testing.T) {
	_, s, _ := setupTestCache(t)

	assert.Equal(t, 2, s.Dimensions())
	assert.Equal(t, "bag-of-words", s.ModelName())
	assert.NoError(t, s.Ping(context.Background()))
	assert.Contains(t, s.Key("x"), "sercha-rag:embedding:bag-of-words:")
	empty, err := s.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestDial_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := Dial(context.Background(), testutil.NewEmbedder("grid"), addr, time.Minute, nil)

	assert.ErrorContains(t, err, "ping redis")
}
