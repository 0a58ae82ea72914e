// Package cache decorates an embedding service with a Redis-backed cache.
//
// Entries are keyed by model name and a SHA-256 of the text, and expire after
// the configured TTL. Redis failures are logged and bypassed; they never fail
// an embedding call.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/storage/vector"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// DefaultTTL is used when the configured TTL is not positive.
const DefaultTTL = 24 * time.Hour

const keyPrefix = "sercha-rag:embedding:"

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// EmbeddingService caches the vectors produced by the wrapped service.
type EmbeddingService struct {
	inner driven.EmbeddingService
	rdb   *redis.Client
	ttl   time.Duration
	log   *zap.Logger
}

// New wraps inner with a cache stored in rdb.
func New(inner driven.EmbeddingService, rdb *redis.Client, ttl time.Duration, log *zap.Logger) *EmbeddingService {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &EmbeddingService{inner: inner, rdb: rdb, ttl: ttl, log: log.Named("embedding-cache")}
}

// Dial connects to addr and wraps inner.
func Dial(ctx context.Context, inner driven.EmbeddingService, addr string, ttl time.Duration, log *zap.Logger) (*EmbeddingService, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, errors.Join(fmt.Errorf("ping redis %s: %w", addr, err), rdb.Close())
	}
	return New(inner, rdb, ttl, log), nil
}

// Key returns the cache key for text under the wrapped model.
func (s *EmbeddingService) Key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return keyPrefix + s.inner.ModelName() + ":" + hex.EncodeToString(sum[:])
}

// Embed returns the cached vector or computes and stores it.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// EmbedBatch looks all texts up with one MGET and embeds only the misses.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	keys := make([]string, len(texts))
	for i, t := range texts {
		keys[i] = s.Key(t)
	}

	out := make([][]float32, len(texts))
	var missing []int
	values, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		s.log.Warn("cache lookup failed", zap.Error(err))
		values = make([]any, len(texts))
	}
	for i, v := range values {
		if str, ok := v.(string); ok && str != "" {
			out[i] = vector.Decode([]byte(str))
			continue
		}
		missing = append(missing, i)
	}
	if len(missing) == 0 {
		return out, nil
	}

	missTexts := make([]string, len(missing))
	for j, i := range missing {
		missTexts[j] = texts[i]
	}
	computed, err := s.inner.EmbedBatch(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(computed) != len(missing) {
		return nil, fmt.Errorf("embedding service returned %d vectors for %d texts", len(computed), len(missing))
	}

	pipe := s.rdb.Pipeline()
	for j, i := range missing {
		out[i] = computed[j]
		pipe.Set(ctx, keys[i], vector.Encode(computed[j]), s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		s.log.Warn("cache store failed", zap.Error(err), zap.Int("entries", len(missing)))
	}
	s.log.Debug("embedded batch", zap.Int("texts", len(texts)), zap.Int("misses", len(missing)))
	return out, nil
}

// Dimensions returns the wrapped service's vector size.
func (s *EmbeddingService) Dimensions() int { return s.inner.Dimensions() }

// ModelName returns the wrapped model name.
func (s *EmbeddingService) ModelName() string { return s.inner.ModelName() }

// Ping checks the wrapped service only.
func (s *EmbeddingService) Ping(ctx context.Context) error { return s.inner.Ping(ctx) }

// Close releases the wrapped service and the Redis client.
func (s *EmbeddingService) Close() error {
	return errors.Join(s.inner.Close(), s.rdb.Close())
}
