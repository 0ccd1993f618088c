package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"

	"github.com/chibi-hub/chibi-engine/internal/infrastructure/ai"
)

// ══════════════════════════════════════════════════════════════════════════════
// EMBEDDING CACHE
// ══════════════════════════════════════════════════════════════════════════════

// CachedEmbedder wraps an ai.Embedder with a Redis cache keyed by the SHA-256
// of the input text. Embeddings are deterministic per text, so a hit saves an
// upstream call without changing behavior.
type CachedEmbedder struct {
	inner  ai.Embedder
	cache  *Cache
	logger *slog.Logger
}

// NewCachedEmbedder wraps an embedder with Redis caching.
func NewCachedEmbedder(inner ai.Embedder, cache *Cache, logger *slog.Logger) *CachedEmbedder {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedEmbedder{inner: inner, cache: cache, logger: logger}
}

func embeddingKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return PrefixEmbedding + hex.EncodeToString(sum[:])
}

// Embed returns the embedding for the text, from cache when available.
func (e *CachedEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	key := embeddingKey(text)

	var cached []float64
	err := e.cache.Get(ctx, key, &cached)
	if err == nil && len(cached) > 0 {
		return cached, nil
	}
	if err != nil && !errors.Is(err, ErrCacheMiss) {
		e.logger.Warn("embedding cache read failed", "error", err)
	}

	vector, err := e.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	if err := e.cache.Set(ctx, key, vector, TTLEmbedding); err != nil {
		e.logger.Warn("embedding cache write failed", "error", err)
	}
	return vector, nil
}
