package redis

import (
	"context"
	"errors"
	"log/slog"

	"github.com/chibi-hub/chibi-engine/internal/domain/mastery"
)

// ══════════════════════════════════════════════════════════════════════════════
// MASTERY STATUS CACHE
// ══════════════════════════════════════════════════════════════════════════════

// MasteryCache is a read-through cache over mastery.Repository. Reads hit
// Redis first; writes go to the store and invalidate the cached entry.
// Cache failures degrade to the underlying store and are only logged.
type MasteryCache struct {
	store  mastery.Repository
	cache  *Cache
	logger *slog.Logger
}

// NewMasteryCache wraps a mastery repository with Redis caching.
func NewMasteryCache(store mastery.Repository, cache *Cache, logger *slog.Logger) *MasteryCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &MasteryCache{store: store, cache: cache, logger: logger}
}

func masteryKey(studentID, conceptID string) string {
	return PrefixMastery + studentID + ":" + conceptID
}

// Get returns the aggregate for a (student, concept) pair, from cache when
// fresh.
func (c *MasteryCache) Get(ctx context.Context, studentID, conceptID string) (*mastery.Record, error) {
	key := masteryKey(studentID, conceptID)

	var cached mastery.Record
	err := c.cache.Get(ctx, key, &cached)
	if err == nil {
		return &cached, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		c.logger.Warn("mastery cache read failed", "key", key, "error", err)
	}

	rec, err := c.store.Get(ctx, studentID, conceptID)
	if err != nil {
		return nil, err
	}

	if err := c.cache.Set(ctx, key, rec, TTLMasteryStatus); err != nil {
		c.logger.Warn("mastery cache write failed", "key", key, "error", err)
	}
	return rec, nil
}

// GetOrCreate delegates to the store; the lazily created empty aggregate is
// not worth caching.
func (c *MasteryCache) GetOrCreate(ctx context.Context, studentID, conceptID string) (*mastery.Record, error) {
	return c.store.GetOrCreate(ctx, studentID, conceptID)
}

// Save persists the aggregate and invalidates the cached entry.
func (c *MasteryCache) Save(ctx context.Context, r *mastery.Record) error {
	if err := c.store.Save(ctx, r); err != nil {
		return err
	}

	key := masteryKey(r.StudentID, r.ConceptID)
	if err := c.cache.Delete(ctx, key); err != nil {
		c.logger.Warn("mastery cache invalidation failed", "key", key, "error", err)
	}
	return nil
}

// GetAllForStudent delegates to the store; the full listing is an
// administrative read, not a hot path.
func (c *MasteryCache) GetAllForStudent(ctx context.Context, studentID string) ([]*mastery.Record, error) {
	return c.store.GetAllForStudent(ctx, studentID)
}
