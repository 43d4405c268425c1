// store/cache.go
package store

import (
	"context"

	"go.uber.org/zap"

	"github.com/sentinelworks/verdict/db"
	logger "github.com/sentinelworks/verdict/logging"
	"github.com/sentinelworks/verdict/model"
)

// Cached is a read-through Redis decorator over any Store. Decision
// correctness never depends on it: every cache failure falls through to the
// inner store, and Put invalidates the latest slot so stale versions are
// never served past the invalidation.
type Cached struct {
	inner Store
}

func NewCached(inner Store) *Cached {
	return &Cached{inner: inner}
}

func (c *Cached) Put(ctx context.Context, set model.PolicySet) (string, int, error) {
	id, version, err := c.inner.Put(ctx, set)
	if err != nil {
		return "", 0, err
	}

	if err := db.InvalidateCachedLatest(ctx, id); err != nil {
		logger.Warn("Failed to invalidate cached policy set",
			zap.String("policySetID", id), zap.Error(err))
	}
	return id, version, nil
}

func (c *Cached) Get(ctx context.Context, id string, version int) (*model.PolicySet, error) {
	cached, err := db.GetCachedPolicySet(ctx, id, version)
	if err != nil {
		logger.Warn("Policy set cache read failed, falling through",
			zap.String("policySetID", id), zap.Error(err))
	}
	if cached != nil {
		return cached, nil
	}

	set, err := c.inner.Get(ctx, id, version)
	if err != nil {
		return nil, err
	}
	if err := db.CachePolicySet(ctx, set, version == LatestVersion); err != nil {
		logger.Warn("Failed to cache policy set",
			zap.String("policySetID", id), zap.Error(err))
	}
	return set, nil
}

func (c *Cached) ListVersions(ctx context.Context, id string) (*Versions, error) {
	return c.inner.ListVersions(ctx, id)
}

func (c *Cached) ListIDs(ctx context.Context, limit, offset int) ([]string, error) {
	return c.inner.ListIDs(ctx, limit, offset)
}
