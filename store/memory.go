// store/memory.go
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	verdict_errors "github.com/sentinelworks/verdict/errors"
	"github.com/sentinelworks/verdict/model"
)

// Memory is the in-process reference Store. Writes append a fully-built
// immutable version under a lock, so a reader never observes a partially
// written policy set. Both Put and Get deep-copy, keeping stored versions
// out of reach of caller mutation.
type Memory struct {
	mu   sync.RWMutex
	sets map[string][]*model.PolicySet // version n lives at index n-1
}

func NewMemory() *Memory {
	return &Memory{sets: make(map[string][]*model.PolicySet)}
}

func (m *Memory) Put(ctx context.Context, set model.PolicySet) (string, int, error) {
	if err := validatePolicySet(&set); err != nil {
		return "", 0, err
	}

	stored := set.Clone()
	stored.CreatedAt = time.Now().UTC()

	m.mu.Lock()
	defer m.mu.Unlock()
	stored.Version = len(m.sets[set.ID]) + 1
	m.sets[set.ID] = append(m.sets[set.ID], stored)
	return stored.ID, stored.Version, nil
}

func (m *Memory) Get(ctx context.Context, id string, version int) (*model.PolicySet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	versions := m.sets[id]
	if len(versions) == 0 {
		return nil, &verdict_errors.NotFoundError{ID: id}
	}
	if version == LatestVersion {
		return versions[len(versions)-1].Clone(), nil
	}
	if version < 1 || version > len(versions) {
		return nil, &verdict_errors.NotFoundError{ID: id, Version: version}
	}
	return versions[version-1].Clone(), nil
}

func (m *Memory) ListVersions(ctx context.Context, id string) (*Versions, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stored := m.sets[id]
	if len(stored) == 0 {
		return nil, &verdict_errors.NotFoundError{ID: id}
	}
	versions := make([]int, len(stored))
	for i := range stored {
		versions[i] = i + 1
	}
	return newVersions(versions), nil
}

func (m *Memory) ListIDs(ctx context.Context, limit, offset int) ([]string, error) {
	if limit < 0 || offset < 0 {
		return nil, verdict_errors.ErrInvalidPagination
	}

	m.mu.RLock()
	ids := make([]string, 0, len(m.sets))
	for id := range m.sets {
		ids = append(ids, id)
	}
	m.mu.RUnlock()

	sort.Strings(ids)
	if offset >= len(ids) {
		return []string{}, nil
	}
	ids = ids[offset:]
	if limit > 0 && limit < len(ids) {
		ids = ids[:limit]
	}
	return ids, nil
}
