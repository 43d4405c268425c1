// test/mock/store.go
package mock

import (
	"context"

	verdict_errors "github.com/sentinelworks/verdict/errors"
	"github.com/sentinelworks/verdict/model"
	"github.com/sentinelworks/verdict/store"
)

// FlakyStore wraps an inner store and fails Get for the configured ids,
// simulating an unreachable or partially-populated policy store.
type FlakyStore struct {
	Inner   store.Store
	FailIDs map[string]error
}

func NewFlakyStore(inner store.Store) *FlakyStore {
	return &FlakyStore{Inner: inner, FailIDs: make(map[string]error)}
}

func (s *FlakyStore) FailGet(id string, err error) {
	if err == nil {
		err = verdict_errors.ErrDatabaseOperation
	}
	s.FailIDs[id] = err
}

func (s *FlakyStore) Put(ctx context.Context, set model.PolicySet) (string, int, error) {
	return s.Inner.Put(ctx, set)
}

func (s *FlakyStore) Get(ctx context.Context, id string, version int) (*model.PolicySet, error) {
	if err, ok := s.FailIDs[id]; ok {
		return nil, err
	}
	return s.Inner.Get(ctx, id, version)
}

func (s *FlakyStore) ListVersions(ctx context.Context, id string) (*store.Versions, error) {
	return s.Inner.ListVersions(ctx, id)
}

func (s *FlakyStore) ListIDs(ctx context.Context, limit, offset int) ([]string, error) {
	return s.Inner.ListIDs(ctx, limit, offset)
}
