// test/mock/audit.go
package mock

import (
	"context"
	"sync"

	"github.com/sentinelworks/verdict/audit"
)

// AuditRepository is an in-memory audit.Repository for tests. FailTimes
// makes the first N Index calls fail, for exercising the sink's retry path.
type AuditRepository struct {
	mu        sync.Mutex
	records   []audit.Record
	failTimes int
	failErr   error
	calls     int
}

func NewAuditRepository() *AuditRepository {
	return &AuditRepository{}
}

func (r *AuditRepository) FailTimes(n int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failTimes = n
	r.failErr = err
}

func (r *AuditRepository) Index(ctx context.Context, rec audit.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.failTimes > 0 {
		r.failTimes--
		return r.failErr
	}
	r.records = append(r.records, rec)
	return nil
}

func (r *AuditRepository) Records() []audit.Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]audit.Record, len(r.records))
	copy(out, r.records)
	return out
}

func (r *AuditRepository) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}
