// store/store.go
package store

import (
	"context"

	"github.com/sentinelworks/verdict/model"
)

// LatestVersion selects the newest stored version in Get.
const LatestVersion = 0

// Store is versioned, append-only policy set storage. Versions are immutable
// once written: Put assigns the next version for the id (starting at 1) and
// prior versions stay retrievable indefinitely for audit replay.
type Store interface {
	// Put validates the definition and stores it as a new version.
	// Returns a *verdict_errors.ValidationError listing every violation if
	// the definition is malformed.
	Put(ctx context.Context, set model.PolicySet) (id string, version int, err error)

	// Get returns the requested version, or the newest one when version is
	// LatestVersion. Returns a *verdict_errors.NotFoundError if the id or
	// version is unknown.
	Get(ctx context.Context, id string, version int) (*model.PolicySet, error)

	// ListVersions returns an ascending iterator over the stored version
	// numbers for id.
	ListVersions(ctx context.Context, id string) (*Versions, error)

	// ListIDs returns stored policy set ids, sorted, paginated.
	ListIDs(ctx context.Context, limit, offset int) ([]string, error)
}

// Versions iterates version numbers in ascending order. It is finite and
// restartable: Reset rewinds to the first version.
type Versions struct {
	versions []int
	pos      int
}

func newVersions(versions []int) *Versions {
	return &Versions{versions: versions}
}

// Next returns the next version number, or false when exhausted.
func (v *Versions) Next() (int, bool) {
	if v.pos >= len(v.versions) {
		return 0, false
	}
	n := v.versions[v.pos]
	v.pos++
	return n, true
}

func (v *Versions) Reset() { v.pos = 0 }

func (v *Versions) Len() int { return len(v.versions) }

// Collect drains the remaining versions into a slice.
func (v *Versions) Collect() []int {
	out := make([]int, 0, len(v.versions)-v.pos)
	for n, ok := v.Next(); ok; n, ok = v.Next() {
		out = append(out, n)
	}
	return out
}
