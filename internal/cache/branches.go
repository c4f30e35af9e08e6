package cache

import (
	"sync"
	"time"

	"github.com/secuflow/secuflow-go/internal/models"
)

// BranchListing is one cached branch enumeration for a project.
type BranchListing struct {
	Branches      []models.Branch
	CurrentBranch string
}

// Branches is a per-project TTL cache for branch listings. The clock is
// injected so expiry is testable; there is no package-level state.
type Branches struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[string]branchEntry
}

type branchEntry struct {
	listing  BranchListing
	cachedAt time.Time
}

// NewBranches builds a cache with the given TTL. A nil clock uses wall time.
func NewBranches(ttl time.Duration, now func() time.Time) *Branches {
	if now == nil {
		now = time.Now
	}
	return &Branches{
		ttl:     ttl,
		now:     now,
		entries: make(map[string]branchEntry),
	}
}

// Get returns the cached listing for a project, or false when absent or
// stale. Stale entries are evicted on read.
func (c *Branches) Get(projectID string) (BranchListing, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[projectID]
	if !ok {
		return BranchListing{}, false
	}
	if c.now().Sub(entry.cachedAt) >= c.ttl {
		delete(c.entries, projectID)
		return BranchListing{}, false
	}
	return entry.listing, true
}

// Put stores a listing for a project, stamped with the current time.
func (c *Branches) Put(projectID string, listing BranchListing) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[projectID] = branchEntry{listing: listing, cachedAt: c.now()}
}

// Invalidate drops a project's cached listing, e.g. after a branch switch.
func (c *Branches) Invalidate(projectID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, projectID)
}
