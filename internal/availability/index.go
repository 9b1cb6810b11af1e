package availability

import (
	"sync"
	"time"

	"amenityhub/internal/models"
)

// Index keeps the active intervals of every resource. Each resource has its
// own shard, so operations on different resources never share a lock beyond
// the brief shard lookup.
type Index struct {
	mu     sync.RWMutex
	shards map[string]*shard
}

type shard struct {
	mu   sync.RWMutex
	tree *Tree
}

func NewIndex() *Index {
	return &Index{shards: make(map[string]*shard)}
}

func (x *Index) shard(resourceID string, create bool) *shard {
	x.mu.RLock()
	s, ok := x.shards[resourceID]
	x.mu.RUnlock()
	if ok || !create {
		return s
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	if s, ok = x.shards[resourceID]; ok {
		return s
	}
	s = &shard{tree: NewTree()}
	x.shards[resourceID] = s
	return s
}

// QueryOverlap returns every reservation on resourceID whose interval overlaps iv.
func (x *Index) QueryOverlap(resourceID string, iv models.Interval) []string {
	s := x.shard(resourceID, false)
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.Overlapping(iv)
}

// Insert adds the reservation unless it overlaps an existing entry, in which
// case a *models.ConflictError naming the blockers is returned.
func (x *Index) Insert(resourceID, reservationID string, iv models.Interval) error {
	s := x.shard(resourceID, true)
	s.mu.Lock()
	defer s.mu.Unlock()

	var conflicts []string
	for _, id := range s.tree.Overlapping(iv) {
		if id != reservationID {
			conflicts = append(conflicts, id)
		}
	}
	if len(conflicts) > 0 {
		return &models.ConflictError{ResourceID: resourceID, ReservationIDs: conflicts}
	}
	s.tree.Insert(reservationID, iv)
	return nil
}

// Remove is idempotent: removing an absent entry is a no-op.
func (x *Index) Remove(resourceID, reservationID string) bool {
	s := x.shard(resourceID, false)
	if s == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tree.Remove(reservationID)
}

// Prune drops entries of resourceID that ended at or before cutoff.
func (x *Index) Prune(resourceID string, cutoff time.Time) []string {
	s := x.shard(resourceID, false)
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ended := s.tree.EndedBy(cutoff)
	for _, id := range ended {
		s.tree.Remove(id)
	}
	return ended
}

func (x *Index) Len(resourceID string) int {
	s := x.shard(resourceID, false)
	if s == nil {
		return 0
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.Len()
}

// Resources lists the resource ids that have a shard.
func (x *Index) Resources() []string {
	x.mu.RLock()
	defer x.mu.RUnlock()
	out := make([]string, 0, len(x.shards))
	for id := range x.shards {
		out = append(out, id)
	}
	return out
}
