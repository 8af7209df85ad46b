// ABOUTME: Concurrent instance registry with a hard capacity limit
// ABOUTME: The RWMutex guards the map only; instances carry their own synchronization
package engine

import (
	"sort"
	"sync"
)

type registry struct {
	mu    sync.RWMutex
	byID  map[uint64]*instance
	limit int
}

func newRegistry(limit int) *registry {
	return &registry{
		byID:  make(map[uint64]*instance),
		limit: limit,
	}
}

// insert adds an instance, reclaiming terminal leftovers inline when
// that is what stands between the newcomer and the limit. The reaped
// instances are returned so the caller can tear down their workers
// outside the lock. Capacity never evicts a live instance.
func (r *registry) insert(in *instance) ([]*instance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var reaped []*instance
	if len(r.byID) >= r.limit {
		for id, old := range r.byID {
			if old.getState().Terminal() {
				delete(r.byID, id)
				reaped = append(reaped, old)
			}
		}
		if len(r.byID) >= r.limit {
			return reaped, &CapacityError{Limit: r.limit}
		}
	}

	r.byID[in.id] = in
	return reaped, nil
}

func (r *registry) get(id uint64) *instance {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byID[id]
}

func (r *registry) count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

// all returns the registered instances in trigger order.
func (r *registry) all() []*instance {
	r.mu.RLock()
	list := make([]*instance, 0, len(r.byID))
	for _, in := range r.byID {
		list = append(list, in)
	}
	r.mu.RUnlock()

	sort.Slice(list, func(i, j int) bool { return list[i].id < list[j].id })
	return list
}

// reap removes terminal instances, returning them for teardown.
func (r *registry) reap() []*instance {
	r.mu.Lock()
	defer r.mu.Unlock()

	var dead []*instance
	for id, in := range r.byID {
		if in.getState().Terminal() {
			delete(r.byID, id)
			dead = append(dead, in)
		}
	}
	return dead
}

// drain empties the registry for shutdown.
func (r *registry) drain() []*instance {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := make([]*instance, 0, len(r.byID))
	for id, in := range r.byID {
		list = append(list, in)
		delete(r.byID, id)
	}
	return list
}
