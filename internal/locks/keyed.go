// Package locks provides per-key mutual exclusion. The recorder and the
// sweeper share one Keyed instance so writes to a single check are
// serialized while unrelated checks proceed concurrently.
package locks

import "sync"

type Keyed struct {
	mu sync.Mutex
	m  map[int64]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

func NewKeyed() *Keyed {
	return &Keyed{m: make(map[int64]*entry)}
}

// Lock acquires the mutex for key and returns its unlock func.
func (k *Keyed) Lock(key int64) func() {
	k.mu.Lock()
	e, ok := k.m[key]
	if !ok {
		e = &entry{}
		k.m[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.m, key)
		}
		k.mu.Unlock()
	}
}
