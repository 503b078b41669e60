package narrative

import "sync"

// lockTable serializes story generation per journey. Concurrent requests for
// different journeys proceed in parallel; two writers to the same journey
// queue up. New journeys lock on the username alone since they have no id
// visible to other requests yet.
type lockTable struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newLockTable() *lockTable {
	return &lockTable{locks: make(map[string]*lockEntry)}
}

// acquire blocks until the key's lock is held and returns the release func.
// Entries are reference counted and removed when the last holder releases, so
// the table does not grow with journey count.
func (t *lockTable) acquire(key string) func() {
	t.mu.Lock()
	e, ok := t.locks[key]
	if !ok {
		e = &lockEntry{}
		t.locks[key] = e
	}
	e.refs++
	t.mu.Unlock()

	e.mu.Lock()

	return func() {
		e.mu.Unlock()

		t.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(t.locks, key)
		}
		t.mu.Unlock()
	}
}
