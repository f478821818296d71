// Package guard serializes mutating operations per tournament so a value
// transfer can never observe a half-updated record.
package guard

import "sync"

// Keyed is a set of mutexes keyed by tournament id. Do runs fn while holding
// the key's lock; concurrent callers on the same key queue behind each other.
type Keyed struct {
	mu    sync.Mutex
	locks map[int]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

func NewKeyed() *Keyed {
	return &Keyed{locks: make(map[int]*entry)}
}

func (k *Keyed) Do(key int, fn func() error) error {
	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		e = &entry{}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
	err := fn()
	e.mu.Unlock()

	k.mu.Lock()
	e.refs--
	if e.refs == 0 {
		delete(k.locks, key)
	}
	k.mu.Unlock()

	return err
}
