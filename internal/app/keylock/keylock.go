// Package keylock provides per-key mutual exclusion. Each entity id gets its
// own mutex so mutations on the same entity serialize while unrelated
// entities proceed independently.
package keylock

import "sync"

// Set hands out one mutex per key.
type Set struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewSet creates an empty lock set.
func NewSet() *Set {
	return &Set{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for key and returns its unlock function.
func (s *Set) Lock(key string) func() {
	s.mu.Lock()
	l, ok := s.locks[key]
	if !ok {
		l = &sync.Mutex{}
		s.locks[key] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock
}
