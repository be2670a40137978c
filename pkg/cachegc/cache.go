// Package cachegc tracks recently warmed cache keys with a bounded, expiring LRU.
package cachegc

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/simplelru"
)

// Set is a size-bounded set of keys that forgets keys after TTL.
// It is safe for concurrent use.
type Set struct {
	TTL time.Duration

	mu  sync.Mutex
	lru *simplelru.LRU
	now func() time.Time
}

// NewSet creates a set holding up to size keys.
func NewSet(size int, ttl time.Duration) (*Set, error) {
	lru, err := simplelru.NewLRU(size, nil)
	if err != nil {
		return nil, err
	}
	return &Set{TTL: ttl, lru: lru, now: time.Now}, nil
}

// Contains reports whether key was added within TTL.
func (s *Set) Contains(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	added, ok := s.lru.Peek(key)
	if !ok {
		return false
	}
	if s.now().Sub(added.(time.Time)) > s.TTL {
		s.lru.Remove(key)
		s.gc()
		return false
	}
	return true
}

// Add inserts or refreshes a key.
func (s *Set) Add(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lru.Add(key, s.now())
}

// Len returns the number of keys held, including expired keys not yet collected.
func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lru.Len()
}

// gc drops expired keys from the old end of the LRU.
func (s *Set) gc() {
	now := s.now()
	for {
		key, added, ok := s.lru.GetOldest()
		if !ok {
			return
		}
		if now.Sub(added.(time.Time)) <= s.TTL {
			return
		}
		s.lru.Remove(key)
	}
}
