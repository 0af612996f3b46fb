package storage

import (
	"sync"
	"time"
)

// SessionCaches owns one QueryCache per application session. A cache is
// created when the session first asks for it and discarded on logout or
// after it has been idle for longer than the sweep horizon.
type SessionCaches struct {
	mu       sync.Mutex
	caches   map[string]*sessionCache
	observer CacheObserver
	now      func() time.Time
}

type sessionCache struct {
	cache    *QueryCache
	lastUsed time.Time
}

// NewSessionCaches creates an empty registry. observer is handed to every cache.
func NewSessionCaches(observer CacheObserver) *SessionCaches {
	return &SessionCaches{
		caches:   make(map[string]*sessionCache),
		observer: observer,
		now:      time.Now,
	}
}

// For returns the cache of sessionID, creating it if needed.
func (s *SessionCaches) For(sessionID string) *QueryCache {
	s.mu.Lock()
	defer s.mu.Unlock()

	sc, ok := s.caches[sessionID]
	if !ok {
		sc = &sessionCache{cache: NewQueryCache(s.observer)}
		s.caches[sessionID] = sc
	}
	sc.lastUsed = s.now()
	return sc.cache
}

// Lookup returns the cache of sessionID without creating or touching it.
func (s *SessionCaches) Lookup(sessionID string) (*QueryCache, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc, ok := s.caches[sessionID]
	if !ok {
		return nil, false
	}
	return sc.cache, true
}

// Drop discards the cache of sessionID.
func (s *SessionCaches) Drop(sessionID string) {
	s.mu.Lock()
	delete(s.caches, sessionID)
	s.mu.Unlock()
}

// Sessions returns the IDs that currently own a cache.
func (s *SessionCaches) Sessions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.caches))
	for id := range s.caches {
		ids = append(ids, id)
	}
	return ids
}

// Sweep drops caches unused for longer than maxIdle and returns how many went.
func (s *SessionCaches) Sweep(maxIdle time.Duration) int {
	cutoff := s.now().Add(-maxIdle)

	s.mu.Lock()
	defer s.mu.Unlock()

	dropped := 0
	for id, sc := range s.caches {
		if sc.lastUsed.Before(cutoff) {
			delete(s.caches, id)
			dropped++
		}
	}
	return dropped
}

// Len returns the number of live session caches.
func (s *SessionCaches) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.caches)
}
