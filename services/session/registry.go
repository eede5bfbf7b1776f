package session

import (
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrSessionNotFound is returned when a session id is unknown or expired.
var ErrSessionNotFound = errors.New("session not found")

// DefaultIdleTTL is how long an untouched session survives before the
// cleanup loop drops it.
const DefaultIdleTTL = 30 * time.Minute

// Registry tracks live result sessions by id so multiple clients can each
// drive their own query lifecycle over HTTP. Idle sessions are evicted by a
// background loop.
type Registry struct {
	searcher Searcher
	enricher Enricher
	pageSize int
	idleTTL  time.Duration

	mu       sync.RWMutex
	sessions map[string]*Session
	done     chan struct{}
	once     sync.Once
}

func NewRegistry(searcher Searcher, enricher Enricher, pageSize int, idleTTL time.Duration) *Registry {
	if idleTTL <= 0 {
		idleTTL = DefaultIdleTTL
	}
	r := &Registry{
		searcher: searcher,
		enricher: enricher,
		pageSize: pageSize,
		idleTTL:  idleTTL,
		sessions: make(map[string]*Session),
		done:     make(chan struct{}),
	}
	go r.cleanupLoop()
	return r
}

// Create starts a new empty session and registers it.
func (r *Registry) Create() *Session {
	s := New(r.searcher, r.enricher, r.pageSize)
	s.id = uuid.NewString()
	r.mu.Lock()
	r.sessions[s.id] = s
	r.mu.Unlock()
	return s
}

// Get returns the session for the given id and refreshes its idle timer.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	s.touch()
	return s, nil
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Close stops the cleanup loop.
func (r *Registry) Close() {
	r.once.Do(func() { close(r.done) })
}

func (r *Registry) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-r.done:
			return
		case <-ticker.C:
			r.evictIdle()
		}
	}
}

func (r *Registry) evictIdle() {
	cutoff := time.Now().Add(-r.idleTTL)
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, s := range r.sessions {
		if s.idleSince().Before(cutoff) {
			delete(r.sessions, id)
			log.Printf("[session] evicted idle session %s", id)
		}
	}
}
