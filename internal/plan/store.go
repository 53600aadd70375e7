// Package plan caches the authoritative plan snapshot mirrored from the
// scheduling service.
package plan

import (
	"sync"

	"github.com/ashureev/planchat/internal/domain"
)

// Observer is notified with the new snapshot after every replacement.
// Observers run while the store serializes notifications and must not call
// Replace or Clear.
type Observer func(p *domain.Plan)

// Store holds a single current plan. It keeps no history.
type Store struct {
	mu        sync.RWMutex
	current   *domain.Plan
	notifyMu  sync.Mutex
	observers []Observer
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{}
}

// Get returns a copy of the current plan, or nil when there is none.
func (s *Store) Get() *domain.Plan {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Clone()
}

// Replace swaps in p wholesale. The store keeps its own copy so callers
// cannot mutate the cached snapshot afterwards.
func (s *Store) Replace(p *domain.Plan) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	snapshot := p.Clone()
	s.mu.Lock()
	s.current = snapshot
	observers := s.observers
	s.mu.Unlock()

	for _, obs := range observers {
		obs(snapshot.Clone())
	}
}

// Clear resets the store to the empty sentinel.
func (s *Store) Clear() {
	s.Replace(nil)
}

// Subscribe registers an observer.
func (s *Store) Subscribe(obs Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, obs)
}
