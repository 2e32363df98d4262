// Package signals holds the last fetched signal list and the live filter
// thresholds, and derives the filtered view without touching the network.
package signals

import (
	"sync"

	"github.com/whalewatch/dashboard/internal/store"
)

// Thresholds are the minimum whale and source counts a signal needs.
type Thresholds struct {
	MinWhales  int
	MinSources int
}

// Matches reports whether a signal passes the thresholds.
func (t Thresholds) Matches(s store.Signal) bool {
	return s.NbWhales >= t.MinWhales && s.NbSources >= t.MinSources
}

// Filter returns the signals passing th, in their original order.
// It never returns nil so callers can range and len without checks.
func Filter(list []store.Signal, th Thresholds) []store.Signal {
	out := make([]store.Signal, 0, len(list))
	for _, s := range list {
		if th.Matches(s) {
			out = append(out, s)
		}
	}
	return out
}

// Store owns the signal list and thresholds. It is safe for concurrent use:
// the poll loop replaces the list while the UI adjusts thresholds.
type Store struct {
	mu         sync.RWMutex
	signals    []store.Signal
	thresholds Thresholds
}

// NewStore creates a store with the initial thresholds.
func NewStore(initial Thresholds) *Store {
	return &Store{thresholds: clamp(initial)}
}

// Replace swaps in the list from a successful poll. Thresholds are kept.
func (s *Store) Replace(list []store.Signal) {
	cp := make([]store.Signal, len(list))
	copy(cp, list)

	s.mu.Lock()
	s.signals = cp
	s.mu.Unlock()
}

// Thresholds returns the current thresholds.
func (s *Store) Thresholds() Thresholds {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.thresholds
}

// SetThresholds replaces both thresholds and returns the new filtered view.
func (s *Store) SetThresholds(th Thresholds) []store.Signal {
	s.mu.Lock()
	s.thresholds = clamp(th)
	s.mu.Unlock()
	return s.Apply()
}

// SetMinWhales changes the whale threshold and returns the new filtered view.
func (s *Store) SetMinWhales(n int) []store.Signal {
	s.mu.Lock()
	s.thresholds.MinWhales = max(n, 0)
	s.mu.Unlock()
	return s.Apply()
}

// SetMinSources changes the source threshold and returns the new filtered view.
func (s *Store) SetMinSources(n int) []store.Signal {
	s.mu.Lock()
	s.thresholds.MinSources = max(n, 0)
	s.mu.Unlock()
	return s.Apply()
}

// Apply derives the filtered view from the stored list and thresholds.
func (s *Store) Apply() []store.Signal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Filter(s.signals, s.thresholds)
}

func clamp(th Thresholds) Thresholds {
	return Thresholds{
		MinWhales:  max(th.MinWhales, 0),
		MinSources: max(th.MinSources, 0),
	}
}
