package store

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/obsidianstack/serialbridge/pkg/types"
)

// Entry is the latest reading of one source.
type Entry struct {
	Source    string
	Message   types.DataMessage
	UpdatedAt time.Time

	// Count is the number of messages recorded for Source since its entry
	// was created. It restarts after the entry expires.
	Count uint64
}

// Store keeps the most recent data message per source. Entries that have not
// been updated within the TTL are hidden from reads and removed by Run.
type Store struct {
	ttl time.Duration
	now func() time.Time // injectable for deterministic tests

	mu   sync.RWMutex
	data map[string]Entry
}

// New creates a Store with the given TTL.
func New(ttl time.Duration) *Store {
	return &Store{
		ttl:  ttl,
		now:  time.Now,
		data: make(map[string]Entry),
	}
}

// Record replaces the latest message for source.
func (s *Store) Record(source string, msg types.DataMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	e, ok := s.data[source]
	if !ok || !s.live(e, now) {
		e = Entry{Source: source}
	}
	e.Message = msg
	e.UpdatedAt = now
	e.Count++
	s.data[source] = e
}

// Get returns the live entry for source.
func (s *Store) Get(source string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.data[source]
	if !ok || !s.live(e, s.now()) {
		return Entry{}, false
	}
	return e, true
}

// List returns all live entries, most recently updated first.
func (s *Store) List() []Entry {
	s.mu.RLock()
	now := s.now()
	out := make([]Entry, 0, len(s.data))
	for _, e := range s.data {
		if s.live(e, now) {
			out = append(out, e)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out
}

// Len returns the number of entries held, including expired ones not yet
// evicted.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Evict removes entries that expired at now and returns how many were removed.
func (s *Store) Evict(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for source, e := range s.data {
		if !s.live(e, now) {
			delete(s.data, source)
			removed++
		}
	}
	return removed
}

// Run evicts expired entries every half TTL (at least once a second) until ctx
// is cancelled.
func (s *Store) Run(ctx context.Context) {
	interval := max(s.ttl/2, time.Second)
	t := time.NewTicker(interval)
	defer t.Stop()

	logger := slog.With("component", "store")
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			if n := s.Evict(now); n > 0 {
				logger.Debug("evicted expired readings", "count", n)
			}
		}
	}
}

func (s *Store) live(e Entry, now time.Time) bool {
	return e.UpdatedAt.After(now.Add(-s.ttl))
}
