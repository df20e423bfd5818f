// Package cache provides the in-memory TTL caches backing the search
// orchestrator and thread assembler: user and channel directories plus a
// capacity-bounded search-result memo. Expiry is evaluated lazily at read
// time; there is no background sweep.
package cache

import (
	"slices"
	"sync"
	"time"

	"github.com/chatscout/chatscout/internal/chat"
)

// Clock abstracts time operations for testability.
type Clock interface {
	Now() time.Time
}

// realClock implements Clock using the standard time package.
type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Default TTLs and capacity. Directory entries change rarely; search
// results go stale quickly and are bounded to keep memory flat.
const (
	DefaultDirectoryTTL   = 24 * time.Hour
	DefaultSearchTTL      = 5 * time.Minute
	DefaultSearchCapacity = 50
)

// entry pairs a value with its capture time. Validity is now-captured < TTL.
type entry[T any] struct {
	value    T
	captured time.Time
}

// Supervisor holds the three independent caches. All methods are safe for
// concurrent use; locks are never held across I/O.
type Supervisor struct {
	mu    sync.RWMutex
	clock Clock

	users    map[string]entry[string]
	channels map[string]entry[string]
	searches map[uint64]entry[*chat.SearchResult]

	directoryTTL   time.Duration
	searchTTL      time.Duration
	searchCapacity int
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithClock sets a custom time source.
func WithClock(clk Clock) Option {
	return func(s *Supervisor) { s.clock = clk }
}

// WithDirectoryTTL overrides the user/channel directory TTL.
func WithDirectoryTTL(ttl time.Duration) Option {
	return func(s *Supervisor) { s.directoryTTL = ttl }
}

// WithSearchTTL overrides the search memo TTL.
func WithSearchTTL(ttl time.Duration) Option {
	return func(s *Supervisor) { s.searchTTL = ttl }
}

// WithSearchCapacity overrides the search memo entry cap.
func WithSearchCapacity(n int) Option {
	return func(s *Supervisor) {
		if n > 0 {
			s.searchCapacity = n
		}
	}
}

// NewSupervisor creates a Supervisor with default TTLs.
func NewSupervisor(opts ...Option) *Supervisor {
	s := &Supervisor{
		clock:          realClock{},
		users:          make(map[string]entry[string]),
		channels:       make(map[string]entry[string]),
		searches:       make(map[uint64]entry[*chat.SearchResult]),
		directoryTTL:   DefaultDirectoryTTL,
		searchTTL:      DefaultSearchTTL,
		searchCapacity: DefaultSearchCapacity,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetUser returns the cached display name for a user id.
func (s *Supervisor) GetUser(id string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.users[id]
	if !ok || s.expired(e.captured, s.directoryTTL) {
		return "", false
	}
	return e.value, true
}

// GetChannel returns the cached name for a channel id.
func (s *Supervisor) GetChannel(id string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.channels[id]
	if !ok || s.expired(e.captured, s.directoryTTL) {
		return "", false
	}
	return e.value, true
}

// PutUser stores a user display name. Re-puts refresh the capture time.
func (s *Supervisor) PutUser(id, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[id] = entry[string]{value: name, captured: s.clock.Now()}
}

// PutChannel stores a channel name.
func (s *Supervisor) PutChannel(id, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channels[id] = entry[string]{value: name, captured: s.clock.Now()}
}

// UserSnapshot copies the valid user entries. The copy is taken under the
// lock and released before the caller does any network I/O.
func (s *Supervisor) UserSnapshot() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.users))
	for id, e := range s.users {
		if !s.expired(e.captured, s.directoryTTL) {
			out[id] = e.value
		}
	}
	return out
}

// ChannelSnapshot copies the valid channel entries.
func (s *Supervisor) ChannelSnapshot() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.channels))
	for id, e := range s.channels {
		if !s.expired(e.captured, s.directoryTTL) {
			out[id] = e.value
		}
	}
	return out
}

// GetSearch returns a memoized search result for the request key. The
// result is a shallow copy with its own Messages slice, so callers may
// append to or reorder it without corrupting the resident entry.
func (s *Supervisor) GetSearch(key uint64) (*chat.SearchResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.searches[key]
	if !ok || s.expired(e.captured, s.searchTTL) {
		return nil, false
	}
	out := *e.value
	out.Messages = slices.Clone(e.value.Messages)
	return &out, true
}

// PutSearch memoizes a search result. When the memo is at capacity, the
// entry with the oldest capture time is evicted first.
func (s *Supervisor) PutSearch(key uint64, result *chat.SearchResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.searches[key]; !exists && len(s.searches) >= s.searchCapacity {
		s.evictOldestLocked()
	}
	s.searches[key] = entry[*chat.SearchResult]{value: result, captured: s.clock.Now()}
}

// evictOldestLocked removes the search entry with the smallest capture
// timestamp. Caller must hold the write lock.
func (s *Supervisor) evictOldestLocked() {
	var oldestKey uint64
	var oldest time.Time
	first := true
	for k, e := range s.searches {
		if first || e.captured.Before(oldest) {
			oldestKey, oldest = k, e.captured
			first = false
		}
	}
	if !first {
		delete(s.searches, oldestKey)
	}
}

// CachedReactions scans valid memoized search results for a message's
// reactions. Used for cache-hit accounting in progressive reaction
// fetching; message objects themselves are never cached, only the
// composite results they ride in.
func (s *Supervisor) CachedReactions(channel, ts string) ([]chat.Reaction, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.searches {
		if s.expired(e.captured, s.searchTTL) {
			continue
		}
		for i := range e.value.Messages {
			m := &e.value.Messages[i]
			if m.Channel == channel && m.TS == ts && len(m.Reactions) > 0 {
				return m.Reactions, true
			}
		}
	}
	return nil, false
}

// SearchLen returns the number of resident search entries, expired or not.
func (s *Supervisor) SearchLen() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.searches)
}

// ClearAll drops every entry from all three caches.
func (s *Supervisor) ClearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = make(map[string]entry[string])
	s.channels = make(map[string]entry[string])
	s.searches = make(map[uint64]entry[*chat.SearchResult])
}

func (s *Supervisor) expired(captured time.Time, ttl time.Duration) bool {
	return s.clock.Now().Sub(captured) >= ttl
}
