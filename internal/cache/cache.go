// Package cache is the bounded read-through content cache shared by all
// retrieval handlers.
//
// Entries are validated against the file's modification time on every lookup
// and evicted oldest-inserted-first when the capacity is reached. Eviction is
// deliberately FIFO rather than LRU; tests depend on that order.
package cache

import (
	"errors"
	"os"
	"sync"
	"time"

	"github.com/danmuck/gemctl/internal/observability"
)

var ErrAbsent = errors.New("cache: content absent")

// Stats exposes lookup counters for telemetry and tests. Reads counts actual
// filesystem content reads, not stat calls.
type Stats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
	Reads     uint64
	Entries   int
}

type entry struct {
	data    []byte
	modTime time.Time
}

// Store maps resolved paths to cached content. A capacity of zero disables
// caching and every Get reads through to the filesystem.
type Store struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]*entry
	order    []string
	stats    Stats
}

func New(capacity int) *Store {
	if capacity < 0 {
		capacity = 0
	}
	return &Store{
		capacity: capacity,
		entries:  make(map[string]*entry),
	}
}

// Get returns the content bytes for path, serving from the cache when the
// modification marker is unchanged and reading through otherwise. A stat or
// read failure, or a directory path, reports ErrAbsent.
func (s *Store) Get(path string) ([]byte, error) {
	st, err := os.Stat(path)
	if err != nil || st.IsDir() {
		return nil, ErrAbsent
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[path]; ok && e.modTime.Equal(st.ModTime()) {
		s.stats.Hits++
		observability.RecordCacheLookup(true)
		return e.data, nil
	}
	s.stats.Misses++
	observability.RecordCacheLookup(false)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, ErrAbsent
	}
	s.stats.Reads++

	if s.capacity == 0 {
		return data, nil
	}
	s.insertLocked(path, data, st.ModTime())
	return data, nil
}

// insertLocked refreshes an existing entry in place (keeping its insertion
// position) or appends a new one, evicting the oldest entry first when full.
func (s *Store) insertLocked(path string, data []byte, modTime time.Time) {
	if e, ok := s.entries[path]; ok {
		e.data = data
		e.modTime = modTime
		return
	}
	if len(s.entries) >= s.capacity {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.entries, oldest)
		s.stats.Evictions++
		observability.RecordCacheEviction()
	}
	s.entries[path] = &entry{data: data, modTime: modTime}
	s.order = append(s.order, path)
}

// Contains reports whether path currently has a cached entry.
func (s *Store) Contains(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[path]
	return ok
}

func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.stats
	out.Entries = len(s.entries)
	return out
}
