package credstore

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value     string
	expiresAt time.Time // zero means no expiry
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

type memoryWindow struct {
	scores    []int64 // unix milliseconds, ascending
	expiresAt time.Time
}

// Memory is an in-process credential store for tests and local
// development. It provides the same atomicity guarantees as the Redis
// store within a single process.
type Memory struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	windows map[string]*memoryWindow
	now     func() time.Time
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string]memoryEntry),
		windows: make(map[string]*memoryWindow),
		now:     time.Now,
	}
}

func (s *Memory) Set(_ context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := memoryEntry{value: value}
	if ttl > 0 {
		e.expiresAt = s.now().Add(ttl)
	}
	s.entries[key] = e
	return nil
}

func (s *Memory) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok || e.expired(s.now()) {
		delete(s.entries, key)
		return "", ErrNotFound
	}
	return e.value, nil
}

func (s *Memory) GetDel(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	delete(s.entries, key)
	if !ok || e.expired(s.now()) {
		return "", ErrNotFound
	}
	return e.value, nil
}

func (s *Memory) Exists(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return false, nil
	}
	if e.expired(s.now()) {
		delete(s.entries, key)
		return false, nil
	}
	return true, nil
}

func (s *Memory) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key)
	return nil
}

func (s *Memory) SlideWindow(_ context.Context, key string, window time.Duration, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.windows[key]
	if ok && !s.now().Before(w.expiresAt) {
		w = nil
	}
	if w == nil {
		w = &memoryWindow{}
		s.windows[key] = w
	}

	nowMs := now.UnixMilli()
	windowStart := nowMs - window.Milliseconds()

	kept := w.scores[:0]
	for _, score := range w.scores {
		if score > windowStart {
			kept = append(kept, score)
		}
	}
	w.scores = kept

	count := int64(len(w.scores))
	w.scores = append(w.scores, nowMs)
	w.expiresAt = s.now().Add(window)

	return count, nil
}

func (s *Memory) Ping(context.Context) error {
	return nil
}
