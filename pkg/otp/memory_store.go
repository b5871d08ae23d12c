package otp

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process Store for development and tests.
// Records past their PurgeAt are dropped lazily on access.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]*Record
	now     func() time.Time
}

// MemoryStoreOption configures MemoryStore.
type MemoryStoreOption func(*MemoryStore)

// WithMemoryClock sets the clock used to evaluate PurgeAt.
func WithMemoryClock(now func() time.Time) MemoryStoreOption {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	s := &MemoryStore{
		records: make(map[string]*Record),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get implements Store.
func (s *MemoryStore) Get(ctx context.Context, purpose Purpose, recipient string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.lookup(RecordKey(purpose, recipient))
	if !ok {
		return nil, ErrRecordNotFound
	}
	return rec.clone(), nil
}

// Put implements Store.
func (s *MemoryStore) Put(ctx context.Context, rec *Record, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := rec.Key()
	current, ok := s.lookup(key)
	switch {
	case expectedVersion == 0 && ok:
		return ErrVersionConflict
	case expectedVersion != 0 && (!ok || current.Version != expectedVersion):
		return ErrVersionConflict
	}

	rec.Version = expectedVersion + 1
	s.records[key] = rec.clone()
	return nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(ctx context.Context, purpose Purpose, recipient string, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := RecordKey(purpose, recipient)
	current, ok := s.lookup(key)
	if !ok {
		return ErrRecordNotFound
	}
	if current.Version != expectedVersion {
		return ErrVersionConflict
	}
	delete(s.records, key)
	return nil
}

// Len returns the number of live records.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for key := range s.records {
		if _, ok := s.lookup(key); ok {
			n++
		}
	}
	return n
}

func (s *MemoryStore) lookup(key string) (*Record, bool) {
	rec, ok := s.records[key]
	if !ok {
		return nil, false
	}
	if !rec.PurgeAt.IsZero() && s.now().After(rec.PurgeAt) {
		delete(s.records, key)
		return nil, false
	}
	return rec, true
}
