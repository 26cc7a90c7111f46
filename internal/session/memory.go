package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// MemoryStore keeps records in process memory and evicts those idle longer
// than the TTL when the sweeper runs.
type MemoryStore struct {
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger

	mu      sync.RWMutex
	records map[string]*Record
}

func NewMemoryStore(ttl time.Duration, logger *slog.Logger) *MemoryStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &MemoryStore{
		ttl:     ttl,
		now:     time.Now,
		logger:  logger.With("component", "session_memory"),
		records: make(map[string]*Record),
	}
}

func (s *MemoryStore) GetOrCreate(_ context.Context, userID string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[userID]
	if !ok {
		rec = &Record{UserID: userID}
		s.records[userID] = rec
	}
	rec.LastAccess = s.now()
	return *rec, nil
}

func (s *MemoryStore) Get(_ context.Context, userID string, field Field) (string, error) {
	if !field.valid() {
		return "", fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[userID]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotFound, userID)
	}
	rec.LastAccess = s.now()
	return rec.get(field), nil
}

func (s *MemoryStore) Set(ctx context.Context, userID string, field Field, value string) error {
	return s.Update(ctx, userID, map[Field]string{field: value})
}

func (s *MemoryStore) Update(_ context.Context, userID string, values map[Field]string) error {
	for f := range values {
		if !f.valid() {
			return fmt.Errorf("%w: %s", ErrUnknownField, f)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[userID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, userID)
	}
	for f, v := range values {
		rec.set(f, v)
	}
	rec.LastAccess = s.now()
	return nil
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Sweep drops records idle for longer than the TTL and returns how many went.
func (s *MemoryStore) Sweep() int {
	if s.ttl <= 0 {
		return 0
	}
	cutoff := s.now().Add(-s.ttl)
	s.mu.Lock()
	defer s.mu.Unlock()
	evicted := 0
	for id, rec := range s.records {
		if rec.LastAccess.Before(cutoff) {
			delete(s.records, id)
			evicted++
		}
	}
	return evicted
}

// StartSweeper runs Sweep every interval until ctx is done.
func (s *MemoryStore) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 || s.ttl <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := s.Sweep(); n > 0 {
					s.logger.Info("evicted idle sessions", "count", n)
				}
			}
		}
	}()
}
