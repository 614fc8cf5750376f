package lock

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	holder    string
	expiresAt time.Time
}

// MemoryService is an in-process Service. It is safe for concurrent use.
type MemoryService struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

var _ Service = (*MemoryService)(nil)

// NewMemoryService returns an empty in-memory lock service.
func NewMemoryService() *MemoryService {
	return &MemoryService{entries: make(map[string]memoryEntry), now: time.Now}
}

// TryAcquire implements Service.
func (s *MemoryService) TryAcquire(ctx context.Context, key string, ttl time.Duration) (Token, bool, error) {
	if err := ctx.Err(); err != nil {
		return Token{}, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if e, ok := s.entries[key]; ok && now.Before(e.expiresAt) {
		return Token{}, false, nil
	}

	token := Token{Key: key, Holder: newHolder()}
	s.entries[key] = memoryEntry{holder: token.Holder, expiresAt: now.Add(ttl)}
	return token, true, nil
}

// Release implements Service.
func (s *MemoryService) Release(_ context.Context, token Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[token.Key]
	if !ok || e.holder != token.Holder || !s.now().Before(e.expiresAt) {
		return ErrNotHeld
	}
	delete(s.entries, token.Key)
	return nil
}

// Held reports whether key is currently locked.
func (s *MemoryService) Held(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	return ok && s.now().Before(e.expiresAt)
}
