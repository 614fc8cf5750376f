package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/phrazzld/moodboard-api/internal/lock"
)

// releaseScript deletes KEYS[1] only while it still holds ARGV[1].
var releaseScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
	return redis.call('DEL', KEYS[1])
end
return 0
`)

// LockService is a lock.Service on SET NX with expiry. A holder that dies
// without releasing loses the lock when the key expires.
type LockService struct {
	client *redis.Client
}

var _ lock.Service = (*LockService)(nil)

// NewLockService creates a LockService.
func NewLockService(client *redis.Client) *LockService {
	return &LockService{client: client}
}

// TryAcquire implements lock.Service.
func (s *LockService) TryAcquire(ctx context.Context, key string, ttl time.Duration) (lock.Token, bool, error) {
	holder := uuid.NewString()
	ok, err := s.client.SetNX(ctx, key, holder, ttl).Result()
	if err != nil {
		return lock.Token{}, false, fmt.Errorf("acquire lock %s: %w", key, err)
	}
	if !ok {
		return lock.Token{}, false, nil
	}
	return lock.Token{Key: key, Holder: holder}, true, nil
}

// Release implements lock.Service.
func (s *LockService) Release(ctx context.Context, token lock.Token) error {
	n, err := releaseScript.Run(ctx, s.client, []string{token.Key}, token.Holder).Int()
	if err != nil {
		return fmt.Errorf("release lock %s: %w", token.Key, err)
	}
	if n == 0 {
		return lock.ErrNotHeld
	}
	return nil
}
