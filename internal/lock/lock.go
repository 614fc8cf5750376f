// Package lock provides resource-scoped mutual exclusion with TTL expiry.
//
// A Service hands out at most one valid Token per key at any instant. Tokens
// expire on their own after the TTL so a holder that crashes without
// releasing cannot block the resource forever.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrNotHeld is returned by Release when the token no longer owns its key,
// either because it expired or because it was already released.
var ErrNotHeld = errors.New("lock not held")

// Token proves ownership of a lock on Key.
type Token struct {
	Key    string
	Holder string
}

// Service acquires and releases resource locks.
type Service interface {
	// TryAcquire attempts to take the lock on key for ttl. It does not wait:
	// ok is false when another holder owns the key.
	TryAcquire(ctx context.Context, key string, ttl time.Duration) (token Token, ok bool, err error)

	// Release frees the lock if token still owns it. Releasing an expired or
	// foreign token returns ErrNotHeld and leaves the current holder untouched.
	Release(ctx context.Context, token Token) error
}

// ClusterKey returns the lock key guarding clustering of a board.
func ClusterKey(boardID int64) string {
	return fmt.Sprintf("cluster:%d", boardID)
}

// newHolder returns a unique holder identity.
func newHolder() string {
	return uuid.NewString()
}
