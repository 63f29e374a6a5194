// Package lock provides short-lived, owner-scoped claims used to keep two workers from
// processing the same entity at once. Claims expire on their own; Release is best effort.
package lock

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrInvalidKey = errors.New("lock key is empty")

type Locker interface {
	// Acquire reports whether the caller now holds key for ttl.
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Release drops key if this locker still owns it.
	Release(ctx context.Context, key string) error
}

// SweepKey builds the claim key for one entity processed by a sweep job.
func SweepKey(job, id string) string {
	return fmt.Sprintf("sweep:%s:%s", job, id)
}

func validate(key string, ttl time.Duration) error {
	if strings.TrimSpace(key) == "" {
		return ErrInvalidKey
	}
	if ttl <= 0 {
		return fmt.Errorf("lock ttl must be positive, got %s", ttl)
	}
	return nil
}
