package memstore

import (
	"context"
	"sync"

	redisclient "github.com/hackgods/clinic-queue/internal/redis"
)

// Locker is a process-local redisclient.Locker. Like SET NX it fails fast
// with ErrLockNotAcquired instead of waiting for the holder.
type Locker struct {
	mu   sync.Mutex
	held map[string]bool
}

var _ redisclient.Locker = (*Locker)(nil)

func NewLocker() *Locker {
	return &Locker{held: map[string]bool{}}
}

func (l *Locker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	l.mu.Lock()
	if l.held[key] {
		l.mu.Unlock()
		return redisclient.ErrLockNotAcquired
	}
	l.held[key] = true
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		delete(l.held, key)
		l.mu.Unlock()
	}()

	return fn(ctx)
}

// Held reports whether key is currently locked.
func (l *Locker) Held(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.held[key]
}
