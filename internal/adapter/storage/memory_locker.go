package storage

import (
	"context"
	"sync"
)

// MemoryLocker is the single-process CheckoutLocker.
type MemoryLocker struct {
	mu    sync.Mutex
	users map[int64]*sync.Mutex
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{users: make(map[int64]*sync.Mutex)}
}

func (l *MemoryLocker) AcquireCheckout(ctx context.Context, userID int64) (func(context.Context) error, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	l.mu.Lock()
	m, ok := l.users[userID]
	if !ok {
		m = &sync.Mutex{}
		l.users[userID] = m
	}
	l.mu.Unlock()

	if !m.TryLock() {
		return nil, false, nil
	}

	var once sync.Once
	release := func(context.Context) error {
		once.Do(m.Unlock)
		return nil
	}
	return release, true, nil
}
