package repositories

import (
	"context"
	"sync"
)

// keyedLocker - набор мьютексов по строковому ключу. Запись удаляется,
// когда её больше никто не держит и не ждёт.
type keyedLocker struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	ch   chan struct{}
	refs int
}

func newKeyedLocker() *keyedLocker {
	return &keyedLocker{locks: make(map[string]*keyedLock)}
}

// Lock ждёт освобождения ключа или отмены контекста.
func (l *keyedLocker) Lock(ctx context.Context, key string) error {
	l.mu.Lock()
	lk, ok := l.locks[key]
	if !ok {
		lk = &keyedLock{ch: make(chan struct{}, 1)}
		l.locks[key] = lk
	}
	lk.refs++
	l.mu.Unlock()

	select {
	case lk.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		l.release(key, lk)
		return ctx.Err()
	}
}

func (l *keyedLocker) Unlock(key string) {
	l.mu.Lock()
	lk, ok := l.locks[key]
	l.mu.Unlock()
	if !ok {
		return
	}
	<-lk.ch
	l.release(key, lk)
}

func (l *keyedLocker) release(key string, lk *keyedLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	lk.refs--
	if lk.refs == 0 {
		delete(l.locks, key)
	}
}
