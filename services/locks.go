package services

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// nameLocks serializa comandos que mutam a mesma instância (por nome) dentro do processo.
type nameLocks struct {
	mu      sync.Mutex
	entries map[string]*nameLock
}

type nameLock struct {
	sem  *semaphore.Weighted
	refs int
}

func newNameLocks() *nameLocks {
	return &nameLocks{entries: make(map[string]*nameLock)}
}

// acquire bloqueia até obter o nome ou o ctx terminar.
func (l *nameLocks) acquire(ctx context.Context, name string) (func(), error) {
	l.mu.Lock()
	e, ok := l.entries[name]
	if !ok {
		e = &nameLock{sem: semaphore.NewWeighted(1)}
		l.entries[name] = e
	}
	e.refs++
	l.mu.Unlock()

	if err := e.sem.Acquire(ctx, 1); err != nil {
		l.unref(name, e)
		return nil, err
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			e.sem.Release(1)
			l.unref(name, e)
		})
	}, nil
}

func (l *nameLocks) unref(name string, e *nameLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.entries, name)
	}
}

func (l *nameLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
