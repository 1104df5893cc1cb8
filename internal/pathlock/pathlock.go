// Package pathlock serializes writes per documentation file. Fixes to
// anchors in different files run in parallel; fixes to the same file
// queue up in arrival order.
package pathlock

import (
	"context"
	"sync"
)

// PathMutex hands out one mutex per path, created on demand and
// released when its last holder is done.
type PathMutex struct {
	mu    sync.Mutex
	locks map[string]*pathEntry
}

type pathEntry struct {
	ch   chan struct{} // capacity 1; holding the token means holding the lock
	refs int
}

// New creates an empty PathMutex.
func New() *PathMutex {
	return &PathMutex{locks: make(map[string]*pathEntry)}
}

// Lock acquires the mutex for path, blocking until it is available or
// ctx is done. On success the caller must call the returned release
// function exactly once.
func (m *PathMutex) Lock(ctx context.Context, path string) (func(), error) {
	m.mu.Lock()
	entry, ok := m.locks[path]
	if !ok {
		entry = &pathEntry{ch: make(chan struct{}, 1)}
		m.locks[path] = entry
	}
	entry.refs++
	m.mu.Unlock()

	select {
	case entry.ch <- struct{}{}:
		return func() { m.release(path, entry) }, nil
	case <-ctx.Done():
		m.unref(path, entry)
		return nil, ctx.Err()
	}
}

// Run executes fn while holding the mutex for path.
func (m *PathMutex) Run(ctx context.Context, path string, fn func() error) error {
	release, err := m.Lock(ctx, path)
	if err != nil {
		return err
	}
	defer release()
	return fn()
}

func (m *PathMutex) release(path string, entry *pathEntry) {
	<-entry.ch
	m.unref(path, entry)
}

// unref drops one reference and deletes the bookkeeping entry once no
// holder or waiter remains, so the map does not grow with every path
// ever touched.
func (m *PathMutex) unref(path string, entry *pathEntry) {
	m.mu.Lock()
	entry.refs--
	if entry.refs == 0 && m.locks[path] == entry {
		delete(m.locks, path)
	}
	m.mu.Unlock()
}

// Active returns the number of paths currently locked or waited on.
func (m *PathMutex) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.locks)
}
