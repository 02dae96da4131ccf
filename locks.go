package catalogsync

import (
	"context"
	"sync"
)

// vendorLocks is a keyed mutex: at most one holder per vendor, waiters
// give up when their context ends.
type vendorLocks struct {
	mu   sync.Mutex
	held map[string]*vendorLock
}

type vendorLock struct {
	ch   chan struct{}
	refs int // holder plus waiters
}

func newVendorLocks() *vendorLocks {
	return &vendorLocks{held: make(map[string]*vendorLock)}
}

// lock blocks until vendorID is free or ctx is done. The returned func
// releases the lock.
func (l *vendorLocks) lock(ctx context.Context, vendorID string) (func(), error) {
	l.mu.Lock()
	vl, ok := l.held[vendorID]
	if !ok {
		vl = &vendorLock{ch: make(chan struct{}, 1)}
		l.held[vendorID] = vl
	}
	vl.refs++
	l.mu.Unlock()

	select {
	case vl.ch <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-vl.ch
				l.release(vendorID, vl)
			})
		}, nil
	case <-ctx.Done():
		l.release(vendorID, vl)
		return nil, ctx.Err()
	}
}

func (l *vendorLocks) release(vendorID string, vl *vendorLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	vl.refs--
	if vl.refs == 0 {
		delete(l.held, vendorID)
	}
}

// size returns the number of vendors with a holder or waiter.
func (l *vendorLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.held)
}
