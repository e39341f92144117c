package relay

import (
	"context"
	"sync"
)

type accountSemaphore struct {
	ch chan struct{}
}

func newAccountSemaphore() *accountSemaphore {
	s := &accountSemaphore{ch: make(chan struct{}, 1)}
	s.ch <- struct{}{}
	return s
}

// accountLocks hands out one lock per account id. Entries are kept for the process lifetime.
type accountLocks struct {
	m sync.Map // account id -> *accountSemaphore
}

// acquire blocks until the account's lock is held or ctx is done.
func (l *accountLocks) acquire(ctx context.Context, accountID string) (release func(), err error) {
	val, _ := l.m.LoadOrStore(accountID, newAccountSemaphore())
	sem := val.(*accountSemaphore)
	select {
	case <-sem.ch:
		return func() { sem.ch <- struct{}{} }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
