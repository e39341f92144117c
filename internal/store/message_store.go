package store

import "sync"

// appendLog is a per-account append-only log.
type appendLog[T any] struct {
	mu   sync.RWMutex
	data map[string][]T
}

func newAppendLog[T any]() *appendLog[T] {
	return &appendLog[T]{data: make(map[string][]T)}
}

func (l *appendLog[T]) append(accountID string, v T) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.data[accountID] = append(l.data[accountID], v)
}

// list returns a copy of the account's records in append order.
func (l *appendLog[T]) list(accountID string) []T {
	l.mu.RLock()
	defer l.mu.RUnlock()

	src := l.data[accountID]
	out := make([]T, len(src))
	copy(out, src)
	return out
}

func (l *appendLog[T]) all() []T {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []T
	for _, items := range l.data {
		out = append(out, items...)
	}
	return out
}
