package store

import "sync"

type seqGenerator struct {
	mu        sync.Mutex
	perStream map[string]int64
}

func newSeqGenerator() *seqGenerator {
	return &seqGenerator{perStream: make(map[string]int64)}
}

func (g *seqGenerator) next(stream string) int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.perStream[stream]++
	return g.perStream[stream]
}

// observe raises the stream counter to at least seq. Used when restoring a snapshot.
func (g *seqGenerator) observe(stream string, seq int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if seq > g.perStream[stream] {
		g.perStream[stream] = seq
	}
}

func historyStream(accountID string) string { return "history|" + accountID }
func commandStream(accountID string) string { return "commands|" + accountID }
func eventStream(accountID string) string   { return "events|" + accountID }
