// Package hub fans out account activity to connected watchers.
package hub

import (
	"encoding/json"
	"sync"
)

const (
	TypeEvent           = "event"
	TypeCommandEnqueued = "command-enqueued"
	TypeCommandsDrained = "commands-drained"
)

// Message is the JSON frame sent to watchers.
type Message struct {
	Type      string `json:"type"`
	AccountID string `json:"account_id"`
	Body      any    `json:"body"`
}

type Writer interface {
	Write(message []byte) error
	Close() error
}

type Connection struct {
	AccountID string
	Writer    Writer
}

type Hub struct {
	mu          sync.RWMutex
	connections map[string]map[*Connection]struct{}
}

func New() *Hub {
	return &Hub{connections: make(map[string]map[*Connection]struct{})}
}

func (h *Hub) Register(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.connections[conn.AccountID] == nil {
		h.connections[conn.AccountID] = make(map[*Connection]struct{})
	}
	h.connections[conn.AccountID][conn] = struct{}{}
}

func (h *Hub) Unregister(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set := h.connections[conn.AccountID]
	if set == nil {
		return
	}
	delete(set, conn)
	if len(set) == 0 {
		delete(h.connections, conn.AccountID)
	}
}

// Watchers reports how many connections watch accountID.
func (h *Hub) Watchers(accountID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections[accountID])
}

// Publish encodes a Message and broadcasts it. It is a no-op without watchers.
func (h *Hub) Publish(accountID, msgType string, body any) {
	if h.Watchers(accountID) == 0 {
		return
	}
	data, err := json.Marshal(Message{Type: msgType, AccountID: accountID, Body: body})
	if err != nil {
		return
	}
	h.Broadcast(accountID, data)
}

func (h *Hub) Broadcast(accountID string, message []byte) {
	h.mu.RLock()
	set := h.connections[accountID]
	conns := make([]*Connection, 0, len(set))
	for c := range set {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	var failed []*Connection
	for _, c := range conns {
		if err := c.Writer.Write(message); err != nil {
			failed = append(failed, c)
		}
	}
	for _, c := range failed {
		_ = c.Writer.Close()
		h.Unregister(c)
	}
}
