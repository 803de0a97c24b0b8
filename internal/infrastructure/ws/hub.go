package ws

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Conn is one live subscriber peer.
type Conn interface {
	Send(payload []byte) error
	Close() error
}

// Hub tracks the live subscriber set. It is safe for concurrent
// register/unregister/broadcast; broadcast iterates over a copy of the set.
type Hub struct {
	mu     sync.Mutex
	conns  map[Conn]struct{}
	notify chan struct{}
	log    *zap.Logger
}

func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		conns:  make(map[Conn]struct{}),
		notify: make(chan struct{}, 1),
		log:    log,
	}
}

func (h *Hub) Register(c Conn) {
	h.mu.Lock()
	h.conns[c] = struct{}{}
	n := len(h.conns)
	h.mu.Unlock()
	select {
	case h.notify <- struct{}{}:
	default:
	}
	h.log.Info("subscriber_registered", zap.Int("subscribers", n))
}

func (h *Hub) Unregister(c Conn) {
	h.mu.Lock()
	delete(h.conns, c)
	n := len(h.conns)
	h.mu.Unlock()
	h.log.Info("subscriber_unregistered", zap.Int("subscribers", n))
}

func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// WaitForAny returns true as soon as at least one subscriber is registered,
// or false once timeout elapses. A registration signal left over from a peer
// that has already disconnected wakes the wait but never yields a false
// positive: emptiness is re-checked after every wakeup.
func (h *Hub) WaitForAny(ctx context.Context, timeout time.Duration) bool {
	if h.Len() > 0 {
		return true
	}
	if timeout <= 0 {
		return false
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return h.Len() > 0
		case <-timer.C:
			return h.Len() > 0
		case <-h.notify:
			if h.Len() > 0 {
				return true
			}
		}
	}
}

// Broadcast delivers the payload to every registered peer. A peer whose send
// fails is evicted and closed; the remaining peers still receive the message.
func (h *Hub) Broadcast(payload []byte) {
	h.mu.Lock()
	conns := make([]Conn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, c := range conns {
		if err := c.Send(payload); err != nil {
			h.log.Info("subscriber_send_failed", zap.Error(err))
			h.Unregister(c)
			_ = c.Close()
		}
	}
}
