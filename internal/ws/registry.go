package ws

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/NavnathGunjal07/LearnBase-sub000/internal/platform/logger"
	"github.com/NavnathGunjal07/LearnBase-sub000/internal/realtime"
)

const heartbeatInterval = 30 * time.Second

// Registry tracks live connections and reclaims dead ones. A connection
// that fails to answer a ping before the following tick is terminated,
// so a silent peer survives at most two intervals.
type Registry struct {
	log      *logger.Logger
	interval time.Duration

	mu    sync.Mutex
	conns map[uuid.UUID]*Conn
}

func NewRegistry(log *logger.Logger) *Registry {
	return &Registry{
		log:      log.With("component", "ws_registry"),
		interval: heartbeatInterval,
		conns:    make(map[uuid.UUID]*Conn),
	}
}

func (r *Registry) Register(c *Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c.alive = true
	r.conns[c.ID] = c
	r.log.Info("connection registered", "conn_id", c.ID.String(), "total", len(r.conns))
}

func (r *Registry) Unregister(c *Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns, c.ID)
	r.log.Info("connection unregistered", "conn_id", c.ID.String(), "total", len(r.conns))
}

// Run drives the heartbeat loop until ctx is cancelled.
func (r *Registry) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.sweep(ctx)
		}
	}
}

// sweep terminates connections whose previous ping never answered, then
// marks the rest pending and pings them again.
func (r *Registry) sweep(ctx context.Context) {
	r.mu.Lock()
	var stale []*Conn
	var pending []*Conn
	for _, c := range r.conns {
		if !c.alive {
			stale = append(stale, c)
			delete(r.conns, c.ID)
			continue
		}
		c.alive = false
		pending = append(pending, c)
	}
	r.mu.Unlock()

	for _, c := range stale {
		r.log.Warn("reclaiming unresponsive connection", "conn_id", c.ID.String())
		c.terminate()
	}
	for _, c := range pending {
		go func(c *Conn) {
			pctx, cancel := context.WithTimeout(ctx, r.interval)
			defer cancel()
			if err := c.ping(pctx); err != nil {
				return
			}
			r.mu.Lock()
			if _, ok := r.conns[c.ID]; ok {
				c.alive = true
			}
			r.mu.Unlock()
		}(c)
	}
}

// Deliver fans a cross-instance event out to the user's connections,
// skipping the socket the event originated on.
func (r *Registry) Deliver(ev realtime.Event) {
	r.mu.Lock()
	var targets []*Conn
	for _, c := range r.conns {
		if !c.State.Authenticated || c.State.UserID != ev.UserID {
			continue
		}
		if c.ID == ev.OriginConnID {
			continue
		}
		targets = append(targets, c)
	}
	r.mu.Unlock()

	for _, c := range targets {
		if err := c.Send(ev.Payload); err != nil {
			r.log.Warn("forwarded event dropped", "conn_id", c.ID.String(), "error", err)
		}
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}
