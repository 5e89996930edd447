package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/NavnathGunjal07/LearnBase-sub000/internal/platform/logger"
	"github.com/NavnathGunjal07/LearnBase-sub000/internal/wire"
)

// Conn wraps one websocket with its session state and liveness flag.
// State is only touched from the connection's read loop; alive is guarded
// by the registry's lock; writes are serialized by wmu.
type Conn struct {
	ID    uuid.UUID
	State wire.ConnState

	ws  *websocket.Conn
	log *logger.Logger

	wmu sync.Mutex

	// alive is flipped false at each heartbeat tick and back true when a
	// ping answers. Guarded by the owning registry's mutex.
	alive bool

	// ping, write and terminate are swappable for tests.
	ping      func(ctx context.Context) error
	write     func(ctx context.Context, data []byte) error
	terminate func()
}

func NewConn(wsc *websocket.Conn, log *logger.Logger) *Conn {
	id := uuid.New()
	c := &Conn{
		ID:    id,
		State: wire.ConnState{ConnID: id},
		ws:    wsc,
		log:   log.With("conn_id", id.String()),
		alive: true,
	}
	c.ping = func(ctx context.Context) error { return wsc.Ping(ctx) }
	c.write = func(ctx context.Context, data []byte) error {
		return wsc.Write(ctx, websocket.MessageText, data)
	}
	c.terminate = func() { _ = wsc.Close(websocket.StatusPolicyViolation, "heartbeat timeout") }
	return c
}

// Send marshals one frame and writes it as a text message. Safe for
// concurrent use; flows and the registry forwarder share it.
func (c *Conn) Send(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	c.wmu.Lock()
	defer c.wmu.Unlock()
	return c.write(ctx, data)
}

// Read blocks for the next text frame and decodes the inbound envelope.
// Frames that are not JSON objects are treated as a plain chat message.
func (c *Conn) Read(ctx context.Context) (wire.Inbound, error) {
	var msg wire.Inbound
	_, data, err := c.ws.Read(ctx)
	if err != nil {
		return msg, err
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		return wire.Inbound{Type: wire.TypeMessage, Content: string(data)}, nil
	}
	return msg, nil
}

func (c *Conn) Close() {
	_ = c.ws.Close(websocket.StatusNormalClosure, "")
}
