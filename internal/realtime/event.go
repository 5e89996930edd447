package realtime

import "github.com/google/uuid"

// Event is a cross-instance fan-out record. Progress written on one
// instance reaches the same user's sockets on every other instance.
type Event struct {
	Kind   string    `json:"kind"`
	UserID uuid.UUID `json:"user_id"`

	// OriginConnID identifies the socket whose flow produced the event;
	// forwarders skip it to avoid double delivery.
	OriginConnID uuid.UUID `json:"origin_conn_id"`

	Payload any `json:"payload"`
}

const (
	EventProgressUpdated = "progress_updated"
)
