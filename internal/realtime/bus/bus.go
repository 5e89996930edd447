package bus

import (
	"context"

	"github.com/NavnathGunjal07/LearnBase-sub000/internal/realtime"
)

type Bus interface {
	Publish(ctx context.Context, msg realtime.Event) error
	StartForwarder(ctx context.Context, onMsg func(m realtime.Event)) error
	Close() error
}

// NewNoop returns a bus that drops everything, for single-instance runs
// without Redis.
func NewNoop() Bus { return noopBus{} }

type noopBus struct{}

func (noopBus) Publish(context.Context, realtime.Event) error { return nil }
func (noopBus) StartForwarder(context.Context, func(m realtime.Event)) error {
	return nil
}
func (noopBus) Close() error { return nil }

