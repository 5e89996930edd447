package ws

import (
	"context"

	"github.com/NavnathGunjal07/LearnBase-sub000/internal/platform/logger"
	"github.com/NavnathGunjal07/LearnBase-sub000/internal/services"
	"github.com/NavnathGunjal07/LearnBase-sub000/internal/wire"
)

// Dispatcher routes inbound frames to the onboarding or learning flow
// based on the connection's authentication and onboarding state.
type Dispatcher struct {
	log        *logger.Logger
	onboarding services.OnboardingService
	learning   services.LearningService
}

func NewDispatcher(log *logger.Logger, onboarding services.OnboardingService, learning services.LearningService) *Dispatcher {
	return &Dispatcher{
		log:        log.With("component", "ws_dispatcher"),
		onboarding: onboarding,
		learning:   learning,
	}
}

func (d *Dispatcher) Dispatch(ctx context.Context, st *wire.ConnState, sink wire.Sink, msg wire.Inbound) error {
	if !st.Authenticated {
		if err := sink.Send(wire.NewError(wire.ErrAuth, "Authentication required")); err != nil {
			return err
		}
		return sink.Send(wire.NewAuthRequired())
	}

	if !st.OnboardingDone {
		switch msg.Type {
		case wire.TypeStartOnboarding:
			return d.onboarding.Start(ctx, st, sink)
		case wire.TypeOnboardingMessage, wire.TypeMessage:
			return d.onboarding.HandleMessage(ctx, st, sink, msg.Content)
		default:
			return sink.Send(wire.NewError(wire.ErrValidation, "Complete onboarding first"))
		}
	}

	switch msg.Type {
	case wire.TypeTopicSelected:
		if msg.Topic == nil {
			return sink.Send(wire.NewError(wire.ErrValidation, "Missing topic payload"))
		}
		return d.learning.HandleTopicSelected(ctx, st, sink, *msg.Topic)
	case wire.TypeSessionResumed:
		return d.learning.HandleSessionResumed(ctx, st, sink, msg)
	case wire.TypeNewChat:
		return d.learning.HandleNewChat(ctx, st, sink)
	case wire.TypeQuizAnswer:
		return d.learning.HandleQuizAnswer(ctx, st, sink, msg.Content)
	case wire.TypeMessage, wire.TypeOnboardingMessage:
		return d.learning.HandleMessage(ctx, st, sink, msg.Content)
	case wire.TypeStartOnboarding:
		// Completed users greet straight into learning.
		return d.learning.InitSession(ctx, st, sink)
	default:
		d.log.Warn("unsupported message type", "msg_type", msg.Type)
		return sink.Send(wire.NewError(wire.ErrUnsupported, "Unsupported message type: "+msg.Type))
	}
}
