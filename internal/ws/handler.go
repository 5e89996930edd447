package ws

import (
	"context"
	"errors"
	"strings"

	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"

	"github.com/NavnathGunjal07/LearnBase-sub000/internal/data/repos"
	types "github.com/NavnathGunjal07/LearnBase-sub000/internal/domain"
	"github.com/NavnathGunjal07/LearnBase-sub000/internal/pkg/dbctx"
	"github.com/NavnathGunjal07/LearnBase-sub000/internal/platform/logger"
	"github.com/NavnathGunjal07/LearnBase-sub000/internal/services"
	"github.com/NavnathGunjal07/LearnBase-sub000/internal/wire"
)

// Handler upgrades HTTP requests to websockets and drives the per-connection
// read loop.
type Handler struct {
	log        *logger.Logger
	tokens     services.TokenService
	users      repos.UserRepo
	registry   *Registry
	dispatcher *Dispatcher
}

func NewHandler(log *logger.Logger, tokens services.TokenService, users repos.UserRepo, registry *Registry, dispatcher *Dispatcher) *Handler {
	return &Handler{
		log:        log.With("component", "ws_handler"),
		tokens:     tokens,
		users:      users,
		registry:   registry,
		dispatcher: dispatcher,
	}
}

func (h *Handler) Serve() gin.HandlerFunc {
	return func(c *gin.Context) {
		wsc, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
			OriginPatterns: []string{"*"},
		})
		if err != nil {
			h.log.Warn("websocket accept failed", "error", err)
			return
		}

		conn := NewConn(wsc, h.log)
		defer conn.Close()

		ctx := c.Request.Context()
		user, err := h.authenticate(ctx, c)
		if err != nil {
			_ = conn.Send(wire.NewAuthRequired())
			wsc.Close(websocket.StatusPolicyViolation, "authentication required")
			return
		}

		conn.State.Authenticated = true
		conn.State.UserID = user.ID
		conn.State.OnboardingDone = user.HasCompletedOnboarding
		welcome := "Welcome back!"
		if !user.HasCompletedOnboarding {
			welcome = "Let's finish setting up your profile."
		}
		_ = conn.Send(wire.Authenticated{
			Type:    "authenticated",
			Message: welcome,
			UserID:  user.ID.String(),
		})

		h.registry.Register(conn)
		defer h.registry.Unregister(conn)

		h.readLoop(ctx, conn)
	}
}

// authenticate resolves the user from the token query param or a bearer
// Authorization header.
func (h *Handler) authenticate(ctx context.Context, c *gin.Context) (*types.User, error) {
	token := c.Query("token")
	if token == "" {
		auth := c.GetHeader("Authorization")
		token = strings.TrimPrefix(auth, "Bearer ")
		if token == auth {
			token = ""
		}
	}
	if token == "" {
		return nil, errors.New("missing token")
	}
	userID, err := h.tokens.Verify(token)
	if err != nil {
		return nil, err
	}
	return h.users.GetByID(dbctx.Context{Ctx: ctx}, userID)
}

func (h *Handler) readLoop(ctx context.Context, conn *Conn) {
	for {
		msg, err := conn.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway || ctx.Err() != nil {
				return
			}
			h.log.Info("read loop ended", "conn_id", conn.ID.String(), "error", err)
			return
		}
		if err := h.dispatcher.Dispatch(ctx, &conn.State, conn, msg); err != nil {
			h.log.Error("dispatch failed", "conn_id", conn.ID.String(), "msg_type", msg.Type, "error", err)
			if serr := conn.Send(wire.NewError(wire.ErrInternal, "Something went wrong. Please try again.")); serr != nil {
				return
			}
		}
	}
}
