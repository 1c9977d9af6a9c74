package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/sol-e-e/realtime-chat/internal/chat"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// History reads what the relay has persisted.
type History interface {
	Messages(ctx context.Context, chatID string, limit int64) ([]chat.Message, error)
	Presence(ctx context.Context, userID string) (chat.Presence, error)
}

type Handlers struct {
	ctx     context.Context
	manager *chat.Manager
	history History
	log     *zap.Logger
	started time.Time
}

// New returns handlers serving manager and history. ctx is the parent of
// every connection's action context.
func New(ctx context.Context, manager *chat.Manager, history History, log *zap.Logger) *Handlers {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handlers{ctx: ctx, manager: manager, history: history, log: log.Named("http"), started: time.Now()}
}

// Register mounts the routes on app.
func (h *Handlers) Register(app *fiber.App) {
	app.Get("/", h.StatusHandler)
	app.Get("/health", h.HealthHandler)

	api := app.Group("/api")
	api.Get("/users/online", h.OnlineUsersHandler) // ?exclude=userId
	api.Get("/users/:userId/presence", h.PresenceHandler)
	api.Get("/chats/:chatId/messages", h.MessagesHandler) // ?limit=n
	api.Get("/ws", h.UpgradeHandler, websocket.New(h.ConnectHandler))
}

// UpgradeHandler rejects plain HTTP requests to the WebSocket endpoint.
func (h *Handlers) UpgradeHandler(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// ConnectHandler GET /api/ws
func (h *Handlers) ConnectHandler(c *websocket.Conn) {
	h.log.Debug("websocket opened", zap.String("remote", c.RemoteAddr().String()))
	h.manager.Serve(h.ctx, c)
}

// StatusHandler GET /
func (h *Handlers) StatusHandler(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"message":        "Realtime chat relay",
		"status":         "running",
		"connectedUsers": h.manager.ConnectedUsers(),
	})
}

// HealthHandler GET /health
func (h *Handlers) HealthHandler(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(h.started).Seconds(),
	})
}

// OnlineUsersHandler GET /api/users/online?exclude=userId
func (h *Handlers) OnlineUsersHandler(c *fiber.Ctx) error {
	return c.JSON(h.manager.OnlineUsers(c.Query("exclude")))
}

// PresenceHandler GET /api/users/:userId/presence
func (h *Handlers) PresenceHandler(c *fiber.Ctx) error {
	p, err := h.history.Presence(c.UserContext(), c.Params("userId"))
	if err != nil {
		return errors.Wrap(err, "read presence")
	}
	return c.JSON(p)
}

// MessagesHandler GET /api/chats/:chatId/messages?limit=n
func (h *Handlers) MessagesHandler(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", defaultHistoryLimit)
	if limit <= 0 || limit > maxHistoryLimit {
		return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("limit must be between 1 and %d", maxHistoryLimit))
	}
	msgs, err := h.history.Messages(c.UserContext(), c.Params("chatId"), int64(limit))
	if errors.Is(err, chat.ErrRoomNotFound) {
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	}
	if err != nil {
		return errors.Wrap(err, "read messages")
	}
	return c.JSON(msgs)
}
