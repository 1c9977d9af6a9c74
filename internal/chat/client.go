package chat

import (
	"context"
	"errors"
	"sync"

	"github.com/gofiber/contrib/websocket"
	"go.uber.org/zap"
)

// Client is one live transport connection.
type Client struct {
	ID   string
	Conn ConnLike

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

type ConnLike interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(int, []byte) error
	Close() error
}

func newClient(id string, conn ConnLike, buffer int) *Client {
	return &Client{
		ID:   id,
		Conn: conn,
		send: make(chan []byte, buffer),
		done: make(chan struct{}),
	}
}

// deliver queues data without blocking. Closed or saturated clients drop it.
func (c *Client) deliver(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.Conn.Close()
	})
}

func (c *Client) closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// ReadPump decodes frames and dispatches them until the connection fails.
func (c *Client) ReadPump(ctx context.Context, m *Manager) {
	for {
		_, data, err := c.Conn.ReadMessage()
		if err != nil {
			if !c.closed() && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				m.log.Debug("read failed", zap.String("conn", c.ID), zap.Error(err))
			}
			return
		}
		action, err := DecodeAction(data)
		if err != nil {
			m.log.Debug("rejected frame", zap.String("conn", c.ID), zap.Error(err))
			msg := "invalid message"
			if errors.Is(err, ErrUnknownEvent) || errors.Is(err, ErrInvalidPayload) {
				msg = err.Error()
			}
			m.emit(c, EventError, failure(msg))
			continue
		}
		m.Dispatch(ctx, c, action)
	}
}

// WritePump is the only writer of Conn.
func (c *Client) WritePump(log *zap.Logger) {
	for {
		select {
		case data := <-c.send:
			if err := c.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Debug("write failed", zap.String("conn", c.ID), zap.Error(err))
				c.close()
				return
			}
		case <-c.done:
			return
		}
	}
}
