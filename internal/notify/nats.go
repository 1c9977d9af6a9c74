// Package notify publishes a copy of every persisted chat message to NATS
// for consumers outside the relay.
package notify

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/sol-e-e/realtime-chat/internal/chat"
)

const DefaultSubjectPrefix = "chat.messages"

// NATSPublisher implements chat.Publisher.
type NATSPublisher struct {
	nc     *nats.Conn
	prefix string
	log    *zap.Logger
}

var _ chat.Publisher = (*NATSPublisher)(nil)

// Connect dials url and keeps reconnecting for the life of the process.
func Connect(url, prefix string, log *zap.Logger) (*NATSPublisher, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("notify")
	nc, err := nats.Connect(url,
		nats.Name("realtime-chat"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(500*time.Millisecond),
		nats.Timeout(3*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("nats reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, errors.Wrapf(err, "connect to nats at %s", url)
	}
	return NewNATSPublisher(nc, prefix, log), nil
}

func NewNATSPublisher(nc *nats.Conn, prefix string, log *zap.Logger) *NATSPublisher {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &NATSPublisher{nc: nc, prefix: prefix, log: log}
}

// Subject returns "<prefix>.<chatID>" with characters that are special in
// subjects replaced by '_'.
func (p *NATSPublisher) Subject(chatID string) string {
	token := strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\r', '\n':
			return '_'
		}
		return r
	}, chatID)
	return p.prefix + "." + token
}

// PublishMessage sends msg as JSON. The message id is used as Nats-Msg-Id so
// a JetStream stream on the subject deduplicates retries.
func (p *NATSPublisher) PublishMessage(_ context.Context, msg *chat.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return errors.Wrap(err, "encode message")
	}
	out := nats.NewMsg(p.Subject(msg.ChatID))
	out.Data = data
	out.Header.Set(nats.MsgIdHdr, msg.ID)
	if err := p.nc.PublishMsg(out); err != nil {
		return errors.Wrapf(err, "publish message %s", msg.ID)
	}
	return nil
}

// Close flushes pending publishes and closes the connection.
func (p *NATSPublisher) Close() error {
	if err := p.nc.Drain(); err != nil {
		p.nc.Close()
		return errors.Wrap(err, "drain nats")
	}
	return nil
}
