package main

import (
	"context"

	"go.uber.org/zap"

	"github.com/sol-e-e/realtime-chat/internal/config"
	"github.com/sol-e-e/realtime-chat/internal/notify"
	"github.com/sol-e-e/realtime-chat/internal/store"
	"github.com/sol-e-e/realtime-chat/internal/store/memory"
	mongostore "github.com/sol-e-e/realtime-chat/internal/store/mongo"
	redisstore "github.com/sol-e-e/realtime-chat/internal/store/redis"
)

type closer func(context.Context) error

// newGateway picks the room store and the presence store from cfg. The
// returned closers release what was opened, in reverse order of opening.
func newGateway(ctx context.Context, cfg *config.Config, log *zap.Logger) (store.Gateway, []closer, error) {
	var (
		rooms    store.RoomStore
		presence store.PresenceStore
		closers  []closer
	)

	switch cfg.Store {
	case config.StoreMongo:
		db, err := mongostore.NewDB(ctx, cfg.MongoURL, cfg.MongoDatabase)
		if err != nil {
			return store.Gateway{}, nil, err
		}
		closers = append(closers, func(ctx context.Context) error { return db.Client().Disconnect(ctx) })
		if err := mongostore.EnsureIndexes(ctx, db); err != nil {
			return store.Gateway{}, closers, err
		}
		s := mongostore.NewStore(db)
		rooms, presence = s, s
	default:
		s := memory.New()
		rooms, presence = s, s
	}

	if cfg.PresenceStore == config.StoreRedis {
		rdb, err := redisstore.NewClient(ctx, cfg.RedisAddr)
		if err != nil {
			return store.Gateway{}, closers, err
		}
		closers = append(closers, func(context.Context) error { return rdb.Close() })
		p := redisstore.NewPresenceStore(rdb, redisstore.DefaultPrefix)
		if err := p.Reset(ctx); err != nil {
			return store.Gateway{}, closers, err
		}
		presence = p
	}

	log.Info("gateway ready",
		zap.String("store", cfg.Store),
		zap.String("presence", cfg.PresenceStore))
	return store.NewGateway(rooms, presence), closers, nil
}

// newPublisher returns nil when NATS is not configured.
func newPublisher(cfg *config.Config, log *zap.Logger) (*notify.NATSPublisher, error) {
	if cfg.NATSURL == "" {
		return nil, nil
	}
	p, err := notify.Connect(cfg.NATSURL, cfg.NATSSubjectPrefix, log)
	if err != nil {
		return nil, err
	}
	log.Info("publishing messages to nats", zap.String("url", cfg.NATSURL), zap.String("prefix", cfg.NATSSubjectPrefix))
	return p, nil
}

func closeAll(ctx context.Context, log *zap.Logger, closers []closer) {
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](ctx); err != nil {
			log.Warn("close failed", zap.Error(err))
		}
	}
}
