package main

import (
	"context"
	"log"
	"os"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"go.uber.org/zap"

	"github.com/sol-e-e/realtime-chat/internal/chat"
	"github.com/sol-e-e/realtime-chat/internal/config"
	"github.com/sol-e-e/realtime-chat/internal/handlers"
	"github.com/sol-e-e/realtime-chat/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	zl, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer zl.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gateway, closers, err := newGateway(ctx, cfg, zl)
	if err != nil {
		closeAll(context.Background(), zl, closers)
		zl.Fatal("gateway", zap.Error(err))
	}

	var opts []chat.Option
	publisher, err := newPublisher(cfg, zl)
	if err != nil {
		closeAll(context.Background(), zl, closers)
		zl.Fatal("publisher", zap.Error(err))
	}
	if publisher != nil {
		opts = append(opts, chat.WithPublisher(publisher))
		closers = append(closers, func(context.Context) error { return publisher.Close() })
	}

	// 启动聊天管理器
	manager := chat.NewManager(gateway, zl, opts...)
	go manager.Run(ctx, cfg.StatsInterval)

	app := handlers.NewApp(handlers.New(ctx, manager, gateway, zl), cfg.CORSOrigins)
	go func() {
		zl.Info("listening", zap.String("addr", cfg.Addr()))
		if err := app.Listen(cfg.Addr()); err != nil {
			zl.Fatal("listen failed", zap.Error(err))
		}
	}()

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			// Close every socket, stop the listener, let disconnects reach
			// the stores, then release the stores.
			"relay": func(ctx context.Context) error {
				zl.Info("shutting down")
				cancel()
				if err := app.ShutdownWithContext(ctx); err != nil {
					zl.Warn("http shutdown", zap.Error(err))
				}
				if err := manager.Wait(ctx); err != nil {
					zl.Warn("connections still open", zap.Int("count", manager.Connections()))
				}
				closeAll(ctx, zl, closers)
				return nil
			},
		},
	)

	exitCode := <-wait
	zl.Info("exited", zap.Int("code", exitCode))
	_ = zl.Sync()
	os.Exit(exitCode)
}
