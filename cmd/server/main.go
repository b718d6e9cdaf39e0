package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/Mohammad-Harkous/chat-app-backend/internal/auth"
	"github.com/Mohammad-Harkous/chat-app-backend/internal/cache"
	"github.com/Mohammad-Harkous/chat-app-backend/internal/config"
	"github.com/Mohammad-Harkous/chat-app-backend/internal/events"
	"github.com/Mohammad-Harkous/chat-app-backend/internal/logger"
	"github.com/Mohammad-Harkous/chat-app-backend/internal/metrics"
	"github.com/Mohammad-Harkous/chat-app-backend/internal/presence"
	"github.com/Mohammad-Harkous/chat-app-backend/internal/repository"
	"github.com/Mohammad-Harkous/chat-app-backend/internal/server"
	"github.com/Mohammad-Harkous/chat-app-backend/internal/service"
	"github.com/Mohammad-Harkous/chat-app-backend/internal/ws"
)

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config load: %v", err)
	}
	if cfg.JWT.Secret == "" {
		log.Fatal("jwt secret is required")
	}

	zlog, err := logger.New(cfg.Development())
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	metrics.Init()

	ctx := context.Background()

	mongoClient, err := repository.Connect(ctx, cfg.Mongo.URI)
	if err != nil {
		zlog.Fatalw("mongo connect", "err", err)
	}
	defer func() { _ = mongoClient.Disconnect(context.Background()) }()

	db := mongoClient.Database(cfg.Mongo.Database)
	if err := repository.EnsureIndexes(ctx, db); err != nil {
		zlog.Fatalw("mongo indexes", "err", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		// the ephemeral store is optional at startup; the service degrades
		zlog.Warnw("redis unreachable, presence and caching degraded", "err", err)
	}
	cancel()
	defer func() { _ = rdb.Close() }()

	verifier := auth.NewVerifier(cfg.JWT.Secret)
	presenceStore := presence.NewStore(rdb, cfg.Redis.Prefix)
	msgCache := cache.NewMessageCache(rdb, cfg.Redis.Prefix)

	hub := ws.NewHub(zlog)
	gateway := ws.NewGateway(hub, presenceStore, verifier, ws.GatewayConfig{
		PingInterval:   cfg.PingInterval,
		WriteDeadline:  cfg.WriteDeadline,
		ReadDeadline:   cfg.ReadDeadline,
		MaxMessageSize: cfg.WS.MaxMessageSizeBytes,
	}, zlog)

	publisher := events.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, zlog)
	defer func() { _ = publisher.Close() }()

	svc := service.NewChatService(
		repository.NewConversationRepository(db),
		repository.NewMessageRepository(db),
		repository.NewUserRepository(db),
		presenceStore,
		msgCache,
		hub,
		publisher,
		zlog,
	)

	app := server.New(cfg, svc, gateway, verifier, rdb, zlog)

	errs := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.App.Port)
		zlog.Infow("starting chat backend", "addr", addr, "env", cfg.App.Env)
		errs <- app.Listen(addr)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errs:
		zlog.Fatalw("server error", "err", err)
	case s := <-sig:
		zlog.Infow("signal received", "signal", s.String())
	}

	if err := app.Shutdown(); err != nil {
		zlog.Warnw("fiber shutdown", "err", err)
	}
	zlog.Info("shutdown complete")
}
