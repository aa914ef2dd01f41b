package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BenderTales/tales-chat-api/internal/chat"
	"github.com/BenderTales/tales-chat-api/internal/chatconf"
	appcfg "github.com/BenderTales/tales-chat-api/internal/config"
	"github.com/BenderTales/tales-chat-api/internal/gateway"
	"github.com/BenderTales/tales-chat-api/internal/msgcat"
	"github.com/BenderTales/tales-chat-api/internal/obslog"
	"github.com/BenderTales/tales-chat-api/internal/perms"
)

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer func() { _ = obslog.L().Sync() }()

	permBackend, err := perms.LoadFile(cfg.PermissionsPath)
	if err != nil {
		obslog.L().Fatal("permissions_load_failed", zap.Error(err))
	}

	catalog, err := msgcat.New()
	if err != nil {
		obslog.L().Fatal("message_catalog_failed", zap.Error(err))
	}

	// Optional Redis-backed player settings persistence.
	var backend chat.SettingsBackend
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			obslog.L().Fatal("redis_url_invalid", zap.Error(err))
		}
		backend = chat.NewRedisSettingsBackend(redis.NewClient(opts))
		obslog.L().Info("settings_persistence_enabled")
	}

	// The gateway is roster and sink; the manager routes through it.
	srv := gateway.NewServer(cfg.ListenAddr, permBackend, catalog)
	source := chatconf.NewRepository(cfg.ChatConfigPath, permBackend, srv.Distance)
	manager := chat.NewManager(source, srv, permBackend, srv, chat.NewSettingsStore(backend))
	srv.SetManager(manager)

	if err := manager.Load(); err != nil {
		obslog.L().Fatal("initial_load_failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(ctx) })
	if cfg.AdminAddr != "" {
		g.Go(func() error { return srv.RunAdmin(ctx, cfg.AdminAddr) })
	}

	if err := g.Wait(); err != nil {
		obslog.L().Fatal("server_exited", zap.Error(err))
	}
}
