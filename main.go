package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/sanity-io/litter"

	"github.com/lazharichir/holdem/config"
	"github.com/lazharichir/holdem/domain"
	"github.com/lazharichir/holdem/domain/events"
	"github.com/lazharichir/holdem/game"
	"github.com/lazharichir/holdem/logging"
	"github.com/lazharichir/holdem/server"
	"github.com/lazharichir/holdem/store"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger := logging.New(cfg.Server.LogLevel)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg)
	if err != nil {
		logger.Fatal("open store", "backend", cfg.Store.Backend, "err", err)
	}
	defer st.Close()

	rules := domain.TableRules{
		MinBet:           cfg.Table.MinBet,
		PlayerTimeout:    cfg.Table.PlayerTimeout,
		BotDelay:         cfg.Table.BotDelay,
		BotCallThreshold: cfg.Table.BotCallThreshold,
		MaxStalls:        cfg.Table.MaxStalls,
	}

	lobby := game.NewLobby(st, events.NewInMemoryEventStore(), logger)
	defer lobby.Close()

	if cfg.Server.LogLevel == "debug" {
		lobby.RegisterEventHandler(func(event events.Event) {
			litter.D(event)
		})
	}

	srv := server.NewServer(lobby, rules, logger)

	logger.Info("starting", "addr", cfg.Server.Addr, "store", cfg.Store.Backend)
	if err := srv.Start(ctx, cfg.Server.Addr); err != nil {
		logger.Fatal("server failed", "err", err)
	}
}

func openStore(ctx context.Context, cfg config.Config) (store.Store, error) {
	switch cfg.Store.Backend {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, err
		}
		return store.NewRedisStore(client), nil
	case "postgres":
		return store.NewPostgresStore(ctx, cfg.Postgres.DSN)
	default:
		return store.NewMemoryStore(), nil
	}
}
