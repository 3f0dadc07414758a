package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Taump/attestation-telegram/internal/attest"
	"github.com/Taump/attestation-telegram/internal/bot/telegram"
	"github.com/Taump/attestation-telegram/internal/config"
	"github.com/Taump/attestation-telegram/internal/logging"
	"github.com/Taump/attestation-telegram/internal/obyte"
	"github.com/Taump/attestation-telegram/internal/order"
	"github.com/Taump/attestation-telegram/internal/server"
	"github.com/Taump/attestation-telegram/internal/session"
	"github.com/Taump/attestation-telegram/internal/wallet"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("load config failed", slog.Any("error", err))
		os.Exit(1)
	}
	logger := logging.New(cfg.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, cfg); err != nil {
		logger.Error("service failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, cfg config.Config) error {
	validator, err := wallet.ForChain(cfg.Chain)
	if err != nil {
		return err
	}

	var repo order.Repository
	if cfg.Database.URL != "" {
		pool, err := pgxpool.New(ctx, cfg.Database.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		pg := order.NewPostgres(pool)
		if err := pg.Migrate(ctx); err != nil {
			return err
		}
		repo = pg
	} else {
		logger.Warn("no database url, using in-memory order store")
		repo = order.NewMemory()
	}

	sessions := session.NewMemory(cfg.Session.TTL)
	go sessions.Run(ctx)

	bridge := obyte.NewClient(logger, obyte.Config{
		BridgeURL:     cfg.Obyte.BridgeURL,
		DevicePubKey:  cfg.Obyte.DevicePubKey,
		Hub:           cfg.Obyte.Hub,
		PairingSecret: cfg.Obyte.PairingSecret,
	})

	core := attest.New(logger, repo, sessions, bridge, bridge, bridge, validator, attest.Links{
		BaseURL:     cfg.HTTP.BaseURL,
		BotUsername: cfg.Telegram.BotUsername,
		Testnet:     cfg.Obyte.Testnet,
	})
	core.Subscribe(func(event attest.AttestedEvent) {
		logger.Info("attestation published",
			slog.Int64("order_id", event.Order.ID),
			slog.String("unit", event.Unit))
	})

	bot, err := telegram.New(logger, cfg.Telegram.Token, core)
	if err != nil {
		return err
	}
	go bot.Run(ctx)

	srv := server.New(logger, core, cfg.Obyte.EventsToken)
	errs := make(chan error, 1)
	go func() {
		if err := srv.Start(cfg.HTTP.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
