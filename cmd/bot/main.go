package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"

	"github.com/samber/do"
	"golang.org/x/sync/errgroup"

	"github.com/digkill/artbox/internal/admin"
	"github.com/digkill/artbox/internal/config"
	"github.com/digkill/artbox/internal/inject"
	"github.com/digkill/artbox/internal/telegram"
	"github.com/digkill/artbox/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logr := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logger.NewContext(ctx, logr)

	injector := inject.Setup(cfg, logr)
	defer func() {
		if err := injector.Shutdown(); err != nil {
			logr.Error("shutdown", "err", err)
		}
	}()

	bot, err := do.Invoke[*telegram.Bot](injector)
	if err != nil {
		log.Fatalf("telegram bot: %v", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	if cfg.AdminEnabled() {
		adminServer, err := do.Invoke[*admin.Server](injector)
		if err != nil {
			log.Fatalf("admin server: %v", err)
		}
		g.Go(func() error {
			return adminServer.Run(gctx)
		})
	} else {
		logr.Info("admin panel disabled, ADMIN_PASSWORD not set")
	}
	g.Go(func() error {
		return bot.Run(gctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logr.Error("bot stopped", "err", err)
	}
}
