package inject

import (
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/samber/do"

	"github.com/digkill/artbox/internal/admin"
	"github.com/digkill/artbox/internal/config"
	"github.com/digkill/artbox/internal/download"
	"github.com/digkill/artbox/internal/openai"
	"github.com/digkill/artbox/internal/session"
	"github.com/digkill/artbox/internal/storage"
	"github.com/digkill/artbox/internal/telegram"
)

const outcomeBuffer = 64

// Setup registers every service lazily; nothing touches the network until
// it is invoked.
func Setup(cfg config.Config, log *slog.Logger) *do.Injector {
	injector := do.NewWithOpts(&do.InjectorOpts{
		Logf: func(format string, args ...any) {
			log.Debug(fmt.Sprintf(format, args...))
		},
	})

	do.ProvideValue[config.Config](injector, cfg)
	do.ProvideValue[*slog.Logger](injector, log)

	do.Provide[session.ImageGenerator](injector, func(i *do.Injector) (session.ImageGenerator, error) {
		return openai.NewClient(do.MustInvoke[config.Config](i), do.MustInvoke[*slog.Logger](i)), nil
	})
	do.Provide[download.Mirror](injector, func(i *do.Injector) (download.Mirror, error) {
		cfg := do.MustInvoke[config.Config](i)
		if !cfg.MirrorEnabled() {
			return nil, nil
		}
		uploader, err := storage.NewUploader(storage.FromAppConfig(cfg))
		if err != nil {
			return nil, fmt.Errorf("storage uploader: %w", err)
		}
		return uploader, nil
	})
	do.Provide[session.ImageSaver](injector, func(i *do.Injector) (session.ImageSaver, error) {
		cfg := do.MustInvoke[config.Config](i)
		mirror, err := do.Invoke[download.Mirror](i)
		if err != nil {
			return nil, err
		}
		return download.New(download.Config{
			Path:        cfg.DownloadPath,
			UniqueNames: cfg.DownloadUniqueNames,
			Timeout:     cfg.RequestTimeout,
			MaxBytes:    cfg.DownloadMaxBytes,
		}, mirror, do.MustInvoke[*slog.Logger](i)), nil
	})
	do.Provide[*session.Registry](injector, func(i *do.Injector) (*session.Registry, error) {
		log := do.MustInvoke[*slog.Logger](i)
		generator, err := do.Invoke[session.ImageGenerator](i)
		if err != nil {
			return nil, err
		}
		saver, err := do.Invoke[session.ImageSaver](i)
		if err != nil {
			return nil, err
		}
		return session.NewRegistry(func() *session.Controller {
			return session.NewController(log, generator, saver)
		}), nil
	})
	do.Provide[*session.Runner](injector, func(i *do.Injector) (*session.Runner, error) {
		return session.NewRunner(outcomeBuffer), nil
	})
	do.Provide[*tgbotapi.BotAPI](injector, func(i *do.Injector) (*tgbotapi.BotAPI, error) {
		cfg := do.MustInvoke[config.Config](i)
		api, err := tgbotapi.NewBotAPI(cfg.BotToken)
		if err != nil {
			return nil, fmt.Errorf("telegram bot: %w", err)
		}
		api.Debug = cfg.BotDebug
		return api, nil
	})
	do.Provide[*telegram.Bot](injector, func(i *do.Injector) (*telegram.Bot, error) {
		api, err := do.Invoke[*tgbotapi.BotAPI](i)
		if err != nil {
			return nil, err
		}
		return telegram.NewBot(api, do.MustInvoke[*slog.Logger](i), do.MustInvoke[*session.Registry](i), do.MustInvoke[*session.Runner](i)), nil
	})
	do.Provide[*admin.Server](injector, func(i *do.Injector) (*admin.Server, error) {
		cfg := do.MustInvoke[config.Config](i)
		api, err := do.Invoke[*tgbotapi.BotAPI](i)
		if err != nil {
			return nil, err
		}
		return admin.NewServer(cfg.AdminListenAddr, cfg.AdminUsername, cfg.AdminPassword, do.MustInvoke[*slog.Logger](i), do.MustInvoke[*session.Registry](i), api), nil
	})

	return injector
}
