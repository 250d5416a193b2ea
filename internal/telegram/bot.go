package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/samber/lo"

	"github.com/digkill/artbox/internal/models"
	"github.com/digkill/artbox/internal/session"
)

// API is the subset of the Telegram client the bot uses.
type API interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	SendMediaGroup(config tgbotapi.MediaGroupConfig) ([]tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type Bot struct {
	api      API
	log      *slog.Logger
	sessions *session.Registry
	runner   *session.Runner
	previews *previewStore
}

func NewBot(api API, log *slog.Logger, sessions *session.Registry, runner *session.Runner) *Bot {
	return &Bot{
		api:      api,
		log:      log,
		sessions: sessions,
		runner:   runner,
		previews: newPreviewStore(previewsPerChat),
	}
}

// Run is the single UI loop: it consumes updates and renders the outcomes of
// generations and downloads that ran on workers.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	b.log.Info("telegram bot started")

	for {
		select {
		case update := <-updates:
			b.handleUpdate(ctx, update)
		case outcome := <-b.runner.Outcomes():
			b.handleOutcome(outcome)
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return ctx.Err()
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.Chat == nil {
		return
	}
	chatID := msg.Chat.ID

	if msg.IsCommand() {
		b.handleCommand(msg)
		return
	}

	ctrl := b.sessions.Get(chatID)
	snap := ctrl.Snapshot()
	if snap.Tier != nil && msg.Text != "" {
		b.sendText(chatID, fmt.Sprintf("Generating %d images…", snap.Tier.Quota))
	}
	b.runner.Go(ctx, chatID, ctrl, session.Command{Action: session.ActionGenerate, Prompt: msg.Text})
}

func (b *Bot) handleCommand(msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	ctrl := b.sessions.Get(chatID)
	switch msg.Command() {
	case "start", "plans":
		if msg.Command() == "start" {
			b.sendText(chatID, welcomeText())
		}
		b.sendTierKeyboard(chatID, ctrl.Snapshot())
	case "renew":
		ctrl.Renew()
		b.sendText(chatID, "Plan renewed. Choose a membership plan.")
		b.sendTierKeyboard(chatID, ctrl.Snapshot())
	case "help":
		b.sendText(chatID, welcomeText())
	default:
		b.sendText(chatID, "Unknown command. Use /plans to choose a membership plan.")
	}
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if cb.Message == nil || cb.Message.Chat == nil {
		b.ack(cb.ID, "")
		return
	}
	chatID := cb.Message.Chat.ID
	ctrl := b.sessions.Get(chatID)
	parsed := parseCallback(cb.Data)

	switch parsed.kind {
	case callbackKindTier:
		if _, err := ctrl.Dispatch(ctx, session.Command{Action: session.ActionSelectTier, Tier: parsed.tier}); err != nil {
			b.ack(cb.ID, "Unavailable")
			b.sendText(chatID, errorText(err))
			return
		}
		b.ack(cb.ID, "Plan selected")
		snap := ctrl.Snapshot()
		b.editKeyboard(chatID, cb.Message.MessageID, tierKeyboard(snap))
		if snap.Tier != nil {
			b.sendText(chatID, tierSelectedText(*snap.Tier))
		}
	case callbackKindRenew:
		_, _ = ctrl.Dispatch(ctx, session.Command{Action: session.ActionRenew})
		b.ack(cb.ID, "Plan renewed")
		b.editKeyboard(chatID, cb.Message.MessageID, tierKeyboard(ctrl.Snapshot()))
	case callbackKindImage:
		url, _ := imageFor(ctrl.Snapshot(), parsed.generation, parsed.index)
		res, err := ctrl.Dispatch(ctx, session.Command{Action: session.ActionSelectImage, Image: url})
		if err != nil {
			b.ack(cb.ID, "")
			b.sendText(chatID, errorText(err))
			return
		}
		b.ack(cb.ID, "")
		b.sendPreview(chatID, parsed, *res.Selected)
	case callbackKindDownload:
		url, ok := b.previews.get(chatID, cb.Message.MessageID)
		if !ok {
			url, ok = imageFor(ctrl.Snapshot(), parsed.generation, parsed.index)
		}
		if !ok {
			b.ack(cb.ID, "")
			b.sendText(chatID, errorText(session.ErrImageNotDisplayed))
			return
		}
		b.ack(cb.ID, "Downloading…")
		b.runner.Go(ctx, chatID, ctrl, session.Command{Action: session.ActionDownloadImage, Image: url})
	case callbackKindClose:
		b.ack(cb.ID, "")
		b.previews.forget(chatID, cb.Message.MessageID)
		if _, err := b.api.Request(tgbotapi.NewDeleteMessage(chatID, cb.Message.MessageID)); err != nil {
			b.log.Error("delete preview", "err", err)
		}
	default:
		b.ack(cb.ID, "Unknown action")
	}
}

func (b *Bot) handleOutcome(outcome session.Outcome) {
	if outcome.Err != nil {
		b.log.Info("action failed", "chat_id", outcome.ChatID, "action", outcome.Command.Action.String(), "err", outcome.Err)
		b.sendText(outcome.ChatID, errorText(outcome.Err))
		return
	}
	switch outcome.Command.Action {
	case session.ActionGenerate:
		b.sendImages(outcome.ChatID, outcome.Result.Generation, outcome.Result.Images)
	case session.ActionDownloadImage:
		b.sendDownload(outcome.ChatID, outcome)
	}
}

func (b *Bot) sendImages(chatID int64, generation uint64, images []models.ImageReference) {
	if len(images) == 0 {
		return
	}
	// Media groups need at least two items.
	if len(images) == 1 {
		if _, err := b.api.Send(tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(images[0].URL))); err != nil {
			b.log.Error("send photo", "err", err)
		}
	} else {
		media := lo.Map(images, func(img models.ImageReference, _ int) interface{} {
			return tgbotapi.NewInputMediaPhoto(tgbotapi.FileURL(img.URL))
		})
		if _, err := b.api.SendMediaGroup(tgbotapi.NewMediaGroup(chatID, media)); err != nil {
			b.log.Error("send media group", "err", err)
		}
	}
	msg := tgbotapi.NewMessage(chatID, "Tap an image to preview or download it.")
	msg.ReplyMarkup = imageKeyboard(generation, images)
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send image keyboard", "err", err)
	}
}

func (b *Bot) sendPreview(chatID int64, parsed parsedCallback, img models.ImageReference) {
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(img.URL))
	photo.Caption = fmt.Sprintf("Image Preview (%d)", parsed.index+1)
	photo.ReplyMarkup = previewKeyboard(parsed.generation, parsed.index)
	sent, err := b.api.Send(photo)
	if err != nil {
		b.log.Error("send preview", "err", err)
		return
	}
	b.previews.put(chatID, sent.MessageID, img.URL)
}

func (b *Bot) sendDownload(chatID int64, outcome session.Outcome) {
	saved := outcome.Result.Saved
	if saved == nil {
		return
	}
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{
		Name:  filepath.Base(saved.Path),
		Bytes: saved.Bytes,
	})
	doc.Caption = fmt.Sprintf("Image successfully downloaded to %s", saved.Path)
	if saved.MirrorURL != "" {
		doc.Caption += "\n" + saved.MirrorURL
	}
	if _, err := b.api.Send(doc); err != nil {
		b.log.Error("send document", "err", err)
	}
}

func (b *Bot) sendTierKeyboard(chatID int64, snap session.Snapshot) {
	msg := tgbotapi.NewMessage(chatID, "Membership plans")
	msg.ReplyMarkup = tierKeyboard(snap)
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send keyboard", "err", err)
	}
}

func (b *Bot) editKeyboard(chatID int64, messageID int, markup tgbotapi.InlineKeyboardMarkup) {
	edit := tgbotapi.NewEditMessageReplyMarkup(chatID, messageID, markup)
	if _, err := b.api.Request(edit); err != nil {
		b.log.Error("edit keyboard", "err", err)
	}
}

func (b *Bot) ack(callbackID, text string) {
	if _, err := b.api.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		b.log.Error("callback ack", "err", err)
	}
}

func (b *Bot) sendText(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send text", "err", err)
	}
}

// imageFor resolves an image button against the current list. Buttons from
// another generation resolve to nothing.
func imageFor(snap session.Snapshot, generation uint64, index int) (string, bool) {
	if generation != snap.Generation || index < 0 || index >= len(snap.Images) {
		return "", false
	}
	return snap.Images[index].URL, true
}
