package telegram

import (
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/samber/lo"

	"github.com/digkill/artbox/internal/models"
	"github.com/digkill/artbox/internal/session"
)

const (
	callbackTier     = "tier:"
	callbackImage    = "img:"
	callbackDownload = "dl:"
	callbackRenew    = "renew"
	callbackClose    = "close"

	imagesPerRow = 5
)

// tierKeyboard renders the membership grid: two tiers per row with the
// renew button last. Locked tiers stay visible but are marked.
func tierKeyboard(snap session.Snapshot) tgbotapi.InlineKeyboardMarkup {
	buttons := lo.Map(models.Tiers(), func(t models.Tier, _ int) tgbotapi.InlineKeyboardButton {
		label := t.Label()
		switch {
		case snap.Tier != nil && snap.Tier.Name == t.Name:
			label = "✅ " + label
		case snap.Tier != nil:
			label = "🔒 " + label
		}
		return tgbotapi.NewInlineKeyboardButtonData(label, callbackTier+string(t.Name))
	})
	buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData("Renew Plan", callbackRenew))
	return keyboardFromChunks(lo.Chunk(buttons, 2))
}

// imageKeyboard has one button per displayed image. Buttons carry the
// generation so a keyboard left over from an earlier prompt cannot pick an
// image from the current one.
func imageKeyboard(generation uint64, images []models.ImageReference) tgbotapi.InlineKeyboardMarkup {
	buttons := lo.Map(images, func(_ models.ImageReference, i int) tgbotapi.InlineKeyboardButton {
		return tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("🖼 %d", i+1), imageData(callbackImage, generation, i))
	})
	return keyboardFromChunks(lo.Chunk(buttons, imagesPerRow))
}

func previewKeyboard(generation uint64, index int) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("Close", callbackClose),
		tgbotapi.NewInlineKeyboardButtonData("Download", imageData(callbackDownload, generation, index)),
	))
}

func imageData(prefix string, generation uint64, index int) string {
	return prefix + strconv.FormatUint(generation, 10) + ":" + strconv.Itoa(index)
}

func keyboardFromChunks(chunks [][]tgbotapi.InlineKeyboardButton) tgbotapi.InlineKeyboardMarkup {
	rows := lo.Map(chunks, func(chunk []tgbotapi.InlineKeyboardButton, _ int) []tgbotapi.InlineKeyboardButton {
		return tgbotapi.NewInlineKeyboardRow(chunk...)
	})
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

type callbackKind int

const (
	callbackUnknown callbackKind = iota
	callbackKindTier
	callbackKindRenew
	callbackKindImage
	callbackKindDownload
	callbackKindClose
)

type parsedCallback struct {
	kind       callbackKind
	tier       models.TierName
	generation uint64
	index      int
}

func parseCallback(data string) parsedCallback {
	switch {
	case data == callbackRenew:
		return parsedCallback{kind: callbackKindRenew}
	case data == callbackClose:
		return parsedCallback{kind: callbackKindClose}
	case strings.HasPrefix(data, callbackTier):
		return parsedCallback{kind: callbackKindTier, tier: models.TierName(strings.TrimPrefix(data, callbackTier))}
	case strings.HasPrefix(data, callbackImage):
		if gen, i, ok := parseImageData(strings.TrimPrefix(data, callbackImage)); ok {
			return parsedCallback{kind: callbackKindImage, generation: gen, index: i}
		}
	case strings.HasPrefix(data, callbackDownload):
		if gen, i, ok := parseImageData(strings.TrimPrefix(data, callbackDownload)); ok {
			return parsedCallback{kind: callbackKindDownload, generation: gen, index: i}
		}
	}
	return parsedCallback{kind: callbackUnknown}
}

// parseImageData reads the "<generation>:<index>" tail of image callbacks.
func parseImageData(raw string) (uint64, int, bool) {
	genPart, indexPart, found := strings.Cut(raw, ":")
	if !found {
		return 0, 0, false
	}
	gen, err := strconv.ParseUint(genPart, 10, 64)
	if err != nil {
		return 0, 0, false
	}
	i, err := strconv.Atoi(indexPart)
	if err != nil || i < 0 {
		return 0, 0, false
	}
	return gen, i, true
}
