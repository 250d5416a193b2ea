package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/digkill/artbox/internal/download"
	"github.com/digkill/artbox/internal/models"
	"github.com/digkill/artbox/pkg/logger"
)

type State int

const (
	StateNoTierSelected State = iota
	StateTierSelected
	StateImagesDisplayed
)

func (s State) String() string {
	switch s {
	case StateNoTierSelected:
		return "no_tier_selected"
	case StateTierSelected:
		return "tier_selected"
	case StateImagesDisplayed:
		return "images_displayed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ImageGenerator requests count images for prompt and returns their URLs.
type ImageGenerator interface {
	Generate(ctx context.Context, prompt string, count int) ([]string, error)
}

// ImageSaver fetches an image and persists it locally.
type ImageSaver interface {
	Save(ctx context.Context, url string) (*download.Result, error)
}

// Snapshot is a copy of the session state safe to hand to a renderer.
// Generation identifies the image list; it changes on every successful
// generation and never repeats within a session.
type Snapshot struct {
	State      State
	Tier       *models.Tier
	Prompt     string
	Images     []models.ImageReference
	Generation uint64
}

// Controller owns one session: the selected tier, the last prompt and the
// displayed images. The mutex is never held across network I/O.
type Controller struct {
	log       *slog.Logger
	generator ImageGenerator
	saver     ImageSaver

	mu     sync.Mutex
	tier   *models.Tier
	prompt string
	images []models.ImageReference
	epoch  uint64
	gen    uint64
}

func NewController(log *slog.Logger, generator ImageGenerator, saver ImageSaver) *Controller {
	return &Controller{
		log:       log,
		generator: generator,
		saver:     saver,
	}
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

func (c *Controller) stateLocked() State {
	switch {
	case c.tier == nil:
		return StateNoTierSelected
	case len(c.images) > 0:
		return StateImagesDisplayed
	default:
		return StateTierSelected
	}
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := Snapshot{
		State:      c.stateLocked(),
		Prompt:     c.prompt,
		Images:     append([]models.ImageReference(nil), c.images...),
		Generation: c.gen,
	}
	if c.tier != nil {
		tier := *c.tier
		snap.Tier = &tier
	}
	return snap
}

// Selectable reports whether the tier control for name accepts input.
// Once a tier is chosen every other tier is locked until Renew.
func (c *Controller) Selectable(name models.TierName) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tier == nil || c.tier.Name == name
}

func (c *Controller) SelectTier(name models.TierName) error {
	tier, ok := models.LookupTier(name)
	if !ok {
		return invalid(ErrUnknownTier)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tier != nil {
		if c.tier.Name == name {
			return nil
		}
		return invalid(ErrTierLocked)
	}
	c.tier = &tier
	return nil
}

// Renew clears the tier, unlocks every tier control and drops the images.
// In-flight generations started before the call are discarded.
func (c *Controller) Renew() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tier = nil
	c.images = nil
	c.epoch++
}

// Generate requests the selected tier's quota of images for prompt and
// replaces the displayed images with the result. The prompt is checked for
// emptiness only, it is not trimmed.
func (c *Controller) Generate(ctx context.Context, prompt string) ([]models.ImageReference, error) {
	c.mu.Lock()
	if c.tier == nil {
		c.mu.Unlock()
		return nil, invalid(ErrNoTierSelected)
	}
	if prompt == "" {
		c.mu.Unlock()
		return nil, invalid(ErrEmptyPrompt)
	}
	c.prompt = prompt
	tier := c.tier.Name
	epoch := c.epoch
	c.mu.Unlock()

	count := models.QuotaFor(tier)
	c.logger(ctx).Info("generating images", "tier", tier, "count", count)

	urls, err := c.generator.Generate(ctx, prompt, count)
	if err != nil {
		return nil, &GenerationError{Err: err}
	}
	if len(urls) == 0 {
		return nil, &GenerationError{Err: errors.New("no images returned")}
	}
	if len(urls) > count {
		return nil, &GenerationError{Err: fmt.Errorf("requested %d images, got %d", count, len(urls))}
	}
	images := make([]models.ImageReference, 0, len(urls))
	for _, raw := range urls {
		ref, err := models.NewImageReference(raw)
		if err != nil {
			return nil, &GenerationError{Err: err}
		}
		images = append(images, ref)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch != epoch {
		return nil, &GenerationError{Err: ErrSessionRenewed}
	}
	c.images = images
	c.gen++
	return append([]models.ImageReference(nil), images...), nil
}

// SelectImage exposes one of the displayed images for preview.
func (c *Controller) SelectImage(url string) (models.ImageReference, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stateLocked() != StateImagesDisplayed {
		return models.ImageReference{}, invalid(ErrImageNotDisplayed)
	}
	for _, img := range c.images {
		if img.URL == url {
			return img, nil
		}
	}
	return models.ImageReference{}, invalid(ErrImageNotDisplayed)
}

// DownloadImage fetches url and writes it to the configured file. Session
// state is never touched.
func (c *Controller) DownloadImage(ctx context.Context, url string) (*download.Result, error) {
	if url == "" {
		return nil, &DownloadError{URL: url, Err: errors.New("empty image url")}
	}
	if c.saver == nil {
		return nil, &DownloadError{URL: url, Err: errors.New("downloads disabled")}
	}
	res, err := c.saver.Save(ctx, url)
	if err != nil {
		return nil, &DownloadError{URL: url, Err: err}
	}
	c.logger(ctx).Info("image downloaded", "path", res.Path)
	return res, nil
}

func (c *Controller) logger(ctx context.Context) *slog.Logger {
	return logger.FromContextOr(ctx, c.log)
}
