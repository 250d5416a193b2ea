package session

import (
	"context"

	"github.com/digkill/artbox/internal/download"
	"github.com/digkill/artbox/internal/models"
)

type Action int

const (
	ActionSelectTier Action = iota + 1
	ActionRenew
	ActionGenerate
	ActionSelectImage
	ActionDownloadImage
)

func (a Action) String() string {
	switch a {
	case ActionSelectTier:
		return "select_tier"
	case ActionRenew:
		return "renew"
	case ActionGenerate:
		return "generate"
	case ActionSelectImage:
		return "select_image"
	case ActionDownloadImage:
		return "download_image"
	default:
		return "unknown"
	}
}

// Command is a UI event translated into a controller action. Only the
// fields relevant to Action are read.
type Command struct {
	Action Action
	Tier   models.TierName
	Prompt string
	Image  string
}

type Result struct {
	State      State
	Images     []models.ImageReference
	Generation uint64
	Selected   *models.ImageReference
	Saved      *download.Result
}

// Dispatch is the single entry point for UI events.
func (c *Controller) Dispatch(ctx context.Context, cmd Command) (Result, error) {
	var res Result
	switch cmd.Action {
	case ActionSelectTier:
		if err := c.SelectTier(cmd.Tier); err != nil {
			return c.result(res), err
		}
	case ActionRenew:
		c.Renew()
	case ActionGenerate:
		if _, err := c.Generate(ctx, cmd.Prompt); err != nil {
			return c.result(res), err
		}
	case ActionSelectImage:
		img, err := c.SelectImage(cmd.Image)
		if err != nil {
			return c.result(res), err
		}
		res.Selected = &img
	case ActionDownloadImage:
		saved, err := c.DownloadImage(ctx, cmd.Image)
		if err != nil {
			return c.result(res), err
		}
		res.Saved = saved
	default:
		return c.result(res), invalid(ErrUnknownAction)
	}
	return c.result(res), nil
}

func (c *Controller) result(res Result) Result {
	snap := c.Snapshot()
	res.State = snap.State
	res.Images = snap.Images
	res.Generation = snap.Generation
	return res
}
