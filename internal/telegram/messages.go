package telegram

import (
	"errors"
	"fmt"

	"github.com/digkill/artbox/internal/models"
	"github.com/digkill/artbox/internal/session"
)

const headline = "ARTBOX"

func welcomeText() string {
	return headline + "\n\nPick a membership plan, then send a prompt to generate images.\n\nCommands:\n/plans — show membership plans\n/renew — renew your plan\n/help — show this message"
}

func tierSelectedText(tier models.Tier) string {
	return fmt.Sprintf("%s selected. Send a prompt to generate %d images.", tier.Name, tier.Quota)
}

// errorText turns a controller failure into the message shown to the user.
func errorText(err error) string {
	var (
		gErr *session.GenerationError
		dErr *session.DownloadError
		vErr *session.ValidationError
	)
	var msg string
	switch {
	case errors.Is(err, session.ErrNoTierSelected):
		msg = "Please select a membership plan."
	case errors.Is(err, session.ErrEmptyPrompt):
		msg = "Please enter a prompt."
	case errors.Is(err, session.ErrTierLocked):
		msg = "Your plan is active. Press Renew Plan to choose another one."
	case errors.Is(err, session.ErrImageNotDisplayed):
		msg = "That image is no longer displayed."
	case errors.As(err, &gErr):
		msg = fmt.Sprintf("Error generating images: %v", gErr.Err)
	case errors.As(err, &dErr):
		msg = fmt.Sprintf("Error downloading image: %v", dErr.Err)
	case errors.As(err, &vErr):
		msg = vErr.Error()
	default:
		msg = "Something went wrong, please try again."
	}
	return "Error\n" + msg
}
