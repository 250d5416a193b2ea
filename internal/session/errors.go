package session

import (
	"errors"
	"fmt"
)

var (
	ErrNoTierSelected    = errors.New("no tier selected")
	ErrEmptyPrompt       = errors.New("empty prompt")
	ErrTierLocked        = errors.New("tier locked until renew")
	ErrUnknownTier       = errors.New("unknown tier")
	ErrImageNotDisplayed = errors.New("image not displayed")
	ErrUnknownAction     = errors.New("unknown action")
	ErrSessionRenewed    = errors.New("session renewed during generation")
)

// ValidationError reports user input that violates a precondition.
// The session is left untouched.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string { return e.Err.Error() }
func (e *ValidationError) Unwrap() error { return e.Err }

// GenerationError reports a failed image-generation request.
// Previously displayed images are retained.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string { return fmt.Sprintf("generate images: %v", e.Err) }
func (e *GenerationError) Unwrap() error { return e.Err }

// DownloadError reports a failed fetch-and-save.
type DownloadError struct {
	URL string
	Err error
}

func (e *DownloadError) Error() string { return fmt.Sprintf("download %s: %v", e.URL, e.Err) }
func (e *DownloadError) Unwrap() error { return e.Err }

func invalid(err error) error { return &ValidationError{Err: err} }
