package session

import (
	"context"
	"sync"

	"github.com/digkill/artbox/pkg/logger"
)

type Outcome struct {
	ChatID  int64
	Command Command
	Result  Result
	Err     error
}

// Async runs cmd on its own goroutine and delivers exactly one Outcome on
// the returned channel. Cancel ctx to abort the underlying request.
func (c *Controller) Async(ctx context.Context, cmd Command) <-chan Outcome {
	out := make(chan Outcome, 1)
	go func() {
		res, err := c.Dispatch(ctx, cmd)
		out <- Outcome{Command: cmd, Result: res, Err: err}
	}()
	return out
}

// Runner fans outcomes of many sessions into one channel so a single UI
// loop can render them.
type Runner struct {
	outcomes chan Outcome
	wg       sync.WaitGroup
}

func NewRunner(buffer int) *Runner {
	return &Runner{outcomes: make(chan Outcome, buffer)}
}

// Go dispatches cmd for chatID on a worker. Log lines written while it runs
// carry the chat and action.
func (r *Runner) Go(ctx context.Context, chatID int64, c *Controller, cmd Command) {
	ctx = logger.With(ctx, "chat_id", chatID, "action", cmd.Action.String())
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		outcome := <-c.Async(ctx, cmd)
		outcome.ChatID = chatID
		select {
		case r.outcomes <- outcome:
		case <-ctx.Done():
		}
	}()
}

func (r *Runner) Outcomes() <-chan Outcome {
	return r.outcomes
}

// Wait blocks until every submitted command has delivered or been dropped.
func (r *Runner) Wait() {
	r.wg.Wait()
}

// Shutdown waits for in-flight commands; the injector calls it on exit.
func (r *Runner) Shutdown() error {
	r.Wait()
	return nil
}
