package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/karashiiro/discord-llm-demobot/internal/model"
)

const (
	// maxAttempts is the total number of tries per completion: one initial
	// attempt plus nine retries.
	maxAttempts    = 10
	attemptTimeout = 30 * time.Second

	systemDirective = "You are a helpful assistant chatting with users on Discord. " +
		"Answer conversationally and keep replies focused on the question asked."
)

// ErrCompletionFailed is returned once the retry budget is exhausted. The
// wrapped message carries the last observed attempt error.
var ErrCompletionFailed = errors.New("completion failed")

type StatusKind int

const (
	// StatusThinking is emitted once, before the first attempt.
	StatusThinking StatusKind = iota
	// StatusRetrying is emitted after a failed attempt when attempts remain.
	StatusRetrying
)

// Status is a one-way progress signal for an in-flight completion. It carries
// no control data back to the retry loop.
type Status struct {
	Kind        StatusKind
	Attempt     int // the upcoming attempt number, 2..MaxAttempts
	MaxAttempts int
	Err         error // the failure that triggered the retry
}

// Observer receives status events synchronously between attempts. Observers
// must handle their own failures; they cannot abort the retry loop.
type Observer func(Status)

// Completer drives a Client with bounded retries and per-attempt timeouts.
type Completer struct {
	client Client
}

func NewCompleter(client Client) *Completer {
	return &Completer{client: client}
}

// Complete requests a reply for the conversation history, retrying transport
// and backend failures alike until the attempt budget runs out. A system
// directive is prepended unless the history already starts with one. The
// observer may be nil.
func (c *Completer) Complete(ctx context.Context, history []model.ConversationMessage, observe Observer) (string, error) {
	if len(history) == 0 || history[0].Role != model.RoleSystem {
		prepended := make([]model.ConversationMessage, 0, len(history)+1)
		prepended = append(prepended, model.ConversationMessage{Role: model.RoleSystem, Content: systemDirective})
		history = append(prepended, history...)
	}

	notify := func(s Status) {
		if observe != nil {
			observe(s)
		}
	}

	notify(Status{Kind: StatusThinking})

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, attemptTimeout)
		content, err := c.client.Complete(attemptCtx, history)
		cancel()

		if err == nil {
			return content, nil
		}
		lastErr = err

		slog.WarnContext(ctx, "completion attempt failed",
			"attempt", attempt,
			"max_attempts", maxAttempts,
			"error", err)

		if attempt < maxAttempts {
			notify(Status{
				Kind:        StatusRetrying,
				Attempt:     attempt + 1,
				MaxAttempts: maxAttempts,
				Err:         err,
			})
		}
	}

	return "", fmt.Errorf("%w after %d attempts: %v", ErrCompletionFailed, maxAttempts, lastErr)
}
