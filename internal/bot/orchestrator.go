// Package bot composes authorization, history rebuilding, completion, and
// chunked delivery into the per-event conversation flow. Each inbound event
// is handled independently and terminally; no state survives between events.
package bot

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/karashiiro/discord-llm-demobot/common/logger"
	"github.com/karashiiro/discord-llm-demobot/internal/chunk"
	"github.com/karashiiro/discord-llm-demobot/internal/llm"
	"github.com/karashiiro/discord-llm-demobot/internal/model"
)

// MaxMessageLen is Discord's per-message character limit.
const MaxMessageLen = 2000

const (
	thinkingText = "Thinking..."
	failureText  = "Sorry, something went wrong while generating a reply. Please try again."
)

// Messenger is the outbound half of the conversation surface.
type Messenger interface {
	Send(ctx context.Context, channelID, content string) (messageID string, err error)
	Edit(ctx context.Context, channelID, messageID, content string) error
}

type Authorizer interface {
	Eligible(ctx context.Context, msg model.Inbound) bool
}

type HistoryBuilder interface {
	Build(ctx context.Context, threadID string) ([]model.ConversationMessage, error)
}

type Completer interface {
	Complete(ctx context.Context, history []model.ConversationMessage, observe llm.Observer) (string, error)
}

type Handler struct {
	auth      Authorizer
	history   HistoryBuilder
	completer Completer
	messenger Messenger
	maxLen    int
}

func NewHandler(auth Authorizer, history HistoryBuilder, completer Completer, messenger Messenger) *Handler {
	return &Handler{
		auth:      auth,
		history:   history,
		completer: completer,
		messenger: messenger,
		maxLen:    MaxMessageLen,
	}
}

// HandleMessage processes one message-creation event end to end. Ineligible
// messages are a silent no-op. All failures terminate in either a generic
// user-visible notice or a log entry; nothing propagates to the caller.
func (h *Handler) HandleMessage(ctx context.Context, msg model.Inbound) {
	if !h.auth.Eligible(ctx, msg) {
		return
	}

	sc := logger.StartSpan(ctx, "demobot.handle_message")
	defer sc.End()
	ctx = logger.WithLogFields(sc.Context(), logger.LogFields{
		ThreadID:  logger.Ptr(msg.ChannelID),
		UserID:    logger.Ptr(msg.AuthorID),
		MessageID: logger.Ptr(msg.MessageID),
		Component: "demobot.conversation",
	})
	slog.InfoContext(ctx, "handling conversation message")

	history, err := h.history.Build(ctx, msg.ChannelID)
	if err != nil {
		sc.RecordError(err)
		slog.ErrorContext(ctx, "rebuilding history", "error", err)
		h.postFailure(ctx, msg.ChannelID, "")
		return
	}

	h.Converse(ctx, msg.ChannelID, history)
}

// Converse posts a progress indicator, requests a completion for the given
// history (editing the indicator on each retry), and delivers the reply in
// bounded chunks: the first replaces the indicator, the rest follow in order.
func (h *Handler) Converse(ctx context.Context, threadID string, history []model.ConversationMessage) {
	indicatorID, err := h.messenger.Send(ctx, threadID, thinkingText)
	if err != nil {
		slog.ErrorContext(ctx, "posting progress indicator", "error", err)
		return
	}

	observe := func(s llm.Status) {
		if s.Kind != llm.StatusRetrying {
			return
		}
		text := fmt.Sprintf("Retrying (attempt %d/%d)... last error: %s",
			s.Attempt, s.MaxAttempts, logger.Truncate(s.Err.Error(), 200))
		// An edit failure must never abort the in-flight completion.
		if err := h.messenger.Edit(ctx, threadID, indicatorID, text); err != nil {
			slog.WarnContext(ctx, "editing progress indicator", "error", err)
		}
	}

	reply, err := h.completer.Complete(ctx, history, observe)
	if err != nil {
		slog.ErrorContext(ctx, "completion failed", "error", err)
		h.postFailure(ctx, threadID, indicatorID)
		return
	}

	h.deliver(ctx, threadID, indicatorID, reply)
}

func (h *Handler) deliver(ctx context.Context, threadID, indicatorID, reply string) {
	segments := chunk.Split(reply, h.maxLen)
	if len(segments) == 0 {
		h.postFailure(ctx, threadID, indicatorID)
		return
	}

	if err := h.messenger.Edit(ctx, threadID, indicatorID, segments[0]); err != nil {
		slog.ErrorContext(ctx, "delivering first segment", "error", err)
	}
	for _, seg := range segments[1:] {
		if _, err := h.messenger.Send(ctx, threadID, seg); err != nil {
			slog.ErrorContext(ctx, "delivering reply segment", "error", err)
		}
	}

	slog.InfoContext(ctx, "reply delivered",
		"segments", len(segments),
		"chars", len(reply))
}

// postFailure surfaces a single generic notice, preferring to replace the
// indicator so no stale "Thinking..." lingers. Raw error text never reaches
// the user. Secondary delivery failures are logged and swallowed.
func (h *Handler) postFailure(ctx context.Context, threadID, indicatorID string) {
	if indicatorID != "" {
		err := h.messenger.Edit(ctx, threadID, indicatorID, failureText)
		if err == nil {
			return
		}
		slog.WarnContext(ctx, "editing failure notice", "error", err)
	}
	if _, err := h.messenger.Send(ctx, threadID, failureText); err != nil {
		slog.ErrorContext(ctx, "posting failure notice", "error", err)
	}
}
