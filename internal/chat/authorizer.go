package chat

import (
	"context"
	"log/slog"

	"github.com/karashiiro/discord-llm-demobot/internal/model"
)

// Authorizer decides whether an inbound message continues a conversation its
// author owns. Ownership is derived on demand from the thread's starter
// message rather than held in memory, so it stays correct across restarts.
type Authorizer struct {
	store Store
	botID string
}

func NewAuthorizer(store Store, botID string) *Authorizer {
	return &Authorizer{store: store, botID: botID}
}

// Eligible reports whether the message should receive a reply. Lookup
// failures resolve to "not eligible" and are never propagated.
func (a *Authorizer) Eligible(ctx context.Context, msg model.Inbound) bool {
	if msg.FromBot || msg.AuthorID == a.botID {
		return false
	}

	isThread, err := a.store.IsThread(ctx, msg.ChannelID)
	if err != nil {
		slog.DebugContext(ctx, "channel lookup failed",
			"channel_id", msg.ChannelID,
			"error", err)
		return false
	}
	if !isThread {
		return false
	}

	owner := a.resolveOwner(ctx, msg.ChannelID)
	if owner == "" {
		return false
	}
	return msg.AuthorID == owner
}

// resolveOwner returns the identity of the user whose command invocation
// created the thread, or "" when the thread is not recognized as bot-created.
func (a *Authorizer) resolveOwner(ctx context.Context, threadID string) string {
	starter, err := a.store.StarterMessage(ctx, threadID)
	if err != nil {
		slog.DebugContext(ctx, "starter message unavailable",
			"thread_id", threadID,
			"error", err)
		return ""
	}
	return starter.CommandIssuerID
}
