// Package chat decides which inbound messages belong to a conversation and
// rebuilds role-tagged history from the platform message store. Nothing here
// caches between calls: ownership and history are re-derived from the store
// on every event, so the bot needs no persistence to survive a restart.
package chat

import (
	"context"

	"github.com/karashiiro/discord-llm-demobot/internal/model"
)

// Store is the read side of the platform message store.
type Store interface {
	// IsThread reports whether the channel is a conversation thread.
	IsThread(ctx context.Context, channelID string) (bool, error)
	// StarterMessage fetches the message a thread was started from.
	StarterMessage(ctx context.Context, threadID string) (model.ThreadMessage, error)
	// RecentMessages fetches up to limit most-recent messages in a thread,
	// in no guaranteed order.
	RecentMessages(ctx context.Context, threadID string, limit int) ([]model.ThreadMessage, error)
}
