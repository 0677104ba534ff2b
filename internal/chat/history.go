package chat

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/karashiiro/discord-llm-demobot/internal/model"
)

const DefaultHistoryLimit = 50

// HistoryBuilder reconstructs ordered role-tagged history for a conversation.
// Every call fetches fresh from the store; there is no cached state to
// invalidate.
type HistoryBuilder struct {
	store Store
	limit int
}

func NewHistoryBuilder(store Store, limit int) *HistoryBuilder {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &HistoryBuilder{store: store, limit: limit}
}

// Build returns the thread's messages oldest-first, with system notices and
// empty entries dropped, bot messages tagged assistant and human messages
// tagged user. An empty slice means no eligible messages exist.
func (b *HistoryBuilder) Build(ctx context.Context, threadID string) ([]model.ConversationMessage, error) {
	msgs, err := b.store.RecentMessages(ctx, threadID, b.limit)
	if err != nil {
		return nil, fmt.Errorf("fetching thread messages: %w", err)
	}

	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].Timestamp.Before(msgs[j].Timestamp)
	})

	history := make([]model.ConversationMessage, 0, len(msgs))
	for _, m := range msgs {
		if m.Notice || strings.TrimSpace(m.Content) == "" {
			continue
		}
		role := model.RoleUser
		if m.FromBot {
			role = model.RoleAssistant
		}
		history = append(history, model.ConversationMessage{Role: role, Content: m.Content})
	}
	return history, nil
}
