// Package discord binds the conversation flow to the Discord gateway and
// REST API. The Adapter exposes Discord as the message store and outbound
// surface the core packages are written against.
package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/karashiiro/discord-llm-demobot/common/id"
	"github.com/karashiiro/discord-llm-demobot/internal/model"
)

// Adapter implements chat.Store and bot.Messenger on a discordgo session.
type Adapter struct {
	session *discordgo.Session
}

func NewAdapter(session *discordgo.Session) *Adapter {
	return &Adapter{session: session}
}

func (a *Adapter) IsThread(ctx context.Context, channelID string) (bool, error) {
	ch, err := a.session.Channel(channelID, discordgo.WithContext(ctx))
	if err != nil {
		return false, fmt.Errorf("fetching channel: %w", err)
	}
	return ch.IsThread(), nil
}

// StarterMessage fetches the message a thread was started from. On Discord a
// thread shares its ID with its starter message, which lives in the parent
// channel.
func (a *Adapter) StarterMessage(ctx context.Context, threadID string) (model.ThreadMessage, error) {
	ch, err := a.session.Channel(threadID, discordgo.WithContext(ctx))
	if err != nil {
		return model.ThreadMessage{}, fmt.Errorf("fetching thread channel: %w", err)
	}
	if !ch.IsThread() || ch.ParentID == "" {
		return model.ThreadMessage{}, fmt.Errorf("channel %s is not a thread", threadID)
	}

	msg, err := a.session.ChannelMessage(ch.ParentID, threadID, discordgo.WithContext(ctx))
	if err != nil {
		return model.ThreadMessage{}, fmt.Errorf("fetching starter message: %w", err)
	}
	return convertMessage(msg), nil
}

func (a *Adapter) RecentMessages(ctx context.Context, threadID string, limit int) ([]model.ThreadMessage, error) {
	msgs, err := a.session.ChannelMessages(threadID, limit, "", "", "", discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("fetching thread messages: %w", err)
	}

	out := make([]model.ThreadMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, convertMessage(m))
	}
	return out, nil
}

func (a *Adapter) Send(ctx context.Context, channelID, content string) (string, error) {
	msg, err := a.session.ChannelMessageSend(channelID, content, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("sending message: %w", err)
	}
	return msg.ID, nil
}

func (a *Adapter) Edit(ctx context.Context, channelID, messageID, content string) error {
	if _, err := a.session.ChannelMessageEdit(channelID, messageID, content, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("editing message: %w", err)
	}
	return nil
}

func convertMessage(m *discordgo.Message) model.ThreadMessage {
	tm := model.ThreadMessage{
		ID:      m.ID,
		Content: m.Content,
		// Joins, pins, thread renames and other non-default types are
		// noise, not conversation.
		Notice:    m.Type != discordgo.MessageTypeDefault && m.Type != discordgo.MessageTypeReply,
		Timestamp: m.Timestamp,
	}
	if m.Author != nil {
		tm.AuthorID = m.Author.ID
		tm.FromBot = m.Author.Bot
	}
	// The ID encodes creation time at millisecond precision; prefer it so
	// ordering stays stable when the API omits or rounds timestamps.
	if ts := id.Time(m.ID); !ts.IsZero() {
		tm.Timestamp = ts
	}
	if m.Interaction != nil && m.Interaction.User != nil {
		tm.CommandIssuerID = m.Interaction.User.ID
	}
	return tm
}
