package model

import "time"

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ConversationMessage is one role-tagged entry in a conversation history.
// Ordering is chronological; the role is derived at ingestion time from who
// authored the underlying platform message, never stored separately.
type ConversationMessage struct {
	Role    Role
	Content string
}

// ThreadMessage is a message as fetched from the platform message store.
type ThreadMessage struct {
	ID        string
	AuthorID  string
	FromBot   bool
	Notice    bool // non-conversational system entry (thread renames etc.)
	Content   string
	Timestamp time.Time

	// CommandIssuerID is set on a thread's starter message when that message
	// was produced by a command invocation; it identifies the invoking user
	// and therefore the conversation's owner.
	CommandIssuerID string
}

// Inbound is a message-creation event delivered by the platform gateway.
type Inbound struct {
	MessageID string
	ChannelID string
	AuthorID  string
	FromBot   bool
	Content   string
}
