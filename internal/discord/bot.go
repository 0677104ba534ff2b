package discord

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/karashiiro/discord-llm-demobot/common/logger"
	"github.com/karashiiro/discord-llm-demobot/internal/bot"
	"github.com/karashiiro/discord-llm-demobot/internal/chat"
	"github.com/karashiiro/discord-llm-demobot/internal/llm"
	"github.com/karashiiro/discord-llm-demobot/internal/model"
)

const (
	commandName        = "chat"
	threadArchiveAfter = 60 // minutes
	titleTimeout       = 10 * time.Second
)

// Bot owns the gateway session and routes events into the conversation flow.
// The conversation handler is wired on Ready, once the bot's own identity is
// known.
type Bot struct {
	session       *discordgo.Session
	completer     *llm.Completer
	titles        *llm.TitleGenerator
	historyLimit  int
	conversations atomic.Pointer[bot.Handler]
}

func NewBot(token string, client llm.Client, historyLimit int) (*Bot, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentMessageContent

	b := &Bot{
		session:      session,
		completer:    llm.NewCompleter(client),
		titles:       llm.NewTitleGenerator(client),
		historyLimit: historyLimit,
	}
	session.AddHandler(b.onReady)
	session.AddHandler(b.onMessageCreate)
	session.AddHandler(b.onInteractionCreate)
	return b, nil
}

// Open connects to the gateway. Handlers start firing once Ready arrives.
func (b *Bot) Open() error {
	return b.session.Open()
}

func (b *Bot) Close() error {
	return b.session.Close()
}

// Ready reports whether the gateway session is connected and wired.
func (b *Bot) Ready() bool {
	return b.conversations.Load() != nil
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	adapter := NewAdapter(s)
	handler := bot.NewHandler(
		chat.NewAuthorizer(adapter, r.User.ID),
		chat.NewHistoryBuilder(adapter, b.historyLimit),
		b.completer,
		adapter,
	)
	b.conversations.Store(handler)

	slog.Info("discord gateway ready",
		"bot_id", r.User.ID,
		"username", r.User.Username)

	if _, err := s.ApplicationCommandCreate(r.User.ID, "", &discordgo.ApplicationCommand{
		Name:        commandName,
		Description: "Start a conversation with the model in a new thread",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "prompt",
				Description: "What to ask",
				Required:    true,
			},
		},
	}); err != nil {
		slog.Error("registering chat command", "error", err)
	}
}

func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	conversations := b.conversations.Load()
	if conversations == nil || m.Author == nil {
		return
	}

	conversations.HandleMessage(context.Background(), model.Inbound{
		MessageID: m.ID,
		ChannelID: m.ChannelID,
		AuthorID:  m.Author.ID,
		FromBot:   m.Author.Bot,
		Content:   m.Content,
	})
}

// onInteractionCreate starts a conversation: echo the prompt as the command
// response, grow a thread out of it, and answer inside the thread. The echo
// message carries the invoker's identity as interaction metadata, which is
// what the authorizer later resolves ownership from.
func (b *Bot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	conversations := b.conversations.Load()
	if conversations == nil || i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	data := i.ApplicationCommandData()
	if data.Name != commandName || len(data.Options) == 0 {
		return
	}

	prompt := data.Options[0].StringValue()
	user := i.User
	if user == nil && i.Member != nil {
		user = i.Member.User
	}
	if user == nil {
		return
	}

	ctx := logger.WithLogFields(context.Background(), logger.LogFields{
		UserID:    logger.Ptr(user.ID),
		Component: "demobot.command",
	})

	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: "> " + logger.Truncate(prompt, 1800),
		},
	})
	if err != nil {
		slog.ErrorContext(ctx, "responding to chat command", "error", err)
		return
	}

	reply, err := s.InteractionResponse(i.Interaction, discordgo.WithContext(ctx))
	if err != nil {
		slog.ErrorContext(ctx, "fetching command response", "error", err)
		return
	}

	thread, err := s.MessageThreadStartComplex(reply.ChannelID, reply.ID, &discordgo.ThreadStart{
		Name:                b.threadTitle(ctx, prompt),
		AutoArchiveDuration: threadArchiveAfter,
	}, discordgo.WithContext(ctx))
	if err != nil {
		slog.ErrorContext(ctx, "starting conversation thread", "error", err)
		return
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{ThreadID: logger.Ptr(thread.ID)})
	slog.InfoContext(ctx, "conversation started")

	conversations.Converse(ctx, thread.ID, []model.ConversationMessage{
		{Role: model.RoleUser, Content: prompt},
	})
}

// threadTitle names the thread with a one-shot completion, falling back to
// the truncated prompt. Title failures are logged, never user-visible.
func (b *Bot) threadTitle(ctx context.Context, prompt string) string {
	titleCtx, cancel := context.WithTimeout(ctx, titleTimeout)
	defer cancel()

	title, err := b.titles.Generate(titleCtx, prompt)
	if err != nil {
		slog.WarnContext(ctx, "thread title generation failed", "error", err)
		return logger.Truncate(prompt, 97)
	}
	return title
}
