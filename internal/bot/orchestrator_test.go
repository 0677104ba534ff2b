package bot_test

import (
	"context"
	"errors"
	"fmt"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/karashiiro/discord-llm-demobot/internal/bot"
	"github.com/karashiiro/discord-llm-demobot/internal/llm"
	"github.com/karashiiro/discord-llm-demobot/internal/model"
)

type mockAuthorizer struct {
	eligible bool
	calls    int
}

func (m *mockAuthorizer) Eligible(context.Context, model.Inbound) bool {
	m.calls++
	return m.eligible
}

type mockHistory struct {
	history []model.ConversationMessage
	err     error
}

func (m *mockHistory) Build(context.Context, string) ([]model.ConversationMessage, error) {
	return m.history, m.err
}

type mockCompleter struct {
	reply       string
	err         error
	emit        []llm.Status
	lastHistory []model.ConversationMessage
}

func (m *mockCompleter) Complete(_ context.Context, history []model.ConversationMessage, observe llm.Observer) (string, error) {
	m.lastHistory = history
	for _, s := range m.emit {
		if observe != nil {
			observe(s)
		}
	}
	return m.reply, m.err
}

type sentMessage struct {
	channelID string
	content   string
}

type editedMessage struct {
	channelID string
	messageID string
	content   string
}

// mockMessenger records outbound traffic and assigns sequential message IDs.
type mockMessenger struct {
	sends   []sentMessage
	edits   []editedMessage
	sendErr error
	editErr error
}

func (m *mockMessenger) Send(_ context.Context, channelID, content string) (string, error) {
	if m.sendErr != nil {
		return "", m.sendErr
	}
	m.sends = append(m.sends, sentMessage{channelID: channelID, content: content})
	return fmt.Sprintf("msg-%d", len(m.sends)), nil
}

func (m *mockMessenger) Edit(_ context.Context, channelID, messageID, content string) error {
	if m.editErr != nil {
		return m.editErr
	}
	m.edits = append(m.edits, editedMessage{channelID: channelID, messageID: messageID, content: content})
	return nil
}

var _ = Describe("Handler", func() {
	var (
		auth      *mockAuthorizer
		history   *mockHistory
		completer *mockCompleter
		messenger *mockMessenger
		handler   *bot.Handler
		ctx       context.Context
	)

	inbound := model.Inbound{
		MessageID: "m-1",
		ChannelID: "thread-1",
		AuthorID:  "user-owner",
		Content:   "Hello",
	}

	BeforeEach(func() {
		ctx = context.Background()
		auth = &mockAuthorizer{eligible: true}
		history = &mockHistory{history: []model.ConversationMessage{
			{Role: model.RoleUser, Content: "Hello"},
		}}
		completer = &mockCompleter{reply: "Hi! How can I help?"}
		messenger = &mockMessenger{}
		handler = bot.NewHandler(auth, history, completer, messenger)
	})

	It("ignores ineligible messages with no side effects", func() {
		auth.eligible = false
		handler.HandleMessage(ctx, inbound)
		Expect(messenger.sends).To(BeEmpty())
		Expect(messenger.edits).To(BeEmpty())
	})

	It("posts an indicator and replaces it with a single-chunk reply", func() {
		handler.HandleMessage(ctx, inbound)

		Expect(messenger.sends).To(HaveLen(1))
		Expect(messenger.sends[0].content).To(Equal("Thinking..."))
		Expect(messenger.edits).To(HaveLen(1))
		Expect(messenger.edits[0].messageID).To(Equal("msg-1"))
		Expect(messenger.edits[0].content).To(Equal("Hi! How can I help?"))
	})

	It("hands the rebuilt history to the completer", func() {
		handler.HandleMessage(ctx, inbound)
		Expect(completer.lastHistory).To(Equal(history.history))
	})

	It("delivers a long reply as ordered chunks after the indicator", func() {
		// 3700 characters with one sentence boundary at position 1700.
		completer.reply = strings.Repeat("a", 1700) + ". " + strings.Repeat("b", 1998)
		handler.HandleMessage(ctx, inbound)

		Expect(messenger.edits).To(HaveLen(1))
		Expect(messenger.edits[0].content).To(Equal(strings.Repeat("a", 1700) + "."))
		Expect(messenger.sends).To(HaveLen(2)) // indicator + one follow-up chunk
		Expect(messenger.sends[1].channelID).To(Equal("thread-1"))
		Expect(messenger.sends[1].content).To(Equal(strings.Repeat("b", 1998)))
	})

	It("renders retry progress into the indicator", func() {
		completer.emit = []llm.Status{
			{Kind: llm.StatusThinking},
			{Kind: llm.StatusRetrying, Attempt: 2, MaxAttempts: 10, Err: errors.New("connection reset")},
		}
		handler.HandleMessage(ctx, inbound)

		Expect(len(messenger.edits)).To(BeNumerically(">=", 2))
		Expect(messenger.edits[0].content).To(ContainSubstring("attempt 2/10"))
		Expect(messenger.edits[0].content).To(ContainSubstring("connection reset"))
	})

	It("replaces the indicator with a generic notice on completion failure", func() {
		completer.reply = ""
		completer.err = fmt.Errorf("%w after 10 attempts: upstream 503", llm.ErrCompletionFailed)
		handler.HandleMessage(ctx, inbound)

		Expect(messenger.edits).To(HaveLen(1))
		Expect(messenger.edits[0].content).To(ContainSubstring("Sorry"))
		Expect(messenger.edits[0].content).NotTo(ContainSubstring("503"))
	})

	It("posts a generic notice when history rebuilding fails", func() {
		history.err = errors.New("api down")
		handler.HandleMessage(ctx, inbound)

		Expect(messenger.sends).To(HaveLen(1))
		Expect(messenger.sends[0].content).To(ContainSubstring("Sorry"))
		Expect(messenger.sends[0].content).NotTo(ContainSubstring("api down"))
	})

	It("survives delivery failures without panicking", func() {
		messenger.editErr = errors.New("missing permissions")
		Expect(func() { handler.HandleMessage(ctx, inbound) }).NotTo(Panic())
	})

	It("falls back to sending the failure notice when the edit fails", func() {
		completer.err = llm.ErrCompletionFailed
		messenger.editErr = errors.New("message deleted")
		handler.HandleMessage(ctx, inbound)

		Expect(messenger.sends).To(HaveLen(2))
		Expect(messenger.sends[1].content).To(ContainSubstring("Sorry"))
	})

	It("stops silently when even the indicator cannot be posted", func() {
		messenger.sendErr = errors.New("missing permissions")
		Expect(func() { handler.HandleMessage(ctx, inbound) }).NotTo(Panic())
		Expect(messenger.edits).To(BeEmpty())
	})

	Describe("Converse", func() {
		It("runs the completion flow for a fresh conversation", func() {
			seed := []model.ConversationMessage{{Role: model.RoleUser, Content: "tell me a joke"}}
			handler.Converse(ctx, "thread-9", seed)

			Expect(completer.lastHistory).To(Equal(seed))
			Expect(messenger.sends).To(HaveLen(1))
			Expect(messenger.sends[0].channelID).To(Equal("thread-9"))
			Expect(messenger.edits).To(HaveLen(1))
			Expect(messenger.edits[0].content).To(Equal("Hi! How can I help?"))
		})
	})
})
