package chat_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/karashiiro/discord-llm-demobot/internal/chat"
	"github.com/karashiiro/discord-llm-demobot/internal/model"
)

// mockStore implements chat.Store for testing.
type mockStore struct {
	isThreadFn       func(ctx context.Context, channelID string) (bool, error)
	starterFn        func(ctx context.Context, threadID string) (model.ThreadMessage, error)
	recentFn         func(ctx context.Context, threadID string, limit int) ([]model.ThreadMessage, error)
	starterCalls     int
	recentCalls      int
	lastRequestLimit int
}

func (m *mockStore) IsThread(ctx context.Context, channelID string) (bool, error) {
	return m.isThreadFn(ctx, channelID)
}

func (m *mockStore) StarterMessage(ctx context.Context, threadID string) (model.ThreadMessage, error) {
	m.starterCalls++
	return m.starterFn(ctx, threadID)
}

func (m *mockStore) RecentMessages(ctx context.Context, threadID string, limit int) ([]model.ThreadMessage, error) {
	m.recentCalls++
	m.lastRequestLimit = limit
	return m.recentFn(ctx, threadID, limit)
}

const (
	botID   = "bot-1"
	ownerID = "user-owner"
)

func ownedThreadStore() *mockStore {
	return &mockStore{
		isThreadFn: func(context.Context, string) (bool, error) { return true, nil },
		starterFn: func(_ context.Context, threadID string) (model.ThreadMessage, error) {
			return model.ThreadMessage{ID: threadID, CommandIssuerID: ownerID}, nil
		},
	}
}

var _ = Describe("Authorizer", func() {
	var (
		store *mockStore
		auth  *chat.Authorizer
		ctx   context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		store = ownedThreadStore()
		auth = chat.NewAuthorizer(store, botID)
	})

	msg := func(author string) model.Inbound {
		return model.Inbound{MessageID: "m1", ChannelID: "thread-1", AuthorID: author, Content: "hi"}
	}

	It("accepts the owner in a recognized thread", func() {
		Expect(auth.Eligible(ctx, msg(ownerID))).To(BeTrue())
	})

	It("rejects any other identity in the same thread", func() {
		Expect(auth.Eligible(ctx, msg("someone-else"))).To(BeFalse())
	})

	It("rejects automated participants", func() {
		m := msg(ownerID)
		m.FromBot = true
		Expect(auth.Eligible(ctx, m)).To(BeFalse())
	})

	It("rejects the bot's own messages", func() {
		Expect(auth.Eligible(ctx, msg(botID))).To(BeFalse())
	})

	It("rejects messages outside a thread", func() {
		store.isThreadFn = func(context.Context, string) (bool, error) { return false, nil }
		Expect(auth.Eligible(ctx, msg(ownerID))).To(BeFalse())
	})

	It("rejects when the channel lookup fails", func() {
		store.isThreadFn = func(context.Context, string) (bool, error) {
			return false, errors.New("api down")
		}
		Expect(auth.Eligible(ctx, msg(ownerID))).To(BeFalse())
	})

	It("rejects threads whose starter has no command metadata", func() {
		store.starterFn = func(_ context.Context, threadID string) (model.ThreadMessage, error) {
			return model.ThreadMessage{ID: threadID}, nil
		}
		Expect(auth.Eligible(ctx, msg(ownerID))).To(BeFalse())
	})

	It("swallows starter lookup failures and rejects", func() {
		store.starterFn = func(context.Context, string) (model.ThreadMessage, error) {
			return model.ThreadMessage{}, errors.New("not found")
		}
		Expect(auth.Eligible(ctx, msg(ownerID))).To(BeFalse())
	})

	It("looks the owner up fresh on every check", func() {
		Expect(auth.Eligible(ctx, msg(ownerID))).To(BeTrue())
		Expect(auth.Eligible(ctx, msg(ownerID))).To(BeTrue())
		Expect(store.starterCalls).To(Equal(2))
	})
})
