package llm

import (
	"context"
	"fmt"
	"strings"
)

// Discord caps channel and thread names at 100 characters.
const maxTitleLen = 100

type titleResponse struct {
	Title string `json:"title" jsonschema_description:"Short conversation title, at most eight words, no trailing punctuation"`
}

var titleSchema = GenerateSchema[titleResponse]()

const titleSystemPrompt = "Summarize the user's prompt as a short title for a chat thread. " +
	"Respond with the title only."

// TitleGenerator names new conversation threads with a single, non-retried
// structured completion. Callers fall back to the raw prompt when it fails.
type TitleGenerator struct {
	llm Client
}

func NewTitleGenerator(client Client) *TitleGenerator {
	return &TitleGenerator{llm: client}
}

func (g *TitleGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	var resp titleResponse
	err := g.llm.Chat(ctx, Request{
		SystemPrompt: titleSystemPrompt,
		UserPrompt:   prompt,
		SchemaName:   "thread_title",
		Schema:       titleSchema,
		MaxTokens:    64,
		Temperature:  Temp(0.3),
	}, &resp)
	if err != nil {
		return "", fmt.Errorf("generating title: %w", err)
	}

	title := strings.TrimSpace(resp.Title)
	if title == "" {
		return "", fmt.Errorf("empty title in response")
	}
	if len([]rune(title)) > maxTitleLen {
		title = string([]rune(title)[:maxTitleLen])
	}
	return title, nil
}
