package service

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// CoachModel produces coaching replies from the LLM backing the assistant.
// It returns the reply together with the total tokens the call consumed so
// the caller can meter them.
type CoachModel interface {
	Coach(ctx context.Context, systemPrompt, userMessage string) (string, int, error)
}

type openAICoach struct {
	client *openai.Client
	model  string
}

// NewOpenAICoach creates a CoachModel backed by the OpenAI chat completions API.
func NewOpenAICoach(apiKey, model string) CoachModel {
	return &openAICoach{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

func (c *openAICoach) Coach(ctx context.Context, systemPrompt, userMessage string) (string, int, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userMessage},
		},
	})
	if err != nil {
		return "", 0, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", resp.Usage.TotalTokens, fmt.Errorf("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, resp.Usage.TotalTokens, nil
}
