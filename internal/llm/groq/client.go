package groq

import (
	"context"
	"errors"
	"fmt"

	"github.com/conneroisu/groq-go"

	"pingen/internal/llm"
)

var _ llm.Client = (*Client)(nil)

type Client struct {
	client       *groq.Client
	model        groq.ChatModel
	systemPrompt string
}

// NewClient talks to the public Groq endpoint unless baseURL is set.
func NewClient(apiKey, model, systemPrompt, baseURL string) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("groq: api key is required")
	}

	var (
		client *groq.Client
		err    error
	)
	if baseURL != "" {
		client, err = groq.NewClient(apiKey, groq.WithBaseURL(baseURL))
	} else {
		client, err = groq.NewClient(apiKey)
	}
	if err != nil {
		return nil, fmt.Errorf("create groq client: %w", err)
	}

	return &Client{
		client:       client,
		model:        groq.ChatModel(model),
		systemPrompt: systemPrompt,
	}, nil
}

func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	var messages []groq.ChatCompletionMessage
	if c.systemPrompt != "" {
		messages = append(messages, groq.ChatCompletionMessage{Role: groq.RoleSystem, Content: c.systemPrompt})
	}
	messages = append(messages, groq.ChatCompletionMessage{Role: groq.RoleUser, Content: prompt})

	resp, err := c.client.ChatCompletion(ctx, groq.ChatCompletionRequest{
		Model:    c.model,
		Messages: messages,
	})
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response")
	}

	content := resp.Choices[0].Message.Content
	if content == "" {
		return "", fmt.Errorf("empty response")
	}

	return content, nil
}
