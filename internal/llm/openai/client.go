package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"pingen/internal/llm"
)

// DeepSeekBaseURL serves the same chat completions API.
const DeepSeekBaseURL = "https://api.deepseek.com/v1/"

var _ llm.Client = (*Client)(nil)

type Options struct {
	APIKey       string
	Model        string
	SystemPrompt string
	BaseURL      string
	HTTPClient   *http.Client
}

// Client speaks the chat completions API used by OpenAI and compatible
// providers such as DeepSeek.
type Client struct {
	client       openai.Client
	model        string
	systemPrompt string
}

func NewClient(opts Options) (*Client, error) {
	if opts.APIKey == "" {
		return nil, errors.New("chat: api key is required")
	}
	if opts.Model == "" {
		return nil, errors.New("chat: model is required")
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		option.WithMaxRetries(0),
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}
	if opts.HTTPClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(opts.HTTPClient))
	}

	return &Client{
		client:       openai.NewClient(reqOpts...),
		model:        opts.Model,
		systemPrompt: opts.SystemPrompt,
	}, nil
}

func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	var messages []openai.ChatCompletionMessageParamUnion
	if c.systemPrompt != "" {
		messages = append(messages, openai.SystemMessage(c.systemPrompt))
	}
	messages = append(messages, openai.UserMessage(prompt))

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.model),
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
