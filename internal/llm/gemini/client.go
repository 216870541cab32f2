package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"google.golang.org/genai"

	"pingen/internal/llm"
)

var (
	_ llm.Client      = (*Client)(nil)
	_ llm.ModelLister = (*Client)(nil)
)

type Options struct {
	APIKey       string
	Project      string
	Location     string
	Model        string
	SystemPrompt string
	BaseURL      string
	HTTPClient   *http.Client
}

type Client struct {
	client       *genai.Client
	model        string
	systemPrompt string
}

// NewClient uses the Gemini API when an API key is set and Vertex AI otherwise.
func NewClient(ctx context.Context, opts Options) (*Client, error) {
	if opts.Model == "" {
		return nil, errors.New("gemini: model is required")
	}

	cfg := &genai.ClientConfig{
		HTTPClient:  opts.HTTPClient,
		HTTPOptions: genai.HTTPOptions{BaseURL: opts.BaseURL},
	}
	switch {
	case opts.APIKey != "":
		cfg.APIKey = opts.APIKey
		cfg.Backend = genai.BackendGeminiAPI
	case opts.Project != "":
		cfg.Project = opts.Project
		cfg.Location = opts.Location
		cfg.Backend = genai.BackendVertexAI
	default:
		return nil, errors.New("gemini: api key or project is required")
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return &Client{
		client:       client,
		model:        opts.Model,
		systemPrompt: opts.SystemPrompt,
	}, nil
}

func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	var config *genai.GenerateContentConfig
	if c.systemPrompt != "" {
		config = &genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{
				Parts: []*genai.Part{{Text: c.systemPrompt}},
			},
		}
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), config)
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	return responseText(resp)
}

// ListModels returns every model visible to the credentials, sorted by name.
func (c *Client) ListModels(ctx context.Context) ([]llm.ModelInfo, error) {
	var models []llm.ModelInfo
	for m, err := range c.client.Models.All(ctx) {
		if err != nil {
			return nil, fmt.Errorf("list models: %w", err)
		}
		models = append(models, toModelInfo(m))
	}
	slices.SortFunc(models, func(a, b llm.ModelInfo) int {
		return strings.Compare(a.Name, b.Name)
	})
	return models, nil
}

func toModelInfo(m *genai.Model) llm.ModelInfo {
	return llm.ModelInfo{
		Name:             m.Name,
		DisplayName:      m.DisplayName,
		Description:      m.Description,
		InputTokenLimit:  int(m.InputTokenLimit),
		OutputTokenLimit: int(m.OutputTokenLimit),
		Actions:          m.SupportedActions,
	}
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil ||
		len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no response")
	}

	var text string
	for _, part := range resp.Candidates[0].Content.Parts {
		text += part.Text
	}
	if text == "" {
		return "", fmt.Errorf("empty response")
	}

	return text, nil
}
