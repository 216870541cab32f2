package imagegen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

// Generator renders one image for a description and returns a short-lived URL.
type Generator interface {
	GenerateImage(ctx context.Context, description string) (string, error)
}

var ErrEmptyDescription = errors.New("empty image description")

var _ Generator = (*OpenAIGenerator)(nil)

type OpenAIOptions struct {
	APIKey     string
	BaseURL    string
	Model      string
	Size       string
	Quality    string
	HTTPClient *http.Client
}

type OpenAIGenerator struct {
	client  openai.Client
	model   string
	size    string
	quality string
}

func NewOpenAIGenerator(opts OpenAIOptions) (*OpenAIGenerator, error) {
	if opts.APIKey == "" {
		return nil, errors.New("openai: api key is required")
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

	return &OpenAIGenerator{
		client:  openai.NewClient(reqOpts...),
		model:   opts.Model,
		size:    opts.Size,
		quality: opts.Quality,
	}, nil
}

func (g *OpenAIGenerator) GenerateImage(ctx context.Context, description string) (string, error) {
	if description == "" {
		return "", ErrEmptyDescription
	}

	resp, err := g.client.Images.Generate(ctx, openai.ImageGenerateParams{
		Prompt:         description,
		Model:          openai.ImageModel(g.model),
		Size:           openai.ImageGenerateParamsSize(g.size),
		Quality:        openai.ImageGenerateParamsQuality(g.quality),
		N:              openai.Int(1),
		ResponseFormat: openai.ImageGenerateParamsResponseFormatURL,
	})
	if err != nil {
		if code := StatusCode(err); code != 0 {
			slog.Warn("Image provider rejected request", "status", code, "model", g.model)
		}
		return "", fmt.Errorf("generate image: %w", err)
	}

	if len(resp.Data) == 0 {
		return "", fmt.Errorf("no image returned")
	}
	if resp.Data[0].URL == "" {
		return "", fmt.Errorf("image returned without url")
	}

	return resp.Data[0].URL, nil
}

// StatusCode extracts the provider HTTP status from err, or 0.
func StatusCode(err error) int {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
