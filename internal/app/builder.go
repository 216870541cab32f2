package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"pingen/internal/history"
	"pingen/internal/imagegen"
	"pingen/internal/llm"
	"pingen/internal/llm/gemini"
	"pingen/internal/llm/groq"
	"pingen/internal/llm/openai"
	"pingen/internal/storage"
	"pingen/pkg/config"
	"pingen/pkg/httputil"
	"pingen/pkg/prompts"
)

func BuildService(ctx context.Context, cfg *config.Config) (*Service, error) {
	resolveProject(ctx, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p, err := prompts.Load(cfg.PromptsPath)
	if err != nil {
		return nil, err
	}

	textClient, lister, err := buildText(ctx, cfg, p)
	if err != nil {
		return nil, err
	}

	httpClient := &http.Client{Timeout: cfg.Pipeline.HTTPTimeout}

	images, err := imagegen.NewOpenAIGenerator(imagegen.OpenAIOptions{
		APIKey:     cfg.OpenAIAPIKey,
		BaseURL:    cfg.Images.BaseURL,
		Model:      cfg.Images.Model,
		Size:       cfg.Images.Size,
		Quality:    cfg.Images.Quality,
		HTTPClient: httpClient,
	})
	if err != nil {
		return nil, err
	}

	downloader := httputil.NewRetryClient(httpClient, httputil.DefaultRetryConfig()).
		WithMaxBytes(cfg.Images.MaxBytes)

	store, closers, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	records := NewRecordPipeline(RecordPipelineOptions{
		LLM:         textClient,
		Prompts:     p,
		MaxAttempts: cfg.Pipeline.MaxAttempts,
		RetryDelay:  cfg.Pipeline.RetryDelay,
		RecordCount: cfg.Pipeline.RecordCount,
	})

	workflow := NewWorkflow(WorkflowOptions{
		Records:      records,
		Images:       images,
		Downloader:   downloader,
		Store:        store,
		ScratchDir:   cfg.Pipeline.ScratchDir,
		ObjectPrefix: cfg.GCS.Prefix,
	})

	return NewService(ServiceOptions{
		Config:   cfg,
		Workflow: workflow,
		Models:   lister,
		History:  history.NewStore(cfg.History.Path, cfg.History.MaxRuns),
		Closers:  closers,
	}), nil
}

// BuildModelLister needs only the text provider's credentials.
func BuildModelLister(ctx context.Context, cfg *config.Config) (llm.ModelLister, error) {
	resolveProject(ctx, cfg)
	if err := cfg.ValidateText(); err != nil {
		return nil, err
	}
	if cfg.LLM.Provider != config.ProviderGemini {
		return nil, fmt.Errorf("model listing is only supported for the %s provider", config.ProviderGemini)
	}

	p, err := prompts.Load(cfg.PromptsPath)
	if err != nil {
		return nil, err
	}
	_, lister, err := buildText(ctx, cfg, p)
	return lister, err
}

// BuildObjectLister opens the configured object store for browsing.
// The returned close func is never nil.
func BuildObjectLister(ctx context.Context, cfg *config.Config) (storage.Lister, func() error, error) {
	if err := cfg.ValidateStorage(); err != nil {
		return nil, nil, err
	}
	store, closers, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	closeAll := func() error {
		var errs []error
		for _, c := range closers {
			errs = append(errs, c())
		}
		return errors.Join(errs...)
	}
	lister, ok := store.(storage.Lister)
	if !ok {
		_ = closeAll()
		return nil, nil, fmt.Errorf("storage backend %q cannot list objects", cfg.Storage.Backend)
	}
	return lister, closeAll, nil
}

func buildText(ctx context.Context, cfg *config.Config, p *prompts.Prompts) (llm.Client, llm.ModelLister, error) {
	switch cfg.LLM.Provider {
	case config.ProviderGroq:
		client, err := groq.NewClient(cfg.GroqAPIKey, cfg.Groq.Model, p.System.Pins, cfg.Groq.BaseURL)
		if err != nil {
			return nil, nil, err
		}
		return client, nil, nil
	case config.ProviderOpenAI, config.ProviderDeepSeek:
		opts := openai.Options{
			APIKey:       cfg.OpenAIAPIKey,
			Model:        cfg.OpenAIChat.Model,
			SystemPrompt: p.System.Pins,
			BaseURL:      cfg.OpenAIChat.BaseURL,
		}
		if cfg.LLM.Provider == config.ProviderDeepSeek {
			opts.APIKey = cfg.DeepSeekAPIKey
			opts.Model = cfg.DeepSeek.Model
			opts.BaseURL = cfg.DeepSeek.BaseURL
		}
		client, err := openai.NewClient(opts)
		if err != nil {
			return nil, nil, err
		}
		return client, nil, nil
	default:
		client, err := gemini.NewClient(ctx, gemini.Options{
			APIKey:       cfg.GeminiAPIKey,
			Project:      cfg.GCPProject,
			Location:     cfg.Gemini.Location,
			Model:        cfg.Gemini.Model,
			SystemPrompt: p.System.Pins,
			BaseURL:      cfg.Gemini.BaseURL,
		})
		if err != nil {
			return nil, nil, err
		}
		return client, client, nil
	}
}

func buildStore(ctx context.Context, cfg *config.Config) (storage.ObjectStore, []func() error, error) {
	if cfg.Storage.Backend == config.BackendLocal {
		local := storage.NewLocalStorage(cfg.Storage.LocalDir, cfg.Storage.BaseURL)
		if err := local.EnsureDirectories(); err != nil {
			return nil, nil, err
		}
		return local, nil, nil
	}

	gcs, err := storage.NewGCSStorage(ctx, storage.GCSOptions{
		Bucket:          cfg.GCSBucket,
		CredentialsFile: cfg.GoogleCredentialsFile,
		PublicRead:      cfg.PublicRead(),
	})
	if err != nil {
		return nil, nil, err
	}
	return gcs, []func() error{gcs.Close}, nil
}

// resolveProject fills the Vertex AI project from Application Default
// Credentials when Gemini has neither a key nor a project.
func resolveProject(ctx context.Context, cfg *config.Config) {
	if cfg.LLM.Provider != config.ProviderGemini || cfg.GeminiAPIKey != "" || cfg.GCPProject != "" {
		return
	}
	project, err := config.DetectProject(ctx)
	if err != nil {
		slog.Debug("No project from default credentials", "error", err)
		return
	}
	cfg.GCPProject = project
}
