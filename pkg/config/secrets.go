package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"golang.org/x/oauth2/google"
)

// SecretFetcher resolves a named secret to its latest value.
type SecretFetcher interface {
	Fetch(ctx context.Context, name string) (string, error)
}

type SecretManagerFetcher struct {
	client  *secretmanager.Client
	project string
}

func NewSecretManagerFetcher(ctx context.Context, project string) (*SecretManagerFetcher, error) {
	if project == "" {
		detected, err := DetectProject(ctx)
		if err != nil {
			return nil, err
		}
		project = detected
	}

	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create secret manager client: %w", err)
	}

	return &SecretManagerFetcher{client: client, project: project}, nil
}

func (f *SecretManagerFetcher) Fetch(ctx context.Context, name string) (string, error) {
	resp, err := f.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: fmt.Sprintf("projects/%s/secrets/%s/versions/latest", f.project, name),
	})
	if err != nil {
		return "", fmt.Errorf("access secret %s: %w", name, err)
	}
	return string(resp.GetPayload().GetData()), nil
}

func (f *SecretManagerFetcher) Close() error {
	return f.client.Close()
}

// ResolveSecrets fills API keys that the environment left empty. Lookup
// failures are logged and leave the field empty for Validate to report.
func ResolveSecrets(ctx context.Context, cfg *Config, fetcher SecretFetcher) {
	targets := []struct {
		name  string
		field *string
	}{
		{"GEMINI_API_KEY", &cfg.GeminiAPIKey},
		{"OPENAI_API_KEY", &cfg.OpenAIAPIKey},
		{"GROQ_API_KEY", &cfg.GroqAPIKey},
		{"DEEPSEEK_API_KEY", &cfg.DeepSeekAPIKey},
		{"GCS_BUCKET", &cfg.GCSBucket},
	}

	for _, target := range targets {
		if *target.field != "" {
			continue
		}
		value, err := fetcher.Fetch(ctx, target.name)
		if err != nil {
			slog.Debug("Secret not resolved", "name", target.name, "error", err)
			continue
		}
		*target.field = value
		slog.Debug("Secret resolved", "name", target.name)
	}
}

// DetectProject returns the project id bound to Application Default
// Credentials.
func DetectProject(ctx context.Context) (string, error) {
	creds, err := google.FindDefaultCredentials(ctx)
	if err != nil {
		return "", fmt.Errorf("find default credentials: %w", err)
	}
	if creds.ProjectID == "" {
		return "", errors.New("default credentials carry no project id")
	}
	return creds.ProjectID, nil
}
