package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultConfigPath    = "config.yaml"
	defaultLLMProvider   = ProviderGemini
	defaultGeminiModel   = "gemini-1.5-pro-latest"
	defaultGeminiRegion  = "us-central1"
	defaultGroqModel     = "llama-3.3-70b-versatile"
	defaultChatModel     = "gpt-4o-mini"
	defaultDeepSeekModel = "deepseek-chat"
	defaultDeepSeekURL   = "https://api.deepseek.com/v1/"
	defaultImageModel    = "dall-e-3"
	defaultImageSize     = "1024x1024"
	defaultImageQuality  = "standard"
	defaultGCSPrefix     = "pinterest_pins"
	defaultStorage       = BackendGCS
	defaultLocalDir      = "./pins"
	defaultScratchDir    = "./temp_images"
	defaultServerAddr    = ":8080"
	defaultMaxAttempts   = 3
	defaultRetryDelay    = 2 * time.Second
	defaultRecordCount   = 10
	defaultHTTPTimeout   = 60 * time.Second
	defaultDownloadLimit = 32 << 20
	defaultHistoryPath   = "./.pingen/history.json"
	defaultHistoryRuns   = 20
)

const (
	ProviderGemini   = "gemini"
	ProviderGroq     = "groq"
	ProviderOpenAI   = "openai"
	ProviderDeepSeek = "deepseek"

	BackendGCS   = "gcs"
	BackendLocal = "local"
)

// ErrMissingCredential is returned by Validate when a required key or
// bucket is not configured.
var ErrMissingCredential = errors.New("missing credential")

type Config struct {
	GeminiAPIKey          string
	OpenAIAPIKey          string
	GroqAPIKey            string
	DeepSeekAPIKey        string
	GCPProject            string
	GCSBucket             string
	GoogleCredentialsFile string
	OAuthClientID         string
	OAuthClientSecret     string

	LLM         LLMConfig      `yaml:"llm"`
	Gemini      GeminiConfig   `yaml:"gemini"`
	Groq        GroqConfig     `yaml:"groq"`
	OpenAIChat  ChatConfig     `yaml:"openai_chat"`
	DeepSeek    ChatConfig     `yaml:"deepseek"`
	Images      ImagesConfig   `yaml:"images"`
	GCS         GCSConfig      `yaml:"gcs"`
	Storage     StorageConfig  `yaml:"storage"`
	Pipeline    PipelineConfig `yaml:"pipeline"`
	Server      ServerConfig   `yaml:"server"`
	History     HistoryConfig  `yaml:"history"`
	Secrets     SecretsConfig  `yaml:"secrets"`
	PromptsPath string         `yaml:"prompts_path"`
}

type LLMConfig struct {
	Provider string `yaml:"provider"` // gemini, groq, openai or deepseek
}

type GeminiConfig struct {
	Model    string `yaml:"model"`
	Location string `yaml:"location"`
	BaseURL  string `yaml:"base_url"`
}

type GroqConfig struct {
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

// ChatConfig configures an OpenAI-compatible chat completions provider.
type ChatConfig struct {
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

type ImagesConfig struct {
	Model    string `yaml:"model"`
	Size     string `yaml:"size"`
	Quality  string `yaml:"quality"`
	BaseURL  string `yaml:"base_url"`
	MaxBytes int64  `yaml:"max_bytes"`
}

type GCSConfig struct {
	Bucket          string `yaml:"bucket"`
	Prefix          string `yaml:"prefix"`
	Private         bool   `yaml:"private"`
	CredentialsFile string `yaml:"credentials_file"`
}

type StorageConfig struct {
	Backend  string `yaml:"backend"` // "gcs" or "local"
	LocalDir string `yaml:"local_dir"`
	BaseURL  string `yaml:"base_url"`
}

type PipelineConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	RetryDelay  time.Duration `yaml:"retry_delay"`
	RecordCount int           `yaml:"record_count"`
	ScratchDir  string        `yaml:"scratch_dir"`
	HTTPTimeout time.Duration `yaml:"http_timeout"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type HistoryConfig struct {
	Path    string `yaml:"path"`
	MaxRuns int    `yaml:"max_runs"`
}

type SecretsConfig struct {
	Enabled bool `yaml:"enabled"`
}

func Load(ctx context.Context) (*Config, error) {
	return LoadFrom(ctx, defaultConfigPath)
}

func LoadFrom(ctx context.Context, path string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, relying on environment variables")
	}

	cfg := &Config{
		GeminiAPIKey:          os.Getenv("GEMINI_API_KEY"),
		OpenAIAPIKey:          os.Getenv("OPENAI_API_KEY"),
		GroqAPIKey:            os.Getenv("GROQ_API_KEY"),
		DeepSeekAPIKey:        os.Getenv("DEEPSEEK_API_KEY"),
		GCPProject:            getEnvOrDefault("GOOGLE_CLOUD_PROJECT", os.Getenv("GCLOUD_PROJECT")),
		GCSBucket:             os.Getenv("GCS_BUCKET"),
		GoogleCredentialsFile: os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"),
		OAuthClientID:         os.Getenv("GOOGLE_OAUTH_CLIENT_ID"),
		OAuthClientSecret:     os.Getenv("GOOGLE_OAUTH_CLIENT_SECRET"),
	}

	if err := loadYAMLConfig(cfg, path); err != nil {
		return nil, err
	}
	applyDefaults(cfg)

	if cfg.Secrets.Enabled {
		fetcher, err := NewSecretManagerFetcher(ctx, cfg.GCPProject)
		if err != nil {
			slog.Warn("Secret Manager unavailable, using environment only", "error", err)
		} else {
			defer func() { _ = fetcher.Close() }()
			ResolveSecrets(ctx, cfg, fetcher)
		}
	}

	return cfg, nil
}

func loadYAMLConfig(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			slog.Warn("No config file found, using defaults", "path", path)
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func applyDefaults(cfg *Config) {
	applyLLMDefaults(cfg)
	applyImagesDefaults(cfg)
	applyGCSDefaults(cfg)
	applyStorageDefaults(cfg)
	applyPipelineDefaults(cfg)
	applyServerDefaults(cfg)
}

func applyLLMDefaults(cfg *Config) {
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = defaultLLMProvider
	}
	cfg.LLM.Provider = strings.ToLower(cfg.LLM.Provider)
	if cfg.Gemini.Model == "" {
		cfg.Gemini.Model = defaultGeminiModel
	}
	if cfg.Gemini.Location == "" {
		cfg.Gemini.Location = defaultGeminiRegion
	}
	if cfg.Groq.Model == "" {
		cfg.Groq.Model = defaultGroqModel
	}
	if cfg.OpenAIChat.Model == "" {
		cfg.OpenAIChat.Model = defaultChatModel
	}
	if cfg.DeepSeek.Model == "" {
		cfg.DeepSeek.Model = defaultDeepSeekModel
	}
	if cfg.DeepSeek.BaseURL == "" {
		cfg.DeepSeek.BaseURL = defaultDeepSeekURL
	}
}

func applyImagesDefaults(cfg *Config) {
	if cfg.Images.Model == "" {
		cfg.Images.Model = defaultImageModel
	}
	if cfg.Images.Size == "" {
		cfg.Images.Size = defaultImageSize
	}
	if cfg.Images.Quality == "" {
		cfg.Images.Quality = defaultImageQuality
	}
	if cfg.Images.MaxBytes == 0 {
		cfg.Images.MaxBytes = defaultDownloadLimit
	}
}

func applyGCSDefaults(cfg *Config) {
	// Environment wins over YAML for the bucket, matching the other secrets.
	if cfg.GCSBucket == "" {
		cfg.GCSBucket = cfg.GCS.Bucket
	}
	if cfg.GCS.Prefix == "" {
		cfg.GCS.Prefix = defaultGCSPrefix
	}
	cfg.GCS.Prefix = strings.Trim(cfg.GCS.Prefix, "/")
	if cfg.GoogleCredentialsFile == "" {
		cfg.GoogleCredentialsFile = cfg.GCS.CredentialsFile
	}
}

func applyStorageDefaults(cfg *Config) {
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = defaultStorage
	}
	cfg.Storage.Backend = strings.ToLower(cfg.Storage.Backend)
	if cfg.Storage.LocalDir == "" {
		cfg.Storage.LocalDir = defaultLocalDir
	}
}

func applyPipelineDefaults(cfg *Config) {
	if cfg.Pipeline.MaxAttempts <= 0 {
		cfg.Pipeline.MaxAttempts = defaultMaxAttempts
	}
	if cfg.Pipeline.RetryDelay <= 0 {
		cfg.Pipeline.RetryDelay = defaultRetryDelay
	}
	if cfg.Pipeline.RecordCount <= 0 {
		cfg.Pipeline.RecordCount = defaultRecordCount
	}
	if cfg.Pipeline.ScratchDir == "" {
		cfg.Pipeline.ScratchDir = defaultScratchDir
	}
	if cfg.Pipeline.HTTPTimeout <= 0 {
		cfg.Pipeline.HTTPTimeout = defaultHTTPTimeout
	}
}

func applyServerDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = defaultServerAddr
	}
	if cfg.Storage.BaseURL == "" {
		cfg.Storage.BaseURL = "http://localhost" + portSuffix(cfg.Server.Addr) + "/pins"
	}
	if cfg.History.Path == "" {
		cfg.History.Path = defaultHistoryPath
	}
	if cfg.History.MaxRuns <= 0 {
		cfg.History.MaxRuns = defaultHistoryRuns
	}
}

func portSuffix(addr string) string {
	if i := strings.LastIndex(addr, ":"); i >= 0 {
		return addr[i:]
	}
	return ""
}

// Validate reports every credential the configured providers need but
// do not have. Model listing only needs the text provider, so callers
// that skip image work can use ValidateText instead.
func (c *Config) Validate() error {
	missing := c.missingText()
	if c.OpenAIAPIKey == "" && c.LLM.Provider != ProviderOpenAI {
		missing = append(missing, "OPENAI_API_KEY")
	}
	if c.Storage.Backend == BackendGCS && c.GCSBucket == "" {
		missing = append(missing, "GCS_BUCKET")
	}

	if err := c.validateSettings(); err != nil {
		return err
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingCredential, strings.Join(missing, ", "))
	}
	return nil
}

func (c *Config) ValidateText() error {
	if missing := c.missingText(); len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingCredential, strings.Join(missing, ", "))
	}
	return nil
}

func (c *Config) ValidateStorage() error {
	switch c.Storage.Backend {
	case BackendGCS:
		if c.GCSBucket == "" {
			return fmt.Errorf("%w: GCS_BUCKET", ErrMissingCredential)
		}
	case BackendLocal:
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	return nil
}

func (c *Config) missingText() []string {
	var missing []string
	switch c.LLM.Provider {
	case ProviderGroq:
		if c.GroqAPIKey == "" {
			missing = append(missing, "GROQ_API_KEY")
		}
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			missing = append(missing, "OPENAI_API_KEY")
		}
	case ProviderDeepSeek:
		if c.DeepSeekAPIKey == "" {
			missing = append(missing, "DEEPSEEK_API_KEY")
		}
	default:
		if c.GeminiAPIKey == "" && c.GCPProject == "" {
			missing = append(missing, "GEMINI_API_KEY or GOOGLE_CLOUD_PROJECT")
		}
	}
	return missing
}

func (c *Config) validateSettings() error {
	switch c.LLM.Provider {
	case ProviderGemini, ProviderGroq, ProviderOpenAI, ProviderDeepSeek:
	default:
		return fmt.Errorf("unknown llm provider %q", c.LLM.Provider)
	}
	switch c.Storage.Backend {
	case BackendGCS, BackendLocal:
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	return nil
}

// PublicRead reports whether uploaded objects get an allUsers reader ACL.
func (c *Config) PublicRead() bool {
	return !c.GCS.Private
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
