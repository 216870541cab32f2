package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"pingen/internal/llm"
	"pingen/internal/metrics"
	"pingen/internal/pin"
	"pingen/pkg/prompts"
)

const (
	DefaultMaxAttempts = 3
	DefaultRetryDelay  = 2 * time.Second
	DefaultRecordCount = 10
)

var (
	ErrMalformedResponse = errors.New("malformed model response")
	ErrGenerationFailed  = errors.New("record generation failed")
)

// RecordGenerator produces the ordered records for a topic.
type RecordGenerator interface {
	Generate(ctx context.Context, topic string, reporter Reporter) ([]*pin.Record, error)
}

type RecordPipelineOptions struct {
	LLM         llm.Client
	Prompts     *prompts.Prompts
	MaxAttempts int
	RetryDelay  time.Duration
	RecordCount int
}

// RecordPipeline asks the text model for pin records. Validation is
// deliberately lenient: count and field mismatches are logged, not rejected.
type RecordPipeline struct {
	llm         llm.Client
	prompts     *prompts.Prompts
	maxAttempts int
	retryDelay  time.Duration
	recordCount int
	sleep       func(ctx context.Context, d time.Duration) error
}

var _ RecordGenerator = (*RecordPipeline)(nil)

func NewRecordPipeline(opts RecordPipelineOptions) *RecordPipeline {
	p := &RecordPipeline{
		llm:         opts.LLM,
		prompts:     opts.Prompts,
		maxAttempts: opts.MaxAttempts,
		retryDelay:  opts.RetryDelay,
		recordCount: opts.RecordCount,
		sleep:       sleepContext,
	}
	if p.maxAttempts <= 0 {
		p.maxAttempts = DefaultMaxAttempts
	}
	if p.retryDelay <= 0 {
		p.retryDelay = DefaultRetryDelay
	}
	if p.recordCount <= 0 {
		p.recordCount = DefaultRecordCount
	}
	return p
}

func (p *RecordPipeline) Generate(ctx context.Context, topic string, reporter Reporter) ([]*pin.Record, error) {
	reporter = orDiscard(reporter)

	var lastErr error
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		slog.Debug("Generating records", "attempt", attempt, "max_attempts", p.maxAttempts)

		records, coerced, stage, err := p.attempt(ctx, topic)
		if err == nil {
			metrics.RecordAttempt("success")
			p.warnLenient(records, coerced, reporter)
			return records, nil
		}

		metrics.RecordAttempt(stage)
		lastErr = err
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%w: %w", ErrGenerationFailed, ctxErr)
		}

		slog.Warn("Record generation attempt failed",
			"attempt", attempt,
			"max_attempts", p.maxAttempts,
			"stage", stage,
			"error", err,
		)

		if attempt < p.maxAttempts {
			reporter.Report(LevelWarn, fmt.Sprintf("Record generation failed (%s). Retrying... (attempt %d/%d)", stage, attempt, p.maxAttempts))
			if err := p.sleep(ctx, p.retryDelay); err != nil {
				return nil, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
			}
		}
	}

	reporter.Report(LevelError, fmt.Sprintf("Error generating records after %d attempts: %v", p.maxAttempts, lastErr))
	return nil, fmt.Errorf("%w after %d attempts: %w", ErrGenerationFailed, p.maxAttempts, lastErr)
}

func (p *RecordPipeline) attempt(ctx context.Context, topic string) ([]*pin.Record, map[int][]string, string, error) {
	prompt, err := p.prompts.RenderPins(prompts.PinParams{Topic: topic, Count: p.recordCount})
	if err != nil {
		return nil, nil, "render", fmt.Errorf("render prompt: %w", err)
	}

	start := time.Now()
	text, err := p.llm.Complete(ctx, prompt)
	metrics.ObserveCall("text", time.Since(start), err == nil)
	if err != nil {
		return nil, nil, "completion", err
	}
	slog.Debug("Raw model response", "length", len(text), "response", text)

	body, err := stripFences(text)
	if err != nil {
		return nil, nil, "format", err
	}

	records, coerced, err := parseRecords(body)
	if err != nil {
		return nil, nil, "parse", err
	}

	return records, coerced, "", nil
}

func (p *RecordPipeline) warnLenient(records []*pin.Record, coerced map[int][]string, reporter Reporter) {
	if len(records) != p.recordCount {
		slog.Warn("Model returned unexpected record count", "got", len(records), "want", p.recordCount)
	}
	for i, r := range records {
		if keys := coerced[i]; len(keys) > 0 {
			slog.Warn("Record has fields of unexpected type", "index", i, "fields", strings.Join(keys, ", "))
		}
		if missing := r.MissingFields(); len(missing) > 0 {
			slog.Warn("Record has missing fields", "index", i, "fields", strings.Join(missing, ", "))
		}
	}
	reporter.Report(LevelSuccess, fmt.Sprintf("Generated %d records", len(records)))
}

// stripFences removes a surrounding markdown code fence (with optional
// language tag) or insists on a bare JSON array.
func stripFences(text string) (string, error) {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```") && strings.HasSuffix(text, "```") && len(text) >= 6 {
		inner := text[3 : len(text)-3]
		if nl := strings.IndexByte(inner, '\n'); nl >= 0 && !strings.ContainsAny(inner[:nl], "[{") {
			inner = inner[nl+1:]
		} else {
			inner = strings.TrimLeft(inner, "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ")
		}
		return strings.TrimSpace(inner), nil
	}

	if strings.HasPrefix(text, "[") && strings.HasSuffix(text, "]") {
		return text, nil
	}

	return "", fmt.Errorf("%w: response is neither a JSON array nor fenced", ErrMalformedResponse)
}

// parseRecords accepts any JSON array of objects. Keys of fields that had
// to be converted from another JSON type are returned per record index.
func parseRecords(body string) ([]*pin.Record, map[int][]string, error) {
	var items []json.RawMessage
	if err := json.Unmarshal([]byte(body), &items); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}

	records := make([]*pin.Record, 0, len(items))
	coerced := make(map[int][]string)
	for i, item := range items {
		if trimmed := bytes.TrimSpace(item); len(trimmed) == 0 || trimmed[0] != '{' {
			return nil, nil, fmt.Errorf("%w: element %d is not an object", ErrMalformedResponse, i)
		}

		record, keys, err := pin.DecodeRecord(item)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: element %d: %w", ErrMalformedResponse, i, err)
		}
		if len(keys) > 0 {
			coerced[i] = keys
		}

		record.Status = pin.StatusPendingImage
		record.ImageURL = ""
		records = append(records, record)
	}

	return records, coerced, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
