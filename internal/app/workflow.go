package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"pingen/internal/imagegen"
	"pingen/internal/metrics"
	"pingen/internal/pin"
	"pingen/internal/storage"
)

const promptPreviewLength = 100

var ErrMissingInput = errors.New("please fill in all input fields")

type Request struct {
	Topic     string `json:"topic"`
	Board     string `json:"board"`
	TargetURL string `json:"target_url"`
}

func (r Request) normalize() Request {
	return Request{
		Topic:     strings.TrimSpace(r.Topic),
		Board:     strings.TrimSpace(r.Board),
		TargetURL: strings.TrimSpace(r.TargetURL),
	}
}

func (r Request) Validate() error {
	n := r.normalize()
	var missing []string
	if n.Topic == "" {
		missing = append(missing, "topic")
	}
	if n.Board == "" {
		missing = append(missing, "board")
	}
	if n.TargetURL == "" {
		missing = append(missing, "target URL")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w (missing %s)", ErrMissingInput, strings.Join(missing, ", "))
	}
	return nil
}

// Downloader fetches a generated image by URL.
type Downloader interface {
	Download(ctx context.Context, url string) ([]byte, error)
}

type WorkflowOptions struct {
	Records      RecordGenerator
	Images       imagegen.Generator
	Downloader   Downloader
	Store        storage.ObjectStore
	ScratchDir   string
	ObjectPrefix string
	Now          func() time.Time
}

// Workflow runs one batch: records first, then one image per record in order.
type Workflow struct {
	records      RecordGenerator
	images       imagegen.Generator
	downloader   Downloader
	store        storage.ObjectStore
	scratchDir   string
	objectPrefix string
	now          func() time.Time
}

func NewWorkflow(opts WorkflowOptions) *Workflow {
	w := &Workflow{
		records:      opts.Records,
		images:       opts.Images,
		downloader:   opts.Downloader,
		store:        opts.Store,
		scratchDir:   opts.ScratchDir,
		objectPrefix: opts.ObjectPrefix,
		now:          opts.Now,
	}
	if w.now == nil {
		w.now = time.Now
	}
	return w
}

// Run returns an error only when no records could be produced or the
// context ended. Per-record image failures are reflected in Status.
func (w *Workflow) Run(ctx context.Context, req Request, reporter Reporter) (*pin.BatchResult, error) {
	reporter = orDiscard(reporter)

	if err := req.Validate(); err != nil {
		reporter.Report(LevelWarn, "Please fill in all input fields.")
		return nil, err
	}
	req = req.normalize()

	result := &pin.BatchResult{
		RunID:     newRunID(w.now(), req.Topic),
		Topic:     req.Topic,
		Board:     req.Board,
		TargetURL: req.TargetURL,
		StartedAt: w.now(),
	}
	logger := slog.With("run_id", result.RunID)

	reporter.Report(LevelSuccess, "Inputs received! Processing your request...")
	reporter.Report(LevelInfo, "This will take a few moments as content and images are generated...")
	logger.Info("Starting run", "topic", req.Topic, "board", req.Board)

	records, err := w.records.Generate(ctx, req.Topic, reporter)
	if err == nil && len(records) == 0 {
		err = fmt.Errorf("%w: model returned no records", ErrGenerationFailed)
	}
	if err != nil {
		logger.Error("Record generation failed", "error", err)
		reporter.Report(LevelError, "Failed to generate records. Cannot proceed with image generation and upload.")
		metrics.RunFinished("failed")
		return nil, err
	}
	result.Records = records

	sess, err := newSession(result.RunID, w.scratchDir, w.objectPrefix)
	if err != nil {
		metrics.RunFinished("failed")
		return nil, fmt.Errorf("create session: %w", err)
	}
	defer func() {
		if err := sess.scratch.Cleanup(); err != nil {
			logger.Warn("Failed to clean scratch directory", "dir", sess.scratch.Dir(), "error", err)
		}
	}()

	for i, record := range records {
		if err := ctx.Err(); err != nil {
			result.FinishedAt = w.now()
			logger.Warn("Run interrupted", "processed", i, "total", len(records))
			reporter.Report(LevelError, fmt.Sprintf("Run interrupted after %d of %d records.", i, len(records)))
			metrics.RunFinished("interrupted")
			return result, err
		}
		w.processRecord(ctx, sess, i, len(records), record, reporter)
		metrics.RecordOutcome(string(record.Status))
	}

	result.FinishedAt = w.now()
	counts := result.Counts()
	logger.Info("Run complete",
		"uploaded", counts[pin.StatusImageUploaded],
		"upload_failed", counts[pin.StatusUploadFailed],
		"image_failed", counts[pin.StatusImageGenerationFailed],
		"duration", result.Duration(),
	)
	reporter.Report(LevelSuccess, "Image generation and upload complete for all records!")
	metrics.RunFinished("completed")

	return result, nil
}

func (w *Workflow) processRecord(ctx context.Context, sess *session, index, total int, record *pin.Record, reporter Reporter) {
	logger := slog.With("run_id", sess.id, "index", index)

	reporter.Report(LevelInfo, fmt.Sprintf("Generating image %d/%d for: '%s'", index+1, total, record.Title))
	reporter.Report(LevelInfo, "Prompt: "+preview(record.ImageBackground))

	localPath, err := w.renderImage(ctx, sess, index, record.ImageBackground)
	if err != nil {
		record.Status = pin.StatusImageGenerationFailed
		logger.Error("Image generation failed", "error", err, "status", imagegen.StatusCode(err))
		reporter.Report(LevelError, fmt.Sprintf("Failed to generate image %d: %v", index+1, err))
		return
	}

	objectName := sess.objectName(index)
	start := time.Now()
	url, err := w.store.Upload(ctx, localPath, objectName)
	metrics.ObserveCall("storage", time.Since(start), err == nil)
	if err != nil {
		record.Status = pin.StatusUploadFailed
		logger.Error("Upload failed, keeping scratch file", "object", objectName, "scratch", localPath, "error", err)
		reporter.Report(LevelError, fmt.Sprintf("Failed to upload image %d.", index+1))
		return
	}

	record.ImageURL = url
	record.Status = pin.StatusImageUploaded
	logger.Info("Image uploaded", "url", url)
	reporter.Report(LevelSuccess, fmt.Sprintf("Image %d generated and uploaded successfully! URL: %s", index+1, url))

	if err := sess.scratch.Remove(localPath); err != nil {
		logger.Warn("Failed to remove scratch file", "path", localPath, "error", err)
	}
}

func (w *Workflow) renderImage(ctx context.Context, sess *session, index int, description string) (string, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return "", imagegen.ErrEmptyDescription
	}

	start := time.Now()
	imageURL, err := w.images.GenerateImage(ctx, description)
	metrics.ObserveCall("image", time.Since(start), err == nil)
	if err != nil {
		return "", err
	}

	start = time.Now()
	data, err := w.downloader.Download(ctx, imageURL)
	metrics.ObserveCall("download", time.Since(start), err == nil)
	if err != nil {
		return "", fmt.Errorf("download image: %w", err)
	}

	return sess.scratch.SaveImage(sess.imageName(index), data)
}

func preview(s string) string {
	if r := []rune(s); len(r) > promptPreviewLength {
		return string(r[:promptPreviewLength]) + "..."
	}
	return s
}
