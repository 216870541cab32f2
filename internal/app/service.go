package app

import (
	"context"
	"errors"
	"log/slog"

	"pingen/internal/history"
	"pingen/internal/llm"
	"pingen/internal/pin"
	"pingen/pkg/config"
)

type Service struct {
	cfg      *config.Config
	workflow *Workflow
	models   llm.ModelLister
	history  *history.Store
	closers  []func() error
}

type ServiceOptions struct {
	Config   *config.Config
	Workflow *Workflow
	Models   llm.ModelLister
	History  *history.Store
	Closers  []func() error
}

func NewService(opts ServiceOptions) *Service {
	return &Service{
		cfg:      opts.Config,
		workflow: opts.Workflow,
		models:   opts.Models,
		history:  opts.History,
		closers:  opts.Closers,
	}
}

func (s *Service) Config() *config.Config {
	return s.cfg
}

func (s *Service) Workflow() *Workflow {
	return s.workflow
}

// Models is nil when the configured text provider cannot list models.
func (s *Service) Models() llm.ModelLister {
	return s.models
}

func (s *Service) History() *history.Store {
	return s.history
}

// Run executes the workflow and records any result, partial ones included.
func (s *Service) Run(ctx context.Context, req Request, reporter Reporter) (*pin.BatchResult, error) {
	result, err := s.workflow.Run(ctx, req, reporter)
	if result != nil && s.history != nil {
		if herr := s.history.Add(result); herr != nil {
			slog.Warn("Failed to record run history", "run_id", result.RunID, "error", herr)
		}
	}
	return result, err
}

func (s *Service) Close() error {
	var errs []error
	for _, c := range s.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
