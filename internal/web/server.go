package web

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pingen/internal/app"
	"pingen/internal/pin"
)

const maxRecent = 10

//go:embed templates/*.html
var templateFS embed.FS

var page = template.Must(template.New("index.html").Funcs(template.FuncMap{
	"inc": func(i int) int { return i + 1 },
}).ParseFS(templateFS, "templates/index.html"))

// Runner executes one batch. *app.Service and *app.Workflow satisfy it.
type Runner interface {
	Run(ctx context.Context, req app.Request, reporter app.Reporter) (*pin.BatchResult, error)
}

// History exposes previous runs. *history.Store satisfies it.
type History interface {
	List() []*pin.BatchResult
	Get(runID string) (*pin.BatchResult, error)
}

type Options struct {
	Runner  Runner
	History History
	// PinsDir is served under /pins/ when images are stored locally.
	PinsDir string
	// RunTimeout bounds a single POST /generate. Zero means no limit.
	RunTimeout time.Duration
}

type Server struct {
	runner     Runner
	history    History
	pinsDir    string
	runTimeout time.Duration
}

type pageData struct {
	Request app.Request
	Notices []app.Notice
	Result  *pin.BatchResult
	Recent  []*pin.BatchResult
}

func NewServer(opts Options) *Server {
	return &Server{
		runner:     opts.Runner,
		history:    opts.History,
		pinsDir:    opts.PinsDir,
		runTimeout: opts.RunTimeout,
	}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleIndex)
	r.Post("/generate", s.handleGenerate)
	r.Get("/runs/{runID}", s.handleRun)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	if s.pinsDir != "" {
		r.Handle("/pins/*", http.StripPrefix("/pins/", http.FileServer(http.Dir(s.pinsDir))))
	}

	return r
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	s.render(w, http.StatusOK, pageData{})
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		http.NotFound(w, r)
		return
	}

	result, err := s.history.Get(chi.URLParam(r, "runID"))
	if err != nil {
		http.NotFound(w, r)
		return
	}

	s.render(w, http.StatusOK, pageData{
		Request: app.Request{Topic: result.Topic, Board: result.Board, TargetURL: result.TargetURL},
		Result:  result,
	})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	req := app.Request{
		Topic:     r.PostFormValue("topic"),
		Board:     r.PostFormValue("board"),
		TargetURL: r.PostFormValue("target_url"),
	}

	ctx := r.Context()
	if s.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.runTimeout)
		defer cancel()
	}

	notices := &app.NoticeLog{}
	result, err := s.runner.Run(ctx, req, notices)

	data := pageData{Request: req, Notices: notices.Notices(), Result: result}
	switch {
	case err == nil:
		s.render(w, http.StatusOK, data)
	case errors.Is(err, app.ErrMissingInput):
		s.render(w, http.StatusBadRequest, data)
	case result != nil:
		// Interrupted run: show what finished.
		slog.Warn("Run ended early", "run_id", result.RunID, "error", err)
		s.render(w, http.StatusOK, data)
	default:
		slog.Error("Run failed", "error", err)
		s.render(w, http.StatusBadGateway, data)
	}
}

func (s *Server) render(w http.ResponseWriter, code int, data pageData) {
	if s.history != nil {
		data.Recent = s.history.List()
		if len(data.Recent) > maxRecent {
			data.Recent = data.Recent[:maxRecent]
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	if err := page.Execute(w, data); err != nil {
		slog.Error("Failed to render page", "error", err)
	}
}
