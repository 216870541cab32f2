package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"

	"pingen/internal/app"
	"pingen/internal/metrics"
	"pingen/internal/web"
	"pingen/pkg/config"
)

var (
	serveAddr    string
	serveOpen    bool
	serveTimeout time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web form",
	Long: `Serve the pin generator form over HTTP. Each submission runs one batch and
renders the resulting records. Prometheus metrics are exposed on /metrics.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&serveAddr, "addr", "a", "", "Listen address (default from config)")
	serveCmd.Flags().BoolVar(&serveOpen, "open", false, "Open the form in a browser")
	serveCmd.Flags().DurationVar(&serveTimeout, "run-timeout", 30*time.Minute, "Upper bound for a single batch")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.LoadFrom(ctx, configPath)
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	service, err := app.BuildService(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := service.Close(); err != nil {
			slog.Warn("Failed to close service", "error", err)
		}
	}()

	metrics.MustRegister()

	opts := web.Options{Runner: service, History: service.History(), RunTimeout: serveTimeout}
	if cfg.Storage.Backend == config.BackendLocal {
		opts.PinsDir = cfg.Storage.LocalDir
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           web.NewServer(opts).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		slog.Info("Server starting", "addr", cfg.Server.Addr, "storage", cfg.Storage.Backend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	if serveOpen {
		if err := browser.OpenURL(localURL(cfg.Server.Addr)); err != nil {
			slog.Warn("Failed to open browser", "error", err)
		}
	}

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
	}

	slog.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func localURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "http://localhost" + addr
	}
	return "http://" + addr
}
