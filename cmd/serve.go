package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/ctenopool/labeler/internal/auth"
	"github.com/ctenopool/labeler/internal/config"
	"github.com/ctenopool/labeler/internal/handlers"
	"github.com/ctenopool/labeler/internal/journal"
	"github.com/ctenopool/labeler/internal/labelapi"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var (
		configPath string
		port       string
		addr       string
		apiBase    string
		apiTimeout time.Duration
		devLogin   bool
		journalDB  string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start web server for the labeling interface",
		Long: `Starts the labeling web interface.

Settings come from the defaults, then the YAML file given with --config, then
the environment (LABELER_API_BASE, LABELER_ADDR, GOOGLE_CLIENT_ID,
LABELER_SESSION_SECRET, LABELER_JOURNAL, ...), then the flags below.`,
		Example: `  # Start server on default port 8888 against a local API
  labeler serve --dev-login

  # Start server on custom port with a submission journal
  labeler serve --port 3000 --journal labels.db`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("port") {
				cfg.Addr = ":" + port
			}
			if flags.Changed("addr") {
				cfg.Addr = addr
			}
			if flags.Changed("api-base") {
				cfg.APIBase = apiBase
			}
			if flags.Changed("api-timeout") {
				cfg.APITimeout = apiTimeout
			}
			if flags.Changed("dev-login") {
				cfg.DevLogin = devLogin
			}
			if flags.Changed("journal") {
				cfg.JournalPath = journalDB
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			store, err := auth.NewCookieStore(cfg.SessionSecret, cfg.SecureCookies)
			if err != nil {
				return err
			}
			var verifier auth.TokenVerifier
			if cfg.GoogleClientID != "" {
				verifier = auth.NewGoogleVerifier(cfg.GoogleClientID)
			}

			opts := handlers.Options{
				API:            labelapi.NewClient(cfg.APIBase, cfg.APITimeout),
				Auth:           auth.NewManager(store, verifier),
				ClassLabels:    cfg.ClassLabels,
				GoogleClientID: cfg.GoogleClientID,
				DevLogin:       cfg.DevLogin,
				Logger:         slog.Default(),
			}
			if cfg.JournalPath != "" {
				j, err := journal.Open(cfg.JournalPath)
				if err != nil {
					return err
				}
				defer j.Close()
				opts.History = j
				slog.Info("Journaling submissions", "path", cfg.JournalPath)
			}
			if cfg.DevLogin {
				slog.Warn("Dev login enabled, anyone can sign in with any name")
			}

			handler, err := handlers.New(opts)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			go handler.RunSweeper(ctx, cfg.SessionTTL)

			server := &http.Server{
				Addr:              cfg.Addr,
				Handler:           handler.Router(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			// Start server in goroutine
			serverErr := make(chan error, 1)
			go func() {
				slog.Info("Labeling interface available", "addr", cfg.Addr, "api", cfg.APIBase)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			// Wait for context cancellation (Ctrl+C) or server error
			select {
			case <-ctx.Done():
				slog.Info("Shutting down server...")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					slog.Error("Server shutdown failed", "err", err)
					return err
				}
				slog.Info("Server stopped")
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Path to a YAML config file")
	cmd.Flags().StringVarP(&port, "port", "p", "8888", "Port to listen on")
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address, overrides --port")
	cmd.Flags().StringVar(&apiBase, "api-base", labelapi.DefaultBaseURL, "Base URL of the labeling API")
	cmd.Flags().DurationVar(&apiTimeout, "api-timeout", 0, "Timeout for labeling API calls (0 waits indefinitely)")
	cmd.Flags().BoolVar(&devLogin, "dev-login", false, "Allow signing in with a typed name instead of Google")
	cmd.Flags().StringVar(&journalDB, "journal", "", "Path to a sqlite journal of submissions")

	return cmd
}
