package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"feedbackapi/internal/classify"
	"feedbackapi/internal/config"
	"feedbackapi/internal/digest"
	"feedbackapi/internal/domain"
	"feedbackapi/internal/fetch"
	"feedbackapi/internal/httpx"
	"feedbackapi/internal/integrations/llm"
	slackbot "feedbackapi/internal/integrations/slack"
	"feedbackapi/internal/server"
	"feedbackapi/internal/storage/sqlite"
)

// Version is injected at build time via -ldflags.
var Version = "dev"

const shutdownTimeout = 10 * time.Second

// Replaced in tests.
var (
	loadConfig   = config.LoadConfig
	newGenerator = llm.NewGenerator
	newPoster    = slackbot.NewPoster
)

func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "feedbackd",
		Short: "Product feedback intake and triage service",
		Long: `feedbackd collects product feedback, classifies it by theme,
sentiment and urgency with a language model (falling back to keyword
rules), and serves summaries, suggestions, digests and bug reports.

Running without a subcommand starts the HTTP server.`,
		Version:      Version,
		SilenceUsage: true,
		RunE:         runServe,
	}

	cmd.AddCommand(newServeCommand())
	cmd.AddCommand(newClassifyCommand())
	cmd.AddCommand(newDigestCommand())
	cmd.AddCommand(newAnalyzeAllCommand())
	cmd.AddCommand(newBugReportCommand())
	cmd.AddCommand(newSeedCommand())
	cmd.AddCommand(newImportGitHubCommand())

	return cmd
}

// Main runs the CLI and exits non-zero on failure.
func Main() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and the digest scheduler",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
}

// loadRuntimeConfig loads the config and applies its outbound HTTP timeout
// to the shared client used by the model and GitHub integrations.
func loadRuntimeConfig() (config.Config, time.Duration) {
	cfg := loadConfig()
	return cfg, httpx.ConfigureExternalHTTPClient(cfg.ExternalHTTPTimeoutSeconds)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, appliedHTTPTimeout := loadRuntimeConfig()
	log.Printf(
		"Config loaded. Listen=%s LLMProvider=%s LLMModel=%s Timezone=%s DigestSchedule=%q Slack=%t ExternalHTTPTimeout=%s",
		cfg.ListenAddr,
		cfg.LLMProvider,
		cfg.LLMModel,
		cfg.Timezone,
		cfg.DigestSchedule,
		cfg.SlackConfigured(),
		appliedHTTPTimeout,
	)

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := os.MkdirAll(cfg.ReportOutputDir, 0o755); err != nil {
		return fmt.Errorf("create report output dir: %w", err)
	}
	log.Printf("Report output dir: %s", cfg.ReportOutputDir)

	gen, err := newGenerator(cfg)
	if err != nil {
		return fmt.Errorf("configure llm: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	api := server.New(cfg, db, gen)
	poster := newPoster(cfg)
	digest.StartScheduler(ctx, cfg, digest.Job{
		DB:           db,
		Poster:       poster,
		Location:     cfg.Location,
		DashboardURL: cfg.DashboardURL,
	})
	fetch.StartImportScheduler(ctx, cfg, db, api.Classifier(), poster)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           api.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting feedback API on %s", cfg.ListenAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	log.Println("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

func openDB(cfg config.Config) (*sql.DB, error) {
	db, err := sqlite.InitDB(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("init database %s: %w", cfg.DBPath, err)
	}
	log.Printf("Database initialized at %s", cfg.DBPath)
	return db, nil
}

// newStoredClassifier classifies and persists the result on the feedback row.
func newStoredClassifier(db *sql.DB, gen llm.Generator) *classify.Classifier {
	return classify.NewClassifier(gen, classify.StoreFunc(
		func(ctx context.Context, id int64, r domain.ClassificationResult) error {
			return sqlite.UpdateAnalysis(ctx, db, id, r)
		}))
}

func location(cfg config.Config) *time.Location {
	if cfg.Location != nil {
		return cfg.Location
	}
	return time.UTC
}
