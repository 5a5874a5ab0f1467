package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"feedbackapi/internal/classify"
	"feedbackapi/internal/digest"
	"feedbackapi/internal/domain"
	"feedbackapi/internal/fetch"
	"feedbackapi/internal/report"
	"feedbackapi/internal/seed"
	"feedbackapi/internal/storage/sqlite"
)

var (
	headerColor = color.New(color.FgCyan, color.Bold)
	okColor     = color.New(color.FgGreen)
	warnColor   = color.New(color.FgYellow)
	urgentColor = color.New(color.FgRed, color.Bold)
)

func newClassifyCommand() *cobra.Command {
	var offline bool
	cmd := &cobra.Command{
		Use:   "classify <text>",
		Short: "Classify a piece of feedback without storing it",
		Long: `Run the classification pipeline on the given text and print the
theme, sentiment and urgency. With --offline only the keyword rules run and
no model is contacted.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.TrimSpace(strings.Join(args, " "))
			if text == "" {
				return fmt.Errorf("feedback text is empty")
			}

			var result domain.ClassificationResult
			if offline {
				result = classify.ClassifyFallback(text)
			} else {
				cfg, _ := loadRuntimeConfig()
				gen, err := newGenerator(cfg)
				if err != nil {
					return fmt.Errorf("configure llm: %w", err)
				}
				result = classify.NewClassifier(gen, nil).Analyze(cmd.Context(), text)
			}

			out := cmd.OutOrStdout()
			headerColor.Fprintln(out, "Classification")
			fmt.Fprintf(out, "  theme:     %s\n", result.Theme)
			fmt.Fprintf(out, "  sentiment: %s\n", result.Sentiment)
			fmt.Fprint(out, "  urgency:   ")
			urgencyColor(result.Urgency).Fprintf(out, "%d/5\n", result.Urgency)
			return nil
		},
	}
	cmd.Flags().BoolVar(&offline, "offline", false, "use keyword rules only")
	return cmd
}

func newDigestCommand() *cobra.Command {
	var post bool
	cmd := &cobra.Command{
		Use:   "digest",
		Short: "Generate today's digest once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _ := loadRuntimeConfig()
			db, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			job := digest.Job{DB: db, Location: location(cfg), DashboardURL: cfg.DashboardURL}
			if post {
				job.Poster = newPoster(cfg)
			}
			d, err := job.Run(cmd.Context())
			if err != nil {
				return fmt.Errorf("generate digest: %w", err)
			}

			out := cmd.OutOrStdout()
			headerColor.Fprintf(out, "Digest %s\n", d.Date)
			fmt.Fprintln(out, digest.FormatMessage(d, cfg.DashboardURL))
			return nil
		},
	}
	cmd.Flags().BoolVar(&post, "slack", false, "post the digest to the configured Slack channel")
	return cmd
}

func newAnalyzeAllCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "analyze-all",
		Short: "Classify every feedback item that has not been analyzed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _ := loadRuntimeConfig()
			db, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			gen, err := newGenerator(cfg)
			if err != nil {
				return fmt.Errorf("configure llm: %w", err)
			}
			items, err := sqlite.ListUnanalyzed(cmd.Context(), db)
			if err != nil {
				return fmt.Errorf("list unanalyzed: %w", err)
			}
			res := classify.AnalyzeAll(cmd.Context(), newStoredClassifier(db, gen), items)

			out := cmd.OutOrStdout()
			okColor.Fprintln(out, res.Message())
			if res.Failed > 0 {
				warnColor.Fprintf(out, "%d failed:\n", res.Failed)
				for _, e := range res.Errors {
					fmt.Fprintf(out, "  %s\n", e)
				}
			}
			return nil
		},
	}
}

func newBugReportCommand() *cobra.Command {
	var (
		minUrgency int
		limit      int
		save       bool
		post       bool
	)
	cmd := &cobra.Command{
		Use:   "bug-report",
		Short: "Print the prioritized bug report",
		Long: `Print the prioritized bug report grouped by theme. --save writes
Markdown and .eml drafts to report_output_dir; --slack posts the report to the
configured Slack channel.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _ := loadRuntimeConfig()
			db, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			bugs, err := sqlite.PrioritizedBugs(cmd.Context(), db, minUrgency, limit)
			if err != nil {
				return fmt.Errorf("load prioritized bugs: %w", err)
			}
			now := time.Now().In(location(cfg))
			r := report.BuildBugReport(bugs, cfg.DashboardURL, now)

			out := cmd.OutOrStdout()
			if r.Empty() {
				warnColor.Fprintln(out, report.NoBugsMessage)
			} else {
				headerColor.Fprintf(out, "%d prioritized items (%d critical, %d high)\n",
					r.Total(), r.Summary.Critical, r.Summary.High)
			}
			fmt.Fprintln(out, r.FormattedMessage)

			if save {
				mdPath, emlPath, err := report.WriteBugReportFiles(r.FormattedMessage, cfg.ReportOutputDir, now)
				if err != nil {
					return fmt.Errorf("save bug report: %w", err)
				}
				okColor.Fprintf(out, "Saved %s and %s\n", mdPath, emlPath)
			}
			if post {
				if err := newPoster(cfg).Post(cmd.Context(), r.FormattedMessage); err != nil {
					return err
				}
				okColor.Fprintln(out, "Posted to Slack")
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&minUrgency, "min-urgency", report.DefaultBugMinUrgency, "minimum urgency to include")
	cmd.Flags().IntVar(&limit, "limit", report.DefaultBugLimit, "maximum number of items")
	cmd.Flags().BoolVar(&save, "save", false, "write .md and .eml drafts to report_output_dir")
	cmd.Flags().BoolVar(&post, "slack", false, "post the report to the configured Slack channel")
	return cmd
}

func newSeedCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Replace all feedback with the demo data set and classify it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _ := loadRuntimeConfig()
			db, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			gen, err := newGenerator(cfg)
			if err != nil {
				return fmt.Errorf("configure llm: %w", err)
			}
			ids, err := seed.Seed(cmd.Context(), db, newStoredClassifier(db, gen), time.Now())
			if err != nil {
				return fmt.Errorf("seed: %w", err)
			}
			okColor.Fprintln(cmd.OutOrStdout(), seed.Message(len(ids)))
			return nil
		},
	}
}

func newImportGitHubCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import-github",
		Short: "Import feedback-labelled GitHub issues as feedback",
		Long: `Search the configured GitHub org or repos for issues carrying
github_feedback_label that were updated in the last week, store the ones not
imported before with source "github", and classify them.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _ := loadRuntimeConfig()
			db, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			gen, err := newGenerator(cfg)
			if err != nil {
				return fmt.Errorf("configure llm: %w", err)
			}
			res, err := fetch.ImportGitHubIssues(cmd.Context(), cfg, db, newStoredClassifier(db, gen), time.Now().In(location(cfg)))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if res.Inserted > 0 {
				okColor.Fprintln(out, fetch.FormatImportSummary(res))
			} else {
				warnColor.Fprintln(out, fetch.FormatImportSummary(res))
			}
			return nil
		},
	}
}

func urgencyColor(u int) *color.Color {
	switch {
	case u >= 5:
		return urgentColor
	case u >= domain.UrgentThreshold:
		return warnColor
	default:
		return okColor
	}
}
