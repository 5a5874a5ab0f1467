package fetch

import (
	"context"
	"database/sql"
	"log"
	"strings"
	"time"

	"feedbackapi/internal/classify"
	"feedbackapi/internal/config"
)

// Poster receives the import summary, typically a Slack channel.
type Poster interface {
	Post(ctx context.Context, text string) error
}

// StartImportScheduler imports GitHub feedback issues on
// cfg.GitHubImportSchedule until ctx is done. It returns immediately.
func StartImportScheduler(ctx context.Context, cfg Config, db *sql.DB, a classify.Analyzer, poster Poster) {
	schedule := strings.TrimSpace(cfg.GitHubImportSchedule)
	if schedule == "" {
		log.Println("GitHub import disabled (github_import_schedule not set)")
		return
	}
	if !cfg.GitHubConfigured() {
		log.Println("GitHub import disabled: GitHub is not configured")
		return
	}
	sched, err := config.ParseSchedule(schedule)
	if err != nil {
		log.Printf("Invalid github_import_schedule '%s': %v, import disabled", schedule, err)
		return
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	log.Printf("GitHub import scheduled (cron: %s, label: %s)", schedule, cfg.GitHubFeedbackLabel)

	go func() {
		for {
			now := time.Now().In(loc)
			next := sched.Next(now)
			wait := next.Sub(now)
			log.Printf("Next GitHub import at %s (in %s)", next.Format("Mon Jan 2 15:04"), wait.Round(time.Minute))

			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				log.Println("GitHub import scheduler stopped")
				return
			case <-timer.C:
			}

			result, err := ImportGitHubIssues(ctx, cfg, db, a, time.Now().In(loc))
			if err != nil {
				log.Printf("GitHub import error: %v", err)
				continue
			}
			summary := FormatImportSummary(result)
			log.Printf("GitHub import complete: %s", summary)
			if result.Inserted > 0 && poster != nil {
				if err := poster.Post(ctx, "GitHub import complete: "+summary); err != nil {
					log.Printf("GitHub import post error: %v", err)
				}
			}
		}
	}()
}
