package digest

import (
	"context"
	"database/sql"
	"log"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"feedbackapi/internal/config"
	"feedbackapi/internal/domain"
)

// Poster delivers the rendered digest, typically to Slack.
type Poster interface {
	Post(ctx context.Context, text string) error
}

// Job generates one digest and posts it.
type Job struct {
	DB           *sql.DB
	Poster       Poster
	Location     *time.Location
	DashboardURL string
}

func (j Job) Run(ctx context.Context) (domain.Digest, error) {
	loc := j.Location
	if loc == nil {
		loc = time.UTC
	}
	d, err := Generate(ctx, j.DB, time.Now().In(loc))
	if err != nil {
		return domain.Digest{}, err
	}
	if j.Poster != nil {
		if err := j.Poster.Post(ctx, FormatMessage(d, j.DashboardURL)); err != nil {
			log.Printf("digest post error date=%s: %v", d.Date, err)
		}
	}
	return d, nil
}

// StartScheduler runs job on cfg.DigestSchedule until ctx is done. It
// returns immediately; an empty schedule disables it.
func StartScheduler(ctx context.Context, cfg config.Config, job Job) {
	schedule := strings.TrimSpace(cfg.DigestSchedule)
	if schedule == "" {
		log.Println("Digest disabled (digest_schedule not set)")
		return
	}
	sched, err := config.ParseSchedule(schedule)
	if err != nil {
		log.Printf("Invalid digest_schedule '%s': %v, digest disabled", schedule, err)
		return
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	log.Printf("Digest scheduled (cron: %s, tz: %s)", schedule, loc)
	go runLoop(ctx, sched, loc, func(ctx context.Context) {
		if _, err := job.Run(ctx); err != nil {
			log.Printf("Digest error: %v", err)
		}
	})
}

func runLoop(ctx context.Context, sched cron.Schedule, loc *time.Location, run func(context.Context)) {
	for {
		now := time.Now().In(loc)
		next := sched.Next(now)
		wait := next.Sub(now)
		log.Printf("Next digest at %s (in %s)", next.Format("Mon Jan 2 15:04"), wait.Round(time.Minute))

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			log.Println("Digest scheduler stopped")
			return
		case <-timer.C:
		}
		run(ctx)
	}
}
