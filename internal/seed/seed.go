package seed

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log"
	"time"

	"gopkg.in/yaml.v3"

	"feedbackapi/internal/classify"
	"feedbackapi/internal/domain"
	"feedbackapi/internal/storage/sqlite"
)

//go:embed seed.yaml
var seedYAML []byte

type Item struct {
	Content string `yaml:"content"`
	Type    string `yaml:"type"`
	Source  string `yaml:"source"`
}

func Items() ([]Item, error) {
	var items []Item
	if err := yaml.Unmarshal(seedYAML, &items); err != nil {
		return nil, fmt.Errorf("parsing seed data: %w", err)
	}
	return items, nil
}

// createdAt spreads items back from now: two per day, plus i%24 hours.
func createdAt(now time.Time, i int) time.Time {
	days := i / 2
	hours := i % 24
	return now.Add(-time.Duration(days)*24*time.Hour - time.Duration(hours)*time.Hour)
}

// Seed replaces all feedback with the demo set and classifies each item.
// Classification failures are logged and do not stop the run.
func Seed(ctx context.Context, db *sql.DB, a classify.Analyzer, now time.Time) ([]int64, error) {
	items, err := Items()
	if err != nil {
		return nil, err
	}
	if err := sqlite.DeleteAllFeedback(ctx, db); err != nil {
		return nil, fmt.Errorf("clearing feedback: %w", err)
	}

	ids := make([]int64, 0, len(items))
	for i, item := range items {
		f, err := sqlite.InsertFeedback(ctx, db, domain.Feedback{
			Source:    item.Source,
			Content:   item.Content,
			Type:      item.Type,
			CreatedAt: createdAt(now, i),
		})
		if err != nil {
			return ids, err
		}
		ids = append(ids, f.ID)
		if _, err := a.Classify(ctx, f.Content, f.ID); err != nil {
			log.Printf("seed analyze failed id=%d: %v", f.ID, err)
		}
	}
	log.Printf("seed inserted=%d", len(ids))
	return ids, nil
}

func Message(n int) string {
	return fmt.Sprintf("Seeded %d feedback items. All items have been analyzed.", n)
}
