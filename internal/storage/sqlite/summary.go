package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"feedbackapi/internal/domain"
)

func Summary(ctx context.Context, db *sql.DB) (domain.Summary, error) {
	s := domain.Summary{
		Sentiment: map[string]int{},
		Themes:    []domain.ThemeCount{},
		Types:     []domain.TypeCount{},
	}

	total, err := CountFeedback(ctx, db)
	if err != nil {
		return s, fmt.Errorf("counting feedback: %w", err)
	}
	s.Total = total

	rows, err := db.QueryContext(ctx,
		`SELECT sentiment, COUNT(*) FROM feedback WHERE sentiment IS NOT NULL GROUP BY sentiment`)
	if err != nil {
		return s, fmt.Errorf("sentiment breakdown: %w", err)
	}
	for rows.Next() {
		var sentiment string
		var n int
		if err := rows.Scan(&sentiment, &n); err != nil {
			rows.Close()
			return s, err
		}
		s.Sentiment[sentiment] = n
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return s, err
	}

	rows, err = db.QueryContext(ctx,
		`SELECT theme, COUNT(*), SUM(CASE WHEN urgency >= ? THEN 1 ELSE 0 END)
		 FROM feedback WHERE theme IS NOT NULL GROUP BY theme`, domain.UrgentThreshold)
	if err != nil {
		return s, fmt.Errorf("theme breakdown: %w", err)
	}
	for rows.Next() {
		var tc domain.ThemeCount
		if err := rows.Scan(&tc.Theme, &tc.Count, &tc.UrgentCount); err != nil {
			rows.Close()
			return s, err
		}
		s.Themes = append(s.Themes, tc)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return s, err
	}
	sort.SliceStable(s.Themes, func(i, j int) bool { return s.Themes[i].Count > s.Themes[j].Count })

	rows, err = db.QueryContext(ctx,
		`SELECT type, COUNT(*),
		        SUM(CASE WHEN urgency >= ? THEN 1 ELSE 0 END),
		        SUM(CASE WHEN sentiment = 'negative' THEN 1 ELSE 0 END)
		 FROM feedback WHERE type IS NOT NULL GROUP BY type`, domain.UrgentThreshold)
	if err != nil {
		return s, fmt.Errorf("type breakdown: %w", err)
	}
	for rows.Next() {
		var tc domain.TypeCount
		if err := rows.Scan(&tc.Type, &tc.Count, &tc.UrgentCount, &tc.NegativeCount); err != nil {
			rows.Close()
			return s, err
		}
		s.Types = append(s.Types, tc)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return s, err
	}

	if err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM feedback WHERE urgency >= ?`, domain.UrgentThreshold).Scan(&s.Urgent); err != nil {
		return s, fmt.Errorf("urgent count: %w", err)
	}
	return s, nil
}

func TopThemes(ctx context.Context, db *sql.DB, n int) ([]domain.DigestTheme, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT theme, COUNT(*) AS count FROM feedback WHERE theme IS NOT NULL
		 GROUP BY theme ORDER BY count DESC, theme LIMIT ?`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.DigestTheme{}
	for rows.Next() {
		var t domain.DigestTheme
		if err := rows.Scan(&t.Theme, &t.Count); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func TopUrgent(ctx context.Context, db *sql.DB, n int) ([]domain.Feedback, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+feedbackColumns+` FROM feedback WHERE urgency >= ?
		 ORDER BY urgency DESC, id DESC LIMIT ?`, domain.UrgentThreshold, n)
	if err != nil {
		return nil, err
	}
	return collectFeedback(rows)
}

// UpsertDigest replaces any digest already stored for d.Date.
func UpsertDigest(ctx context.Context, db *sql.DB, d domain.Digest) error {
	themes, err := json.Marshal(d.TopThemes)
	if err != nil {
		return err
	}
	items, err := json.Marshal(d.UrgentItems)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx,
		`INSERT INTO daily_digest (date, top_themes, urgent_items, total_feedback, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(date) DO UPDATE SET
		   top_themes = excluded.top_themes,
		   urgent_items = excluded.urgent_items,
		   total_feedback = excluded.total_feedback,
		   created_at = excluded.created_at`,
		d.Date, string(themes), string(items), d.TotalFeedback, d.CreatedAt.UTC(),
	)
	return err
}

// LatestDigest returns sql.ErrNoRows when no digest has been generated.
func LatestDigest(ctx context.Context, db *sql.DB) (domain.Digest, error) {
	var d domain.Digest
	var themes, items string
	var createdAt time.Time
	err := db.QueryRowContext(ctx,
		`SELECT date, top_themes, urgent_items, total_feedback, created_at
		 FROM daily_digest ORDER BY date DESC LIMIT 1`,
	).Scan(&d.Date, &themes, &items, &d.TotalFeedback, &createdAt)
	if err != nil {
		return domain.Digest{}, err
	}
	if err := json.Unmarshal([]byte(themes), &d.TopThemes); err != nil {
		return domain.Digest{}, fmt.Errorf("decoding top_themes: %w", err)
	}
	if err := json.Unmarshal([]byte(items), &d.UrgentItems); err != nil {
		return domain.Digest{}, fmt.Errorf("decoding urgent_items: %w", err)
	}
	d.CreatedAt = createdAt
	return d, nil
}
