package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"feedbackapi/internal/domain"
)

func InitDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS feedback (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		source     TEXT NOT NULL DEFAULT 'manual',
		content    TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		type       TEXT,
		theme      TEXT,
		sentiment  TEXT,
		urgency    INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_feedback_theme ON feedback(theme);
	CREATE INDEX IF NOT EXISTS idx_feedback_source ON feedback(source);
	CREATE INDEX IF NOT EXISTS idx_feedback_urgency ON feedback(urgency);

	CREATE TABLE IF NOT EXISTS daily_digest (
		id             INTEGER PRIMARY KEY AUTOINCREMENT,
		date           TEXT NOT NULL UNIQUE,
		top_themes     TEXT NOT NULL,
		urgent_items   TEXT NOT NULL,
		total_feedback INTEGER NOT NULL,
		created_at     DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS external_refs (
		source_ref  TEXT PRIMARY KEY,
		feedback_id INTEGER NOT NULL REFERENCES feedback(id) ON DELETE CASCADE
	);
	`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

const feedbackColumns = `id, source, content, created_at, type, theme, sentiment, urgency`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFeedback(row rowScanner) (domain.Feedback, error) {
	var f domain.Feedback
	var typ, theme, sentiment sql.NullString
	if err := row.Scan(&f.ID, &f.Source, &f.Content, &f.CreatedAt, &typ, &theme, &sentiment, &f.Urgency); err != nil {
		return domain.Feedback{}, err
	}
	f.Type = typ.String
	f.Theme = theme.String
	f.Sentiment = sentiment.String
	return f, nil
}

func collectFeedback(rows *sql.Rows) ([]domain.Feedback, error) {
	defer rows.Close()
	items := []domain.Feedback{}
	for rows.Next() {
		f, err := scanFeedback(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, f)
	}
	return items, rows.Err()
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// InsertFeedback stores an unanalyzed record and returns it with its id.
// An empty Type is stored as NULL.
func InsertFeedback(ctx context.Context, db *sql.DB, f domain.Feedback) (domain.Feedback, error) {
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now()
	}
	f.CreatedAt = f.CreatedAt.UTC()
	res, err := db.ExecContext(ctx,
		`INSERT INTO feedback (source, content, created_at, type, urgency) VALUES (?, ?, ?, ?, 0)`,
		f.Source, f.Content, f.CreatedAt, nullIfEmpty(f.Type),
	)
	if err != nil {
		return domain.Feedback{}, fmt.Errorf("inserting feedback: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.Feedback{}, err
	}
	f.ID = id
	f.Theme, f.Sentiment, f.Urgency = "", "", 0
	return f, nil
}

// GetFeedback returns sql.ErrNoRows when id does not exist.
func GetFeedback(ctx context.Context, db *sql.DB, id int64) (domain.Feedback, error) {
	row := db.QueryRowContext(ctx, `SELECT `+feedbackColumns+` FROM feedback WHERE id = ?`, id)
	return scanFeedback(row)
}

// ListFeedback returns the most urgent items first, newest id breaking ties.
// An empty theme lists every theme.
func ListFeedback(ctx context.Context, db *sql.DB, limit int, theme string) ([]domain.Feedback, error) {
	query := `SELECT ` + feedbackColumns + ` FROM feedback`
	args := []any{}
	if theme != "" {
		query += ` WHERE theme = ?`
		args = append(args, theme)
	}
	query += ` ORDER BY urgency DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectFeedback(rows)
}

func ListFeedbackBySource(ctx context.Context, db *sql.DB, source string, limit int) ([]domain.Feedback, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+feedbackColumns+` FROM feedback WHERE source = ? ORDER BY created_at DESC, id DESC LIMIT ?`,
		source, limit,
	)
	if err != nil {
		return nil, err
	}
	return collectFeedback(rows)
}

// ListUnanalyzed returns rows missing a theme or a sentiment, oldest first.
func ListUnanalyzed(ctx context.Context, db *sql.DB) ([]domain.Feedback, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+feedbackColumns+` FROM feedback WHERE theme IS NULL OR sentiment IS NULL ORDER BY id`,
	)
	if err != nil {
		return nil, err
	}
	return collectFeedback(rows)
}

func UpdateAnalysis(ctx context.Context, db *sql.DB, id int64, r domain.ClassificationResult) error {
	_, err := db.ExecContext(ctx,
		`UPDATE feedback SET theme = ?, sentiment = ?, urgency = ? WHERE id = ?`,
		string(r.Theme), string(r.Sentiment), r.Urgency, id,
	)
	return err
}

func DeleteAllFeedback(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `DELETE FROM feedback`)
	return err
}

func CountFeedback(ctx context.Context, db *sql.DB) (int, error) {
	var n int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM feedback`).Scan(&n)
	return n, err
}

func CountBySource(ctx context.Context, db *sql.DB) (map[string]int, error) {
	rows, err := db.QueryContext(ctx, `SELECT source, COUNT(*) FROM feedback GROUP BY source`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var source string
		var n int
		if err := rows.Scan(&source, &n); err != nil {
			return nil, err
		}
		counts[source] = n
	}
	return counts, rows.Err()
}

// PrioritizedBugs selects items at or above minUrgency, typed as bugs, or
// negative, most urgent and then newest first.
func PrioritizedBugs(ctx context.Context, db *sql.DB, minUrgency, limit int) ([]domain.Feedback, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+feedbackColumns+` FROM feedback
		 WHERE urgency >= ? OR type = 'bug' OR sentiment = 'negative'
		 ORDER BY urgency DESC, created_at DESC, id DESC
		 LIMIT ?`,
		minUrgency, limit,
	)
	if err != nil {
		return nil, err
	}
	return collectFeedback(rows)
}
