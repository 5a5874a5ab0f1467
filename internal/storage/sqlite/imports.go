package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"feedbackapi/internal/domain"
)

// SourceRefExists reports whether an item from an external tracker (keyed by
// its URL) has already been imported.
func SourceRefExists(ctx context.Context, db *sql.DB, sourceRef string) (bool, error) {
	var count int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM external_refs WHERE source_ref = ?`, sourceRef).Scan(&count)
	return count > 0, err
}

// InsertImportedFeedback stores f and records sourceRef in one transaction.
// Deleting the feedback row releases the ref, so a reseeded store imports it
// again.
func InsertImportedFeedback(ctx context.Context, db *sql.DB, f domain.Feedback, sourceRef string) (domain.Feedback, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Feedback{}, err
	}
	defer tx.Rollback()

	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now()
	}
	f.CreatedAt = f.CreatedAt.UTC()
	res, err := tx.ExecContext(ctx,
		`INSERT INTO feedback (source, content, created_at, type, urgency) VALUES (?, ?, ?, ?, 0)`,
		f.Source, f.Content, f.CreatedAt, nullIfEmpty(f.Type),
	)
	if err != nil {
		return domain.Feedback{}, fmt.Errorf("inserting imported feedback: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.Feedback{}, err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO external_refs (source_ref, feedback_id) VALUES (?, ?)`, sourceRef, id,
	); err != nil {
		return domain.Feedback{}, fmt.Errorf("recording source ref %s: %w", sourceRef, err)
	}
	if err := tx.Commit(); err != nil {
		return domain.Feedback{}, err
	}

	f.ID = id
	f.Theme, f.Sentiment, f.Urgency = "", "", 0
	return f, nil
}
