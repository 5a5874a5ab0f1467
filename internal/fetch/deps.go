package fetch

import (
	"context"
	"database/sql"

	"feedbackapi/internal/config"
	"feedbackapi/internal/domain"
	gh "feedbackapi/internal/integrations/github"
	"feedbackapi/internal/storage/sqlite"
)

type Config = config.Config
type Feedback = domain.Feedback
type Issue = gh.Issue

// Replaced in tests.
var fetchFeedbackIssues = gh.FetchFeedbackIssues

func sourceRefExists(ctx context.Context, db *sql.DB, sourceRef string) (bool, error) {
	return sqlite.SourceRefExists(ctx, db, sourceRef)
}

func insertImportedFeedback(ctx context.Context, db *sql.DB, f Feedback, sourceRef string) (Feedback, error) {
	return sqlite.InsertImportedFeedback(ctx, db, f, sourceRef)
}
