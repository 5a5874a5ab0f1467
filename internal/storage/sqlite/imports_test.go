package sqlite

import (
	"context"
	"testing"
	"time"

	"feedbackapi/internal/domain"
)

func TestInsertImportedFeedbackTracksSourceRef(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	ref := "https://github.com/acme/api/issues/12"

	exists, err := SourceRefExists(ctx, db, ref)
	if err != nil || exists {
		t.Fatalf("expected unknown ref, got exists=%v err=%v", exists, err)
	}

	f, err := InsertImportedFeedback(ctx, db, domain.Feedback{
		Source:    "github",
		Content:   "Login page is broken",
		Type:      "bug",
		CreatedAt: time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC),
	}, ref)
	if err != nil {
		t.Fatalf("InsertImportedFeedback failed: %v", err)
	}
	if f.ID == 0 {
		t.Fatal("expected assigned id")
	}

	exists, err = SourceRefExists(ctx, db, ref)
	if err != nil || !exists {
		t.Fatalf("expected tracked ref, got exists=%v err=%v", exists, err)
	}

	if _, err := InsertImportedFeedback(ctx, db, domain.Feedback{Source: "github", Content: "dup"}, ref); err == nil {
		t.Fatal("expected duplicate ref to fail")
	}
	if n, err := CountFeedback(ctx, db); err != nil || n != 1 {
		t.Fatalf("duplicate import must roll back, count=%d err=%v", n, err)
	}
}

func TestDeleteAllFeedbackReleasesSourceRefs(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	ref := "https://github.com/acme/web/issues/3"

	if _, err := InsertImportedFeedback(ctx, db, domain.Feedback{Source: "github", Content: "slow builds"}, ref); err != nil {
		t.Fatalf("InsertImportedFeedback failed: %v", err)
	}
	if err := DeleteAllFeedback(ctx, db); err != nil {
		t.Fatalf("DeleteAllFeedback failed: %v", err)
	}
	exists, err := SourceRefExists(ctx, db, ref)
	if err != nil || exists {
		t.Fatalf("expected ref released after delete, got exists=%v err=%v", exists, err)
	}
}
