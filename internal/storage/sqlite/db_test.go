package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"feedbackapi/internal/domain"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "feedback-test.db")
	db, err := InitDB(dbPath)
	if err != nil {
		t.Fatalf("InitDB failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func insert(t *testing.T, db *sql.DB, f domain.Feedback) domain.Feedback {
	t.Helper()
	got, err := InsertFeedback(context.Background(), db, f)
	if err != nil {
		t.Fatalf("InsertFeedback failed: %v", err)
	}
	return got
}

func analyze(t *testing.T, db *sql.DB, id int64, theme domain.Theme, sentiment domain.Sentiment, urgency int) {
	t.Helper()
	r := domain.ClassificationResult{Theme: theme, Sentiment: sentiment, Urgency: urgency}
	if err := UpdateAnalysis(context.Background(), db, id, r); err != nil {
		t.Fatalf("UpdateAnalysis failed: %v", err)
	}
}

func TestInitDBIsIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "twice.db")
	for i := 0; i < 2; i++ {
		db, err := InitDB(dbPath)
		if err != nil {
			t.Fatalf("InitDB #%d failed: %v", i+1, err)
		}
		_ = db.Close()
	}
}

func TestInsertAndGetFeedback(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	created := time.Date(2026, 5, 1, 12, 30, 0, 0, time.UTC)

	f := insert(t, db, domain.Feedback{Source: "discord", Content: "KV is slow", CreatedAt: created})
	if f.ID == 0 {
		t.Fatal("expected id to be assigned")
	}

	got, err := GetFeedback(ctx, db, f.ID)
	if err != nil {
		t.Fatalf("GetFeedback failed: %v", err)
	}
	if got.Source != "discord" || got.Content != "KV is slow" || got.Urgency != 0 {
		t.Fatalf("unexpected row: %+v", got)
	}
	if got.Type != "" || got.Theme != "" || got.Sentiment != "" {
		t.Fatalf("expected empty optional fields, got %+v", got)
	}
	if !got.CreatedAt.Equal(created) {
		t.Fatalf("created_at mismatch: got %v want %v", got.CreatedAt, created)
	}

	if _, err := GetFeedback(ctx, db, 9999); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestListFeedbackOrderingAndThemeFilter(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	a := insert(t, db, domain.Feedback{Source: "email", Content: "a"})
	b := insert(t, db, domain.Feedback{Source: "email", Content: "b"})
	c := insert(t, db, domain.Feedback{Source: "email", Content: "c"})
	analyze(t, db, a.ID, domain.ThemeKV, domain.SentimentNeutral, 5)
	analyze(t, db, b.ID, domain.ThemeR2, domain.SentimentNeutral, 2)
	analyze(t, db, c.ID, domain.ThemeKV, domain.SentimentNeutral, 5)

	items, err := ListFeedback(ctx, db, 50, "")
	if err != nil {
		t.Fatalf("ListFeedback failed: %v", err)
	}
	wantOrder := []int64{c.ID, a.ID, b.ID}
	if len(items) != len(wantOrder) {
		t.Fatalf("expected %d items, got %d", len(wantOrder), len(items))
	}
	for i, id := range wantOrder {
		if items[i].ID != id {
			t.Fatalf("position %d: got id %d want %d", i, items[i].ID, id)
		}
	}

	kv, err := ListFeedback(ctx, db, 1, "kv")
	if err != nil {
		t.Fatalf("ListFeedback(kv) failed: %v", err)
	}
	if len(kv) != 1 || kv[0].ID != c.ID {
		t.Fatalf("unexpected kv items: %+v", kv)
	}
}

func TestListUnanalyzedAndUpdate(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	a := insert(t, db, domain.Feedback{Source: "manual", Content: "a"})
	b := insert(t, db, domain.Feedback{Source: "manual", Content: "b", Type: "bug"})
	analyze(t, db, a.ID, domain.ThemeDocs, domain.SentimentPositive, 1)

	items, err := ListUnanalyzed(ctx, db)
	if err != nil {
		t.Fatalf("ListUnanalyzed failed: %v", err)
	}
	if len(items) != 1 || items[0].ID != b.ID || items[0].Type != "bug" {
		t.Fatalf("unexpected unanalyzed items: %+v", items)
	}
}

func TestCountBySourceAndListBySource(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	insert(t, db, domain.Feedback{Source: "github", Content: "old", CreatedAt: base})
	newest := insert(t, db, domain.Feedback{Source: "github", Content: "new", CreatedAt: base.Add(time.Hour)})
	insert(t, db, domain.Feedback{Source: "email", Content: "mail", CreatedAt: base})

	counts, err := CountBySource(ctx, db)
	if err != nil {
		t.Fatalf("CountBySource failed: %v", err)
	}
	if counts["github"] != 2 || counts["email"] != 1 || counts["discord"] != 0 {
		t.Fatalf("unexpected counts: %v", counts)
	}

	items, err := ListFeedbackBySource(ctx, db, "github", 100)
	if err != nil {
		t.Fatalf("ListFeedbackBySource failed: %v", err)
	}
	if len(items) != 2 || items[0].ID != newest.ID {
		t.Fatalf("expected newest github item first, got %+v", items)
	}
}

func TestPrioritizedBugs(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	urgent := insert(t, db, domain.Feedback{Source: "email", Content: "urgent", CreatedAt: base})
	bug := insert(t, db, domain.Feedback{Source: "email", Content: "bug", Type: "bug", CreatedAt: base})
	negative := insert(t, db, domain.Feedback{Source: "email", Content: "neg", CreatedAt: base.Add(time.Hour)})
	calm := insert(t, db, domain.Feedback{Source: "email", Content: "calm", Type: "idea", CreatedAt: base})
	analyze(t, db, urgent.ID, domain.ThemeWorkers, domain.SentimentNeutral, 5)
	analyze(t, db, bug.ID, domain.ThemeD1, domain.SentimentNeutral, 2)
	analyze(t, db, negative.ID, domain.ThemeAuth, domain.SentimentNegative, 2)
	analyze(t, db, calm.ID, domain.ThemeDocs, domain.SentimentPositive, 1)

	items, err := PrioritizedBugs(ctx, db, 4, 10)
	if err != nil {
		t.Fatalf("PrioritizedBugs failed: %v", err)
	}
	wantOrder := []int64{urgent.ID, negative.ID, bug.ID}
	if len(items) != len(wantOrder) {
		t.Fatalf("expected %d items, got %+v", len(wantOrder), items)
	}
	for i, id := range wantOrder {
		if items[i].ID != id {
			t.Fatalf("position %d: got id %d want %d", i, items[i].ID, id)
		}
	}

	limited, err := PrioritizedBugs(ctx, db, 4, 1)
	if err != nil || len(limited) != 1 {
		t.Fatalf("expected limit to apply, got %d items err=%v", len(limited), err)
	}
}

func TestDeleteAllFeedback(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	insert(t, db, domain.Feedback{Source: "manual", Content: "x"})

	if err := DeleteAllFeedback(ctx, db); err != nil {
		t.Fatalf("DeleteAllFeedback failed: %v", err)
	}
	n, err := CountFeedback(ctx, db)
	if err != nil || n != 0 {
		t.Fatalf("expected empty table, got %d err=%v", n, err)
	}
}
