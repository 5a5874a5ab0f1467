package report

import (
	"strings"
	"testing"
	"time"
)

var reportNow = time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC)

func sampleBugs() []Feedback {
	created := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	return []Feedback{
		{ID: 1, Source: "github", Content: "Workers deploys fail", Type: "bug", Theme: "workers", Sentiment: "negative", Urgency: 5, CreatedAt: created},
		{ID: 2, Source: "email", Content: "R2 is down", Theme: "r2", Sentiment: "neutral", Urgency: 5, CreatedAt: created},
		{ID: 3, Source: "discord", Content: "Workers logs missing", Type: "bug", Theme: "workers", Sentiment: "neutral", Urgency: 4, CreatedAt: created},
		{ID: 4, Source: "discord", Content: strings.Repeat("x", 200), Sentiment: "negative", Urgency: 2, CreatedAt: created},
		{ID: 5, Source: "email", Content: "Workers CPU limits confusing", Theme: "workers", Sentiment: "negative", Urgency: 3, CreatedAt: created},
	}
}

func TestBuildBugReportSummaryAndGroups(t *testing.T) {
	r := BuildBugReport(sampleBugs(), "https://dash.example.com", reportNow)

	if r.Total() != 5 || r.Empty() {
		t.Fatalf("unexpected total: %d", r.Total())
	}
	want := BugSummary{Critical: 2, High: 1, Bugs: 2, Negative: 3}
	if r.Summary != want {
		t.Fatalf("summary = %+v, want %+v", r.Summary, want)
	}

	if len(r.Groups) != 3 {
		t.Fatalf("expected 3 theme groups, got %+v", r.Groups)
	}
	if r.Groups[0].Theme != "workers" || len(r.Groups[0].Items) != 3 {
		t.Fatalf("expected workers group first, got %+v", r.Groups[0])
	}
	if r.Groups[1].Theme != "r2" || r.Groups[2].Theme != "general" {
		t.Fatalf("expected ties to keep first-seen order, got %q then %q", r.Groups[1].Theme, r.Groups[2].Theme)
	}
	workers := r.Groups[0].Items
	if workers[0].Urgency != 5 || workers[1].Urgency != 4 || workers[2].Urgency != 3 {
		t.Fatalf("workers items not ordered by urgency: %+v", workers)
	}
	if len(r.ByTheme()["general"]) != 1 {
		t.Fatalf("unanalyzed theme should group under general: %v", r.ByTheme())
	}
}

func TestBuildBugReportMessage(t *testing.T) {
	msg := BuildBugReport(sampleBugs(), "https://dash.example.com", reportNow).FormattedMessage

	for _, want := range []string{
		"🚨 **Prioritized Bug Report for Engineering Team**",
		"• 2 Critical issues (Urgency 5/5)",
		"• 1 High priority issues (Urgency 4/5)",
		"• 2 Confirmed bugs",
		"• Total items requiring attention: 5",
		"**WORKERS** (3 items, 1 critical):",
		"**GENERAL** (1 items, 0 critical):",
		"🔴 CRITICAL 🐛 BUG 😞 Negative",
		"🟠 HIGH 🐛 BUG",
		"🟡 MEDIUM 😞 Negative",
		"ID: #2 | Source: email",
		`"` + strings.Repeat("x", 150) + `..."`,
		"Created: May 1, 2026",
		"**Action Items:**",
		"**Next Steps:**",
		"Generated: May 4, 2026 09:30 UTC",
		"Dashboard: [View Full Details](https://dash.example.com)",
	} {
		if !strings.Contains(msg, want) {
			t.Fatalf("message missing %q:\n%s", want, msg)
		}
	}
	if strings.Index(msg, "**WORKERS**") > strings.Index(msg, "**R2**") {
		t.Fatal("themes should be ordered by item count")
	}
}

func TestBuildBugReportEmpty(t *testing.T) {
	r := BuildBugReport(nil, "", reportNow)
	if !r.Empty() || r.FormattedMessage != NoBugsFormattedMessage {
		t.Fatalf("unexpected empty report: %+v", r)
	}
	if r.Bugs == nil {
		t.Fatal("empty report should carry a non-nil bug list")
	}
}

func TestBuildBugReportDefaultsDashboardURL(t *testing.T) {
	msg := BuildBugReport(sampleBugs()[:1], "", reportNow).FormattedMessage
	if !strings.Contains(msg, "(https://your-dashboard-url.com)") {
		t.Fatalf("expected default dashboard url in message:\n%s", msg)
	}
}

func TestIntegrationsCatalog(t *testing.T) {
	list, total := Integrations(map[string]int{"email": 3, "github": 2, "manual": 9})
	if len(list) != 5 {
		t.Fatalf("expected 5 integrations, got %d", len(list))
	}
	if total != 5 {
		t.Fatalf("sources outside the catalog must not count, total=%d", total)
	}
	if list[0].Type != "email" || list[0].Count != 3 || list[0].Status != "connected" {
		t.Fatalf("unexpected email entry: %+v", list[0])
	}
	if list[2].Type != "discord" || list[2].Count != 0 {
		t.Fatalf("unexpected discord entry: %+v", list[2])
	}
	if integrationCatalog[0].Count != 0 {
		t.Fatal("catalog template must not be mutated")
	}
}
