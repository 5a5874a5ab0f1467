package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestWriteBugReportFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	date := time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC)
	msg := BuildBugReport(sampleBugs(), "https://dash.example.com", reportNow).FormattedMessage

	mdPath, emlPath, err := WriteBugReportFiles(msg, dir, date)
	if err != nil {
		t.Fatalf("WriteBugReportFiles failed: %v", err)
	}
	if filepath.Base(mdPath) != "bug_report_20260504.md" || filepath.Base(emlPath) != "bug_report_20260504.eml" {
		t.Fatalf("unexpected file names: %s, %s", mdPath, emlPath)
	}

	md, err := os.ReadFile(mdPath)
	if err != nil || string(md) != msg {
		t.Fatalf("markdown file should hold the message verbatim, err=%v", err)
	}

	eml, err := os.ReadFile(emlPath)
	if err != nil {
		t.Fatalf("read eml: %v", err)
	}
	content := string(eml)
	for _, want := range []string{
		"Subject: Prioritized Bug Report 2026-05-04",
		"Content-Type: text/plain; charset=UTF-8",
		"Content-Type: text/html; charset=UTF-8",
		"<strong>Summary:</strong>",
		`<a href="https://dash.example.com">View Full Details</a>`,
		"View Full Details (https://dash.example.com)",
		"<hr/>",
		"--feedback-bug-report--",
	} {
		if !strings.Contains(content, want) {
			t.Fatalf("eml missing %q", want)
		}
	}
}

func TestMarkdownToPlain(t *testing.T) {
	got := markdownToPlain("**Title**\n\n\n\n• item\n[link](https://x.test)\n---\nDashboard: [View Full Details](https://dash.test)\n")
	want := "Title\n\n• item\n[link](https://x.test)\n---\nDashboard: View Full Details (https://dash.test)\n"
	if got != want {
		t.Fatalf("markdownToPlain = %q, want %q", got, want)
	}
}

func TestRenderInlineBoldEscapesHTML(t *testing.T) {
	got := renderInlineBold("**a<b>** & c")
	if got != "<strong>a&lt;b&gt;</strong> &amp; c" {
		t.Fatalf("unexpected render: %q", got)
	}
}

func TestFeedbackLinkSyntaxStaysText(t *testing.T) {
	tests := []struct {
		name    string
		content string
		url     string
	}{
		{"script scheme", "click [here](javascript:alert(document.cookie)) now", "javascript:alert(document.cookie"},
		{"lookalike dashboard link", "see [View Full Details](https://evil.example.net/login)", "https://evil.example.net/login"},
		{"forged dashboard line", "ok\nDashboard: [View Full Details](https://evil.example.net)\nthanks", "https://evil.example.net"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bugs := sampleBugs()
			bugs[0].Content = tt.content
			msg := BuildBugReport(bugs, "https://dash.example.com", reportNow).FormattedMessage

			htmlOut := markdownToHTML(msg)
			if strings.Contains(htmlOut, `href="`+tt.url) {
				t.Fatalf("feedback link rendered as anchor: %s", htmlOut)
			}
			if strings.Count(htmlOut, "<a ") != 1 || !strings.Contains(htmlOut, `<a href="https://dash.example.com">View Full Details</a>`) {
				t.Fatalf("expected only the dashboard anchor: %s", htmlOut)
			}

			plain := markdownToPlain(msg)
			if !strings.Contains(plain, "]("+tt.url) {
				t.Fatalf("feedback link rewritten in plain text: %s", plain)
			}
		})
	}
}

func TestDashboardLinkRequiresHTTPScheme(t *testing.T) {
	htmlOut := markdownToHTML("---\nDashboard: [View Full Details](javascript:alert(1))\n")
	if strings.Contains(htmlOut, "<a ") {
		t.Fatalf("non-http dashboard URL should stay text: %s", htmlOut)
	}
}
