package fetch

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	"feedbackapi/internal/classify"
)

const (
	// ImportLookbackDays bounds the issue search to recently updated issues.
	ImportLookbackDays = 7
	sourceGitHub       = "github"
	maxImportedBody    = 2000
)

// ImportResult tracks separate counters for each outcome.
type ImportResult struct {
	TotalFetched   int      `json:"total_fetched"`
	Inserted       int      `json:"inserted"`
	AlreadyTracked int      `json:"already_tracked"`
	Errors         []string `json:"errors,omitempty"`
}

// ImportGitHubIssues fetches feedback-labelled issues updated within the
// lookback window, stores the ones not seen before as github feedback and
// classifies them. Classification failures are logged, not returned.
func ImportGitHubIssues(ctx context.Context, cfg Config, db *sql.DB, a classify.Analyzer, now time.Time) (ImportResult, error) {
	if !cfg.GitHubConfigured() {
		return ImportResult{}, fmt.Errorf("GitHub is not configured")
	}

	since := now.AddDate(0, 0, -ImportLookbackDays)
	log.Printf("github import since=%s", since.Format("2006-01-02"))

	var result ImportResult
	issues, err := fetchFeedbackIssues(ctx, cfg, since)
	if err != nil {
		return result, fmt.Errorf("fetching issues: %w", err)
	}
	result.TotalFetched = len(issues)

	for _, issue := range issues {
		exists, err := sourceRefExists(ctx, db, issue.HTMLURL)
		if err != nil {
			return result, fmt.Errorf("checking %s: %w", issue.HTMLURL, err)
		}
		if exists {
			result.AlreadyTracked++
			continue
		}

		f, err := insertImportedFeedback(ctx, db, issueFeedback(issue, now), issue.HTMLURL)
		if err != nil {
			log.Printf("github import insert error url=%s: %v", issue.HTMLURL, err)
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", issue.HTMLURL, err))
			continue
		}
		result.Inserted++
		if _, err := a.Classify(ctx, f.Content, f.ID); err != nil {
			log.Printf("github import analyze failed id=%d: %v", f.ID, err)
		}
	}

	log.Printf("github import done fetched=%d inserted=%d tracked=%d errors=%d",
		result.TotalFetched, result.Inserted, result.AlreadyTracked, len(result.Errors))
	return result, nil
}

func issueFeedback(issue Issue, now time.Time) Feedback {
	content := issue.Title
	if body := truncateRunes(issue.Body, maxImportedBody); body != "" {
		content += "\n\n" + body
	}
	createdAt := issue.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	return Feedback{
		Source:    sourceGitHub,
		Content:   content,
		Type:      issueType(issue),
		CreatedAt: createdAt,
	}
}

// issueType maps tracker labels onto feedback types; unlabelled issues stay
// untyped.
func issueType(issue Issue) string {
	switch {
	case issue.HasLabel("bug"):
		return "bug"
	case issue.HasLabel("enhancement"), issue.HasLabel("feature"), issue.HasLabel("idea"):
		return "idea"
	default:
		return ""
	}
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// FormatImportSummary returns a human-readable summary of an ImportResult.
func FormatImportSummary(result ImportResult) string {
	if result.Inserted == 0 {
		msg := fmt.Sprintf("Found %d feedback issues, none to add", result.TotalFetched)
		if result.AlreadyTracked > 0 {
			msg += fmt.Sprintf(" (%d already tracked)", result.AlreadyTracked)
		}
		msg += "."
		if len(result.Errors) > 0 {
			msg += fmt.Sprintf("\nWarnings:\n%s", strings.Join(result.Errors, "\n"))
		}
		return msg
	}

	summary := []string{fmt.Sprintf("%d new", result.Inserted)}
	if result.AlreadyTracked > 0 {
		summary = append(summary, fmt.Sprintf("%d already tracked", result.AlreadyTracked))
	}
	msg := fmt.Sprintf("Imported %d feedback issues: %s", result.TotalFetched, strings.Join(summary, ", "))
	if len(result.Errors) > 0 {
		msg += fmt.Sprintf("\nWarnings:\n%s", strings.Join(result.Errors, "\n"))
	}
	return msg
}
