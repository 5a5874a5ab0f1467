package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const searchPageSize = 100

type githubSearchResponse struct {
	TotalCount int               `json:"total_count"`
	Items      []githubIssueItem `json:"items"`
}

type githubIssueItem struct {
	Number        int           `json:"number"`
	Title         string        `json:"title"`
	Body          string        `json:"body"`
	HTMLURL       string        `json:"html_url"`
	State         string        `json:"state"`
	CreatedAt     string        `json:"created_at"`
	UpdatedAt     string        `json:"updated_at"`
	User          githubUser    `json:"user"`
	Labels        []githubLabel `json:"labels"`
	RepositoryURL string        `json:"repository_url"` // e.g. "https://api.github.com/repos/org/repo"
}

type githubUser struct {
	Login string `json:"login"`
}

type githubLabel struct {
	Name string `json:"name"`
}

// Issue is a GitHub issue carrying the feedback label.
type Issue struct {
	Number       int
	Title        string
	Body         string
	HTMLURL      string
	State        string
	Author       string
	Labels       []string
	RepoFullName string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// FetchFeedbackIssues returns issues labelled cfg.GitHubFeedbackLabel that
// were updated on or after since, across the configured org or repos.
func FetchFeedbackIssues(ctx context.Context, cfg Config, since time.Time) ([]Issue, error) {
	query := fmt.Sprintf("is:issue label:%q updated:>=%s %s",
		cfg.GitHubFeedbackLabel, since.UTC().Format("2006-01-02"), buildScopeQualifier(cfg))
	log.Printf("github fetch issues query=%s", query)

	items, err := searchIssues(ctx, cfg, query)
	if err != nil {
		return nil, fmt.Errorf("searching feedback issues: %w", err)
	}

	issues := make([]Issue, 0, len(items))
	for _, item := range items {
		issues = append(issues, convertIssueItem(item))
	}
	log.Printf("github fetch issues done total=%d", len(issues))
	return issues, nil
}

func searchIssues(ctx context.Context, cfg Config, query string) ([]githubIssueItem, error) {
	var all []githubIssueItem
	page := 1

	for {
		apiURL := fmt.Sprintf("%s/search/issues?q=%s&sort=updated&order=asc&per_page=%d&page=%d",
			strings.TrimRight(cfg.GitHubAPIURL, "/"), url.QueryEscape(query), searchPageSize, page)

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+cfg.GitHubToken)
		req.Header.Set("Accept", "application/vnd.github+json")

		resp, err := externalHTTPClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("executing request: %w", err)
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("reading response: %w", err)
		}

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("GitHub API returned %d: %s", resp.StatusCode, string(body))
		}

		var result githubSearchResponse
		if err := json.Unmarshal(body, &result); err != nil {
			return nil, fmt.Errorf("parsing response: %w", err)
		}

		all = append(all, result.Items...)
		log.Printf("github fetch page=%d items=%d", page, len(result.Items))

		if len(result.Items) < searchPageSize {
			break
		}
		page++
	}

	return all, nil
}

func convertIssueItem(item githubIssueItem) Issue {
	createdAt, _ := time.Parse(time.RFC3339, item.CreatedAt)
	updatedAt, _ := time.Parse(time.RFC3339, item.UpdatedAt)

	var labels []string
	for _, l := range item.Labels {
		labels = append(labels, l.Name)
	}

	return Issue{
		Number:       item.Number,
		Title:        strings.TrimSpace(item.Title),
		Body:         strings.TrimSpace(item.Body),
		HTMLURL:      item.HTMLURL,
		State:        item.State,
		Author:       item.User.Login,
		Labels:       labels,
		RepoFullName: extractRepoFullName(item.RepositoryURL),
		CreatedAt:    createdAt,
		UpdatedAt:    updatedAt,
	}
}

func extractRepoFullName(repoURL string) string {
	u, err := url.Parse(repoURL)
	if err != nil {
		return ""
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	// Expected: ["repos", "org", "repo-name"]
	if len(parts) >= 3 && parts[0] == "repos" {
		return parts[1] + "/" + parts[2]
	}
	return ""
}

func buildScopeQualifier(cfg Config) string {
	if len(cfg.GitHubRepos) > 0 {
		var parts []string
		for _, repo := range cfg.GitHubRepos {
			parts = append(parts, "repo:"+repo)
		}
		return strings.Join(parts, " ")
	}
	if cfg.GitHubOrg != "" {
		return "org:" + cfg.GitHubOrg
	}
	return ""
}

// HasLabel reports whether the issue carries name, ignoring case.
func (i Issue) HasLabel(name string) bool {
	for _, l := range i.Labels {
		if strings.EqualFold(l, name) {
			return true
		}
	}
	return false
}
