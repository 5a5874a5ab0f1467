package classify

import (
	"strings"

	"feedbackapi/internal/domain"
)

type themeRule struct {
	theme    domain.Theme
	keywords []string
}

// Checked in order; first match wins. Matching is plain substring, so "ui"
// also hits "build".
var themeRules = []themeRule{
	{domain.ThemeWorkers, []string{"worker", "workers"}},
	{domain.ThemePages, []string{"pages", "cloudflare pages"}},
	{domain.ThemeR2, []string{"r2", "object storage", "s3"}},
	{domain.ThemeD1, []string{"d1", "database", "sqlite"}},
	{domain.ThemeKV, []string{"kv", "key-value"}},
	{domain.ThemeAuth, []string{"auth", "login", "authentication"}},
	{domain.ThemeBilling, []string{"billing", "price", "payment", "cost"}},
	{domain.ThemeDocs, []string{"docs", "documentation", "tutorial"}},
	{domain.ThemeDashboard, []string{"ui", "dashboard", "interface"}},
	{domain.ThemeAPI, []string{"api", "endpoint"}},
}

var (
	positiveWords = []string{"love", "great", "amazing", "fantastic"}
	negativeWords = []string{"hate", "broken", "bug", "terrible", "failing"}
	criticalWords = []string{"blocked", "urgent", "asap", "down"}
	moderateWords = []string{"annoying", "slow", "confusing"}
)

// ClassifyFallback derives a classification from keywords alone.
func ClassifyFallback(content string) domain.ClassificationResult {
	text := strings.ToLower(content)

	sentiment := domain.SentimentNeutral
	switch {
	case containsAny(text, positiveWords):
		sentiment = domain.SentimentPositive
	case containsAny(text, negativeWords):
		sentiment = domain.SentimentNegative
	}

	theme := domain.ThemeGeneral
	for _, rule := range themeRules {
		if containsAny(text, rule.keywords) {
			theme = rule.theme
			break
		}
	}

	urgency := 1
	switch {
	case containsAny(text, criticalWords):
		urgency = 5
	case containsAny(text, moderateWords):
		urgency = 3
	}

	return domain.ClassificationResult{Theme: theme, Sentiment: sentiment, Urgency: urgency}
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}
