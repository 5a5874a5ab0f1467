package domain

import (
	"math"
	"strings"
	"time"
)

type Theme string

const (
	ThemeWorkers   Theme = "workers"
	ThemePages     Theme = "pages"
	ThemeR2        Theme = "r2"
	ThemeD1        Theme = "d1"
	ThemeKV        Theme = "kv"
	ThemeAuth      Theme = "auth"
	ThemeBilling   Theme = "billing"
	ThemeDocs      Theme = "docs"
	ThemeDashboard Theme = "dashboard"
	ThemeAPI       Theme = "api"
	ThemeGeneral   Theme = "general"
)

// Themes lists the closed theme set in prompt order.
var Themes = []Theme{
	ThemeWorkers, ThemePages, ThemeR2, ThemeD1, ThemeKV, ThemeAuth,
	ThemeBilling, ThemeDocs, ThemeDashboard, ThemeAPI, ThemeGeneral,
}

type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
)

var Sentiments = []Sentiment{SentimentPositive, SentimentNegative, SentimentNeutral}

type Category string

const (
	CategoryImmediate     Category = "immediate"
	CategoryProduct       Category = "product"
	CategoryBug           Category = "bug"
	CategoryDocumentation Category = "documentation"
	CategoryCommunication Category = "communication"
	CategoryFollowUp      Category = "follow-up"
)

var Categories = []Category{
	CategoryImmediate, CategoryProduct, CategoryBug,
	CategoryDocumentation, CategoryCommunication, CategoryFollowUp,
}

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

var Priorities = []Priority{PriorityHigh, PriorityMedium, PriorityLow}

const (
	MinUrgency = 1
	MaxUrgency = 5
	// UrgentThreshold is the urgency at which an item counts as urgent in reports.
	UrgentThreshold = 4
)

type ClassificationResult struct {
	Theme     Theme     `json:"theme"`
	Sentiment Sentiment `json:"sentiment"`
	Urgency   int       `json:"urgency"`
}

type Suggestion struct {
	Action      string   `json:"action"`
	Description string   `json:"description"`
	Category    Category `json:"category"`
	Priority    Priority `json:"priority"`
	Theme       Theme    `json:"theme"`
	Reasoning   string   `json:"reasoning"`
	Confidence  float64  `json:"confidence"`
}

// Feedback is a stored feedback row. Type, Theme and Sentiment stay empty
// until set; Urgency is 0 until the item has been analyzed.
type Feedback struct {
	ID        int64     `json:"id"`
	Source    string    `json:"source"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	Type      string    `json:"type"`
	Theme     string    `json:"theme"`
	Sentiment string    `json:"sentiment"`
	Urgency   int       `json:"urgency"`
}

func normalizeToken(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func ParseTheme(s string) (Theme, bool) {
	s = normalizeToken(s)
	for _, t := range Themes {
		if string(t) == s {
			return t, true
		}
	}
	return ThemeGeneral, false
}

func ParseSentiment(s string) (Sentiment, bool) {
	s = normalizeToken(s)
	for _, v := range Sentiments {
		if string(v) == s {
			return v, true
		}
	}
	return SentimentNeutral, false
}

func ParseCategory(s string) (Category, bool) {
	s = normalizeToken(s)
	for _, c := range Categories {
		if string(c) == s {
			return c, true
		}
	}
	return CategoryFollowUp, false
}

func ParsePriority(s string) (Priority, bool) {
	s = normalizeToken(s)
	for _, p := range Priorities {
		if string(p) == s {
			return p, true
		}
	}
	return PriorityMedium, false
}

// ClampUrgency rounds v to the nearest integer and clamps it to [1,5].
// Zero and NaN count as "no value" and map to 1.
func ClampUrgency(v float64) int {
	if v == 0 || math.IsNaN(v) {
		return MinUrgency
	}
	r := math.Round(v)
	if r < MinUrgency {
		return MinUrgency
	}
	if r > MaxUrgency {
		return MaxUrgency
	}
	return int(r)
}

// ClampConfidence clamps v to [0,1]; zero and NaN fall back to def first.
func ClampConfidence(v, def float64) float64 {
	if v == 0 || math.IsNaN(v) {
		v = def
	}
	return math.Max(0, math.Min(1, v))
}

func (r ClassificationResult) Valid() bool {
	if _, ok := ParseTheme(string(r.Theme)); !ok {
		return false
	}
	if _, ok := ParseSentiment(string(r.Sentiment)); !ok {
		return false
	}
	return r.Urgency >= MinUrgency && r.Urgency <= MaxUrgency
}

// ThemeOrGeneral returns the stored theme, or general for unanalyzed rows.
func (f Feedback) ThemeOrGeneral() Theme {
	if t, ok := ParseTheme(f.Theme); ok {
		return t
	}
	return ThemeGeneral
}
