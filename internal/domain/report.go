package domain

import "time"

type ThemeCount struct {
	Theme       string `json:"theme"`
	Count       int    `json:"count"`
	UrgentCount int    `json:"urgent_count"`
}

type TypeCount struct {
	Type          string `json:"type"`
	Count         int    `json:"count"`
	UrgentCount   int    `json:"urgent_count"`
	NegativeCount int    `json:"negative_count"`
}

// Summary aggregates the whole feedback table. Rows without a sentiment,
// theme or type are left out of the matching breakdown.
type Summary struct {
	Total     int            `json:"total"`
	Sentiment map[string]int `json:"sentiment"`
	Themes    []ThemeCount   `json:"theme"`
	Types     []TypeCount    `json:"type"`
	Urgent    int            `json:"urgent"`
}

type DigestTheme struct {
	Theme string `json:"theme"`
	Count int    `json:"count"`
}

type DigestItem struct {
	ID      int64  `json:"id"`
	Content string `json:"content"`
	Theme   string `json:"theme"`
	Urgency int    `json:"urgency"`
}

// Digest is the stored daily snapshot, keyed by Date (YYYY-MM-DD).
type Digest struct {
	Date          string        `json:"date"`
	TopThemes     []DigestTheme `json:"top_themes"`
	UrgentItems   []DigestItem  `json:"urgent_items"`
	TotalFeedback int           `json:"total_feedback"`
	CreatedAt     time.Time     `json:"created_at"`
}
