package server

import (
	"time"

	"feedbackapi/internal/domain"
)

type createFeedbackRequest struct {
	Source  string `json:"source"`
	Content string `json:"content"`
	Type    string `json:"type"`
}

// feedbackItem renders unset optional fields as null.
type feedbackItem struct {
	ID        int64     `json:"id"`
	Source    string    `json:"source"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	Type      *string   `json:"type"`
	Theme     *string   `json:"theme"`
	Sentiment *string   `json:"sentiment"`
	Urgency   int       `json:"urgency"`
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func toFeedbackItem(f domain.Feedback) feedbackItem {
	return feedbackItem{
		ID:        f.ID,
		Source:    f.Source,
		Content:   f.Content,
		CreatedAt: f.CreatedAt,
		Type:      optional(f.Type),
		Theme:     optional(f.Theme),
		Sentiment: optional(f.Sentiment),
		Urgency:   f.Urgency,
	}
}

func toFeedbackItems(list []domain.Feedback) []feedbackItem {
	out := make([]feedbackItem, 0, len(list))
	for _, f := range list {
		out = append(out, toFeedbackItem(f))
	}
	return out
}
