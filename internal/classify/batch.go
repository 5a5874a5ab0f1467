package classify

import (
	"context"
	"fmt"
	"log"

	"feedbackapi/internal/domain"
)

// Analyzer is the part of Classifier that AnalyzeAll needs.
type Analyzer interface {
	Classify(ctx context.Context, content string, id int64) (domain.ClassificationResult, error)
}

type BatchResult struct {
	Total    int      `json:"total"`
	Analyzed int      `json:"analyzed"`
	Failed   int      `json:"failed"`
	Errors   []string `json:"errors"`
}

// AnalyzeAll classifies items one at a time. A cancelled context stops the
// loop and counts the remaining items as failed.
func AnalyzeAll(ctx context.Context, a Analyzer, items []domain.Feedback) BatchResult {
	res := BatchResult{Total: len(items), Errors: []string{}}
	for _, item := range items {
		err := ctx.Err()
		if err == nil {
			_, err = a.Classify(ctx, item.Content, item.ID)
		}
		if err != nil {
			res.Failed++
			res.Errors = append(res.Errors, fmt.Sprintf("Failed to analyze feedback #%d: %v", item.ID, err))
			continue
		}
		res.Analyzed++
	}
	log.Printf("analyze-all total=%d analyzed=%d failed=%d", res.Total, res.Analyzed, res.Failed)
	return res
}

func (r BatchResult) Message() string {
	return fmt.Sprintf("Analyzed %d out of %d unanalyzed feedback items.", r.Analyzed, r.Total)
}
