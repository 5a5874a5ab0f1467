package classify

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"feedbackapi/internal/domain"
	"feedbackapi/internal/integrations/llm"
)

const classifySystemPrompt = "You are a feedback analysis assistant. Always respond with valid JSON only, no additional text."

const (
	classifyMaxTokens   = 200
	classifyTemperature = 0.3
)

// Store persists an analysis result for a feedback record.
type Store interface {
	UpdateAnalysis(ctx context.Context, id int64, result domain.ClassificationResult) error
}

type StoreFunc func(ctx context.Context, id int64, result domain.ClassificationResult) error

func (f StoreFunc) UpdateAnalysis(ctx context.Context, id int64, result domain.ClassificationResult) error {
	return f(ctx, id, result)
}

// Classifier assigns theme, sentiment and urgency to feedback text. A nil
// generator sends every call through the keyword fallback.
type Classifier struct {
	gen   llm.Generator
	store Store
}

func NewClassifier(gen llm.Generator, store Store) *Classifier {
	return &Classifier{gen: gen, store: store}
}

// Classify analyzes content and writes the result for id. Only store errors
// are returned; generation problems fall back to keyword rules.
func (c *Classifier) Classify(ctx context.Context, content string, id int64) (domain.ClassificationResult, error) {
	result := c.Analyze(ctx, content)
	if err := c.store.UpdateAnalysis(ctx, id, result); err != nil {
		return domain.ClassificationResult{}, fmt.Errorf("saving analysis for feedback %d: %w", id, err)
	}
	return result, nil
}

// Analyze classifies content without persisting anything.
func (c *Classifier) Analyze(ctx context.Context, content string) domain.ClassificationResult {
	if c.gen == nil {
		return ClassifyFallback(content)
	}
	result, err := c.classifyWithModel(ctx, content)
	if err != nil {
		log.Printf("llm classify fallback: %v", err)
		return ClassifyFallback(content)
	}
	return result
}

func (c *Classifier) classifyWithModel(ctx context.Context, content string) (domain.ClassificationResult, error) {
	text, err := c.gen.Generate(ctx, llm.Request{
		System:      classifySystemPrompt,
		Prompt:      buildClassifyPrompt(content),
		MaxTokens:   classifyMaxTokens,
		Temperature: classifyTemperature,
		JSONOutput:  true,
	})
	if err != nil {
		return domain.ClassificationResult{}, err
	}
	obj, err := ExtractJSONObject(text)
	if err != nil {
		return domain.ClassificationResult{}, err
	}
	return normalizeClassification(gjson.Parse(obj)), nil
}

func normalizeClassification(obj gjson.Result) domain.ClassificationResult {
	theme, _ := domain.ParseTheme(obj.Get("theme").String())
	sentiment, _ := domain.ParseSentiment(obj.Get("sentiment").String())
	return domain.ClassificationResult{
		Theme:     theme,
		Sentiment: sentiment,
		Urgency:   domain.ClampUrgency(urgencyNumber(obj.Get("urgency"))),
	}
}

// urgencyNumber coerces the urgency field to a number. Strings are trimmed
// before parsing; anything unparsable is 0, which clamps to 1.
func urgencyNumber(v gjson.Result) float64 {
	if v.Type != gjson.String {
		return v.Float()
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64)
	if err != nil {
		return 0
	}
	return f
}

func buildClassifyPrompt(content string) string {
	themes := make([]string, len(domain.Themes))
	for i, t := range domain.Themes {
		themes[i] = fmt.Sprintf("%q", t)
	}
	themeList := strings.Join(themes[:len(themes)-1], ", ") + ", or " + themes[len(themes)-1]

	var b strings.Builder
	b.WriteString("Analyze the following feedback about Cloudflare products and services. Return a JSON object with:\n")
	fmt.Fprintf(&b, "1. \"theme\": One of these Cloudflare product categories: %s\n", themeList)
	b.WriteString("2. \"sentiment\": One of \"positive\", \"negative\", or \"neutral\"\n")
	b.WriteString("3. \"urgency\": A number from 1-5 where 1=low priority, 3=medium, 5=critical/urgent (use 5 for blocking issues, ASAP requests, or production outages)\n\n")
	b.WriteString("Feedback text:\n")
	fmt.Fprintf(&b, "\"%s\"\n\n", content)
	b.WriteString("Return ONLY valid JSON in this exact format:\n")
	b.WriteString(`{"theme": "workers", "sentiment": "positive", "urgency": 2}`)
	return b.String()
}
