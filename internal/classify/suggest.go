package classify

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/tidwall/gjson"

	"feedbackapi/internal/domain"
	"feedbackapi/internal/integrations/llm"
)

const suggestSystemPrompt = "You are a product manager assistant. Always respond with valid JSON only, no additional text."

const (
	suggestMaxTokens   = 300
	suggestTemperature = 0.5
	maxSuggestions     = 5
	defaultReasoning   = "Based on feedback analysis"
	defaultConfidence  = 0.75
	feedbackTypeBug    = "bug"
	feedbackTypeIdea   = "idea"
	unknownPromptValue = "unknown"
)

var errNoSuggestions = errors.New("model returned no usable suggestions")

// Suggester proposes next actions for a feedback record. It always returns
// between one and five suggestions.
type Suggester struct {
	gen llm.Generator
}

func NewSuggester(gen llm.Generator) *Suggester {
	return &Suggester{gen: gen}
}

func (s *Suggester) Suggest(ctx context.Context, f domain.Feedback) []domain.Suggestion {
	if s.gen == nil {
		return FallbackSuggestions(f)
	}
	out, err := s.suggestWithModel(ctx, f)
	if err != nil {
		log.Printf("llm suggest fallback id=%d: %v", f.ID, err)
		return FallbackSuggestions(f)
	}
	return out
}

func (s *Suggester) suggestWithModel(ctx context.Context, f domain.Feedback) ([]domain.Suggestion, error) {
	text, err := s.gen.Generate(ctx, llm.Request{
		System:      suggestSystemPrompt,
		Prompt:      buildSuggestPrompt(f),
		MaxTokens:   suggestMaxTokens,
		Temperature: suggestTemperature,
		JSONOutput:  true,
	})
	if err != nil {
		return nil, err
	}
	obj, err := ExtractJSONObject(text)
	if err != nil {
		return nil, err
	}
	out := parseSuggestions(gjson.Parse(obj))
	if len(out) == 0 {
		return nil, errNoSuggestions
	}
	return out, nil
}

func parseSuggestions(obj gjson.Result) []domain.Suggestion {
	list := obj.Get("suggestions")
	if !list.IsArray() {
		return nil
	}
	var out []domain.Suggestion
	for _, entry := range list.Array() {
		action := strings.TrimSpace(entry.Get("action").String())
		description := strings.TrimSpace(entry.Get("description").String())
		if action == "" || description == "" {
			continue
		}
		category, _ := domain.ParseCategory(entry.Get("category").String())
		priority, _ := domain.ParsePriority(entry.Get("priority").String())
		theme, _ := domain.ParseTheme(entry.Get("theme").String())
		reasoning := strings.TrimSpace(entry.Get("reasoning").String())
		if reasoning == "" {
			reasoning = defaultReasoning
		}
		out = append(out, domain.Suggestion{
			Action:      action,
			Description: description,
			Category:    category,
			Priority:    priority,
			Theme:       theme,
			Reasoning:   reasoning,
			Confidence:  domain.ClampConfidence(entry.Get("confidence").Float(), defaultConfidence),
		})
		if len(out) == maxSuggestions {
			break
		}
	}
	return out
}

// FallbackSuggestions applies the fixed rule list to f. The closing
// "Review with team" entry is always present.
func FallbackSuggestions(f domain.Feedback) []domain.Suggestion {
	theme := f.ThemeOrGeneral()
	urgent := f.Urgency >= domain.UrgentThreshold
	var out []domain.Suggestion

	if urgent {
		out = append(out, domain.Suggestion{
			Action:      "Prioritize immediately",
			Description: "High urgency: Prioritize this feedback and assign to the appropriate team immediately.",
			Category:    domain.CategoryImmediate,
			Priority:    domain.PriorityHigh,
			Theme:       theme,
			Reasoning:   fmt.Sprintf("Detected: High urgency (%d/5) + %s theme", f.Urgency, theme),
			Confidence:  0.9,
		})
	}
	if f.Type == feedbackTypeBug {
		priority := domain.PriorityMedium
		if urgent {
			priority = domain.PriorityHigh
		}
		out = append(out, domain.Suggestion{
			Action:      "Create bug ticket",
			Description: "Bug report: Create a ticket in the bug tracking system and assign to engineering.",
			Category:    domain.CategoryBug,
			Priority:    priority,
			Theme:       theme,
			Reasoning:   fmt.Sprintf("Detected: Bug report for %s product", theme),
			Confidence:  0.85,
		})
	}
	if f.Type == feedbackTypeIdea {
		out = append(out, domain.Suggestion{
			Action:      "Add to roadmap",
			Description: "Feature idea: Add to product roadmap for consideration in next planning cycle.",
			Category:    domain.CategoryProduct,
			Priority:    domain.PriorityMedium,
			Theme:       theme,
			Reasoning:   fmt.Sprintf("Detected: Feature idea for %s product", theme),
			Confidence:  0.8,
		})
	}
	if f.Sentiment == string(domain.SentimentNegative) {
		out = append(out, domain.Suggestion{
			Action:      "Reach out to user",
			Description: "Negative sentiment: Consider reaching out to the user to understand their concerns better.",
			Category:    domain.CategoryCommunication,
			Priority:    domain.PriorityMedium,
			Theme:       theme,
			Reasoning:   "Detected: Negative sentiment requiring user outreach",
			Confidence:  0.75,
		})
	}
	out = append(out, domain.Suggestion{
		Action:      "Review with team",
		Description: "Review the feedback with the product team and determine next steps.",
		Category:    domain.CategoryFollowUp,
		Priority:    domain.PriorityLow,
		Theme:       theme,
		Reasoning:   "Standard follow-up action",
		Confidence:  0.7,
	})

	if len(out) > maxSuggestions {
		out = out[:maxSuggestions]
	}
	return out
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return unknownPromptValue
	}
	return s
}

func buildSuggestPrompt(f domain.Feedback) string {
	var b strings.Builder
	b.WriteString("You are a product manager assistant for Cloudflare. Based on the following feedback, provide actionable suggestions on what to do next.\n\n")
	b.WriteString("Feedback Details:\n")
	fmt.Fprintf(&b, "- Content: \"%s\"\n", f.Content)
	fmt.Fprintf(&b, "- Type: %s\n", orUnknown(f.Type))
	fmt.Fprintf(&b, "- Theme: %s\n", orUnknown(f.Theme))
	fmt.Fprintf(&b, "- Sentiment: %s\n", orUnknown(f.Sentiment))
	fmt.Fprintf(&b, "- Urgency: %d/5\n", f.Urgency)
	fmt.Fprintf(&b, "- Source: %s\n\n", f.Source)
	b.WriteString(`Provide 3-5 specific, actionable suggestions as a JSON array of objects. Each suggestion object must have:
- "action": A short action verb phrase (e.g., "Escalate to support", "Add to roadmap", "Fix bug", "Update documentation")
- "description": A detailed description of what to do (max 60 words)
- "category": One of "immediate", "product", "bug", "documentation", "communication", "follow-up"
- "priority": "high", "medium", or "low"
- "theme": The relevant Cloudflare product theme (e.g., "workers", "r2", "d1", "general")
- "reasoning": A brief explanation of why this suggestion was made (max 30 words, e.g., "Detected: R2 upload issues + delayed support response")
- "confidence": A confidence score between 0.0 and 1.0 (e.g., 0.82)

Return ONLY valid JSON in this exact format:
{
  "suggestions": [
    {
      "action": "Escalate to support",
      "description": "Immediately escalate the ticket to a senior support engineer to ensure a timely response.",
      "category": "immediate",
      "priority": "high",
      "theme": "r2",
      "reasoning": "Detected: R2 upload issues + delayed support response",
      "confidence": 0.85
    }
  ]
}`)
	return b.String()
}
