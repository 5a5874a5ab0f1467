package classify

import (
	"context"
	"errors"
	"strings"
	"testing"

	"feedbackapi/internal/domain"
)

func TestClassifyNormalizesModelOutput(t *testing.T) {
	tests := []struct {
		name string
		text string
		want domain.ClassificationResult
	}{
		{
			name: "clean",
			text: `{"theme":"workers","sentiment":"negative","urgency":4}`,
			want: domain.ClassificationResult{Theme: domain.ThemeWorkers, Sentiment: domain.SentimentNegative, Urgency: 4},
		},
		{
			name: "upper case and prose",
			text: "Here is the analysis:\n{\"theme\":\"R2\",\"sentiment\":\"POSITIVE\",\"urgency\":2}",
			want: domain.ClassificationResult{Theme: domain.ThemeR2, Sentiment: domain.SentimentPositive, Urgency: 2},
		},
		{
			name: "out of set values",
			text: `{"theme":"storage","sentiment":"angry","urgency":9}`,
			want: domain.ClassificationResult{Theme: domain.ThemeGeneral, Sentiment: domain.SentimentNeutral, Urgency: 5},
		},
		{
			name: "string urgency rounds",
			text: `{"theme":"kv","sentiment":"neutral","urgency":"3.6"}`,
			want: domain.ClassificationResult{Theme: domain.ThemeKV, Sentiment: domain.SentimentNeutral, Urgency: 4},
		},
		{
			name: "padded string urgency",
			text: `{"theme":"kv","sentiment":"neutral","urgency":" 4 "}`,
			want: domain.ClassificationResult{Theme: domain.ThemeKV, Sentiment: domain.SentimentNeutral, Urgency: 4},
		},
		{
			name: "blank string urgency",
			text: `{"theme":"kv","sentiment":"neutral","urgency":"  "}`,
			want: domain.ClassificationResult{Theme: domain.ThemeKV, Sentiment: domain.SentimentNeutral, Urgency: 1},
		},
		{
			name: "mixed case with out of range urgency",
			text: `{"theme":"WORKERS","sentiment":"Positive","urgency":7}`,
			want: domain.ClassificationResult{Theme: domain.ThemeWorkers, Sentiment: domain.SentimentPositive, Urgency: 5},
		},
		{
			name: "missing urgency",
			text: `{"theme":"docs","sentiment":"neutral"}`,
			want: domain.ClassificationResult{Theme: domain.ThemeDocs, Sentiment: domain.SentimentNeutral, Urgency: 1},
		},
		{
			name: "non numeric urgency",
			text: `{"theme":"api","sentiment":"neutral","urgency":"high"}`,
			want: domain.ClassificationResult{Theme: domain.ThemeAPI, Sentiment: domain.SentimentNeutral, Urgency: 1},
		},
	}
	for _, tt := range tests {
		gen := &stubGenerator{text: tt.text}
		store := newRecordingStore()
		c := NewClassifier(gen, store)

		got, err := c.Classify(context.Background(), "some feedback", 7)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tt.name, err)
		}
		if got != tt.want {
			t.Fatalf("%s: got %+v want %+v", tt.name, got, tt.want)
		}
		if len(store.writes[7]) != 1 || store.writes[7][0] != tt.want {
			t.Fatalf("%s: expected one write of the returned result, got %+v", tt.name, store.writes[7])
		}
	}
}

func TestClassifyFallsBackOnGatewayFailure(t *testing.T) {
	content := "Workers deploys are down, we are blocked"
	want := ClassifyFallback(content)

	cases := map[string]*stubGenerator{
		"transport error": {err: errGatewayDown},
		"no json":         {text: "I cannot help with that."},
		"malformed json":  {text: `{theme: workers}`},
	}
	for name, gen := range cases {
		store := newRecordingStore()
		got, err := NewClassifier(gen, store).Classify(context.Background(), content, 3)
		if err != nil {
			t.Fatalf("%s: gateway failure must not surface, got %v", name, err)
		}
		if got != want {
			t.Fatalf("%s: got %+v want fallback %+v", name, got, want)
		}
		if store.totalWrites() != 1 {
			t.Fatalf("%s: expected exactly one write, got %d", name, store.totalWrites())
		}
	}
}

func TestClassifyWithoutGeneratorUsesFallback(t *testing.T) {
	store := newRecordingStore()
	got, err := NewClassifier(nil, store).Classify(context.Background(), "billing is confusing", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := domain.ClassificationResult{Theme: domain.ThemeBilling, Sentiment: domain.SentimentNeutral, Urgency: 3}
	if got != want {
		t.Fatalf("got %+v want %+v", got, want)
	}
	if store.totalWrites() != 1 {
		t.Fatalf("expected one write, got %d", store.totalWrites())
	}
}

func TestClassifyPropagatesStoreError(t *testing.T) {
	storeErr := errors.New("database is locked")
	store := newRecordingStore()
	store.err = storeErr

	for _, gen := range []*stubGenerator{
		{text: `{"theme":"kv","sentiment":"neutral","urgency":2}`},
		{err: errGatewayDown},
	} {
		_, err := NewClassifier(gen, store).Classify(context.Background(), "kv", 9)
		if !errors.Is(err, storeErr) {
			t.Fatalf("expected store error to propagate, got %v", err)
		}
	}
}

func TestClassifyIsIdempotentForSameModelOutput(t *testing.T) {
	gen := &stubGenerator{text: `{"theme":"pages","sentiment":"positive","urgency":1}`}
	store := newRecordingStore()
	c := NewClassifier(gen, store)

	first, _ := c.Classify(context.Background(), "pages rocks", 5)
	second, _ := c.Classify(context.Background(), "pages rocks", 5)
	if first != second {
		t.Fatalf("expected same result, got %+v and %+v", first, second)
	}
	if len(store.writes[5]) != 2 {
		t.Fatalf("expected two writes, got %d", len(store.writes[5]))
	}
}

func TestClassifyIsIdempotentOnFallback(t *testing.T) {
	tests := []struct {
		name string
		gen  *stubGenerator
	}{
		{"gateway error", &stubGenerator{err: errGatewayDown}},
		{"unparsable output", &stubGenerator{text: "sorry, no json today"}},
	}
	for _, tt := range tests {
		store := newRecordingStore()
		c := NewClassifier(tt.gen, store)
		content := "the R2 upload is broken and urgent"

		first, err := c.Classify(context.Background(), content, 11)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tt.name, err)
		}
		second, err := c.Classify(context.Background(), content, 11)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tt.name, err)
		}
		if first != second {
			t.Fatalf("%s: expected identical results, got %+v and %+v", tt.name, first, second)
		}
		want := domain.ClassificationResult{Theme: domain.ThemeR2, Sentiment: domain.SentimentNegative, Urgency: 5}
		if first != want {
			t.Fatalf("%s: got %+v want %+v", tt.name, first, want)
		}
		if len(store.writes[11]) != 2 || store.writes[11][0] != store.writes[11][1] {
			t.Fatalf("%s: expected two identical writes, got %+v", tt.name, store.writes[11])
		}
	}
}

func TestClassifyRequestShape(t *testing.T) {
	gen := &stubGenerator{text: `{"theme":"kv","sentiment":"neutral","urgency":1}`}
	c := NewClassifier(gen, newRecordingStore())
	content := `KV reads return "stale" values`

	if _, err := c.Classify(context.Background(), content, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(gen.requests) != 1 {
		t.Fatalf("expected one generator call, got %d", len(gen.requests))
	}
	req := gen.requests[0]
	if req.MaxTokens != 200 || req.Temperature != 0.3 || !req.JSONOutput {
		t.Fatalf("unexpected request params: %+v", req)
	}
	if !strings.Contains(req.System, "JSON only") {
		t.Fatalf("system prompt should demand JSON only: %q", req.System)
	}
	if !strings.Contains(req.Prompt, content) {
		t.Fatal("prompt should embed content verbatim")
	}
	for _, theme := range domain.Themes {
		if !strings.Contains(req.Prompt, `"`+string(theme)+`"`) {
			t.Fatalf("prompt missing theme %q", theme)
		}
	}
	if !strings.Contains(req.Prompt, "1-5") {
		t.Fatal("prompt should describe the urgency range")
	}
}

func TestAnalyzeDoesNotWrite(t *testing.T) {
	store := newRecordingStore()
	c := NewClassifier(&stubGenerator{err: errGatewayDown}, store)
	got := c.Analyze(context.Background(), "docs tutorial is great")
	if got.Theme != domain.ThemeDocs || got.Sentiment != domain.SentimentPositive {
		t.Fatalf("unexpected result: %+v", got)
	}
	if store.totalWrites() != 0 {
		t.Fatalf("Analyze must not persist, got %d writes", store.totalWrites())
	}
}
