package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
)

const workersAIBaseURL = "https://api.cloudflare.com/client/v4"

// WorkersAIGenerator calls the Workers AI REST endpoint
// POST /accounts/{account_id}/ai/run/{model}.
type WorkersAIGenerator struct {
	baseURL   string
	accountID string
	apiToken  string
	model     string
	client    *http.Client
}

func NewWorkersAIGenerator(accountID, apiToken, model string) *WorkersAIGenerator {
	return &WorkersAIGenerator{
		baseURL:   workersAIBaseURL,
		accountID: accountID,
		apiToken:  apiToken,
		model:     model,
		client:    externalHTTPClient,
	}
}

type workersAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type workersAIRequest struct {
	Messages       []workersAIMessage `json:"messages"`
	MaxTokens      int                `json:"max_tokens"`
	Temperature    float64            `json:"temperature"`
	ResponseFormat *workersAIFormat   `json:"response_format,omitempty"`
}

type workersAIFormat struct {
	Type string `json:"type"`
}

type workersAIResponse struct {
	Success bool `json:"success"`
	Result  struct {
		// Response is a string in text mode; JSON mode may return the
		// object itself.
		Response json.RawMessage `json:"response"`
		Usage    struct {
			PromptTokens     int64 `json:"prompt_tokens"`
			CompletionTokens int64 `json:"completion_tokens"`
		} `json:"usage"`
	} `json:"result"`
	Errors []struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
}

func (g *WorkersAIGenerator) endpoint() string {
	return fmt.Sprintf("%s/accounts/%s/ai/run/%s",
		strings.TrimRight(g.baseURL, "/"),
		url.PathEscape(g.accountID),
		g.model)
}

func (g *WorkersAIGenerator) Generate(ctx context.Context, req Request) (string, error) {
	reqBody := workersAIRequest{
		Messages: []workersAIMessage{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.Prompt},
		},
		MaxTokens:   maxTokensOrDefault(req.MaxTokens),
		Temperature: req.Temperature,
	}
	if req.JSONOutput {
		reqBody.ResponseFormat = &workersAIFormat{Type: "json_object"}
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint(), bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+g.apiToken)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		log.Printf("llm workersai error: %v", err)
		return "", fmt.Errorf("Workers AI error: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	var parsed workersAIResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("Workers AI status %d: %s", resp.StatusCode, truncate(string(respBody), 200))
		}
		return "", fmt.Errorf("parsing Workers AI response: %w", err)
	}
	if resp.StatusCode != http.StatusOK || !parsed.Success {
		msg := fmt.Sprintf("status %d", resp.StatusCode)
		if len(parsed.Errors) > 0 {
			msg = fmt.Sprintf("%s: %s", msg, parsed.Errors[0].Message)
		}
		log.Printf("llm workersai api error: %s", msg)
		return "", fmt.Errorf("Workers AI error: %s", msg)
	}

	text, err := responseText(parsed.Result.Response)
	if err != nil {
		return "", err
	}
	log.Printf("llm workersai response size=%d tokens_in=%d tokens_out=%d",
		len(text), parsed.Result.Usage.PromptTokens, parsed.Result.Usage.CompletionTokens)
	return text, nil
}

func responseText(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", fmt.Errorf("no response in Workers AI result")
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", fmt.Errorf("parsing Workers AI response text: %w", err)
		}
		return s, nil
	}
	return string(raw), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
