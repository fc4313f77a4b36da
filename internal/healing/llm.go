package healing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// maxSnapshotBytes caps how much page HTML is sent to the model.
const maxSnapshotBytes = 32 * 1024

// LLMResolver asks an OpenAI-compatible chat completions endpoint for a
// replacement locator.
type LLMResolver struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
}

// NewLLMResolver creates a resolver against an OpenAI-compatible API.
func NewLLMResolver(baseURL, apiKey, model string) *LLMResolver {
	return &LLMResolver{
		httpClient: &http.Client{Timeout: 2 * time.Minute},
		baseURL:    baseURL,
		apiKey:     apiKey,
		model:      model,
	}
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string    `json:"model"`
	Messages []message `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message message `json:"message"`
	} `json:"choices"`
}

const systemPrompt = `You repair broken CSS/XPath locators for browser test automation.
Given a failed locator, the error, and the current page HTML, reply with a single
replacement locator on one line and nothing else. Reply with NONE if no element
on the page plausibly matches the original intent.`

// Propose asks the model for a replacement locator. Returns "" when the
// model declines or answers with something unusable.
func (r *LLMResolver) Propose(ctx context.Context, locator, pageSnapshot, errorText string) (string, error) {
	if len(pageSnapshot) > maxSnapshotBytes {
		pageSnapshot = pageSnapshot[:maxSnapshotBytes]
	}

	prompt := fmt.Sprintf("Failed locator: %s\nError: %s\n\nPage HTML:\n%s", locator, errorText, pageSnapshot)

	body, err := json.Marshal(chatRequest{
		Model: r.model,
		Messages: []message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if r.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.apiKey)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read chat response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("chat request failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	var chat chatResponse
	if err := json.Unmarshal(respBody, &chat); err != nil {
		return "", fmt.Errorf("decode chat response: %w", err)
	}
	if len(chat.Choices) == 0 {
		return "", nil
	}

	return parseCandidate(chat.Choices[0].Message.Content), nil
}

// parseCandidate extracts a usable locator from the model's reply.
func parseCandidate(content string) string {
	candidate := strings.TrimSpace(content)
	candidate = strings.Trim(candidate, "`")
	if candidate == "" || strings.EqualFold(candidate, "NONE") {
		return ""
	}
	// A multi-line answer means the model ignored the format; take the
	// first line only.
	if idx := strings.IndexByte(candidate, '\n'); idx >= 0 {
		candidate = strings.TrimSpace(candidate[:idx])
	}
	return candidate
}
