package runner

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/edvin/testpilot/internal/model"
)

// APIRunner executes API-type tests: one HTTP request plus response
// assertions. Structurally analogous to the UI runner but needs no
// session handle.
type APIRunner struct {
	httpClient *http.Client
	logger     zerolog.Logger
}

func NewAPIRunner(logger zerolog.Logger) *APIRunner {
	return &APIRunner{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		logger:     logger.With().Str("component", "api-runner").Logger(),
	}
}

func (r *APIRunner) Run(ctx context.Context, test *model.Test) model.TestResult {
	result := model.TestResult{
		TestID:   test.ID,
		TestName: test.Name,
		Type:     model.TestTypeAPI,
	}
	start := time.Now()
	defer func() {
		result.DurationMs = time.Since(start).Milliseconds()
	}()

	spec := test.APISpec
	if spec == nil {
		result.Status = model.StatusError
		result.Error = "api test has no request spec"
		return result
	}

	var body io.Reader
	if len(spec.Body) > 0 {
		body = bytes.NewReader(spec.Body)
	}
	req, err := http.NewRequestWithContext(ctx, spec.Method, spec.URL, body)
	if err != nil {
		result.Status = model.StatusError
		result.Error = fmt.Sprintf("build request: %s", err)
		return result
	}
	for k, v := range spec.Headers {
		req.Header.Set(k, v)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		result.Status = model.StatusError
		result.Error = fmt.Sprintf("request failed: %s", err)
		return result
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		result.Status = model.StatusError
		result.Error = fmt.Sprintf("read response: %s", err)
		return result
	}

	for _, assertion := range spec.Assertions {
		if assertion.StatusCode != 0 && resp.StatusCode != assertion.StatusCode {
			result.Status = model.StatusFailed
			result.Error = fmt.Sprintf("expected status %d, got %d", assertion.StatusCode, resp.StatusCode)
			return result
		}
		if assertion.BodyContains != "" && !strings.Contains(string(respBody), assertion.BodyContains) {
			result.Status = model.StatusFailed
			result.Error = fmt.Sprintf("response body does not contain %q", assertion.BodyContains)
			return result
		}
	}

	result.Success = true
	result.Status = model.StatusPassed
	return result
}
