// Package httprequest provides the HTTP request action.
package httprequest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/autoflowhq/autoflow/pkg/models"
	"github.com/autoflowhq/autoflow/pkg/protocol"
	"github.com/autoflowhq/autoflow/pkg/template"
)

type Config struct {
	URL     string            `json:"url"               jsonschema:"description=Request URL. Supports templating"`
	Method  string            `json:"method,omitempty"  jsonschema:"enum=GET,enum=POST,enum=PUT,enum=PATCH,enum=DELETE,default=GET"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    string            `json:"body,omitempty"    jsonschema:"description=Request body. Supports templating"`
	Timeout int               `json:"timeout,omitempty" jsonschema:"minimum=1,maximum=300,default=30,description=Timeout in seconds"`
	Retries RetryConfig       `json:"retries,omitzero"`
}

type RetryConfig struct {
	Attempts int `json:"attempts,omitempty" jsonschema:"minimum=1,maximum=5"`
	Delay    int `json:"delay,omitempty"    jsonschema:"minimum=0,description=Delay between attempts in milliseconds"`
}

type HTTPRequestAction struct {
	config Config
	client *http.Client
}

func NewHTTPRequestAction(config map[string]any) (*HTTPRequestAction, error) {
	httpConfig := Config{
		Method:  "GET",
		Headers: make(map[string]string),
		Timeout: 30,
		Retries: RetryConfig{Attempts: 1, Delay: 0},
	}

	if err := protocol.DecodeConfig(config, &httpConfig); err != nil {
		return nil, err
	}

	if httpConfig.URL == "" {
		return nil, errors.New("missing required field 'url'")
	}

	httpConfig.Method = strings.ToUpper(httpConfig.Method)
	if httpConfig.Method == "" {
		httpConfig.Method = "GET"
	}

	if httpConfig.Retries.Attempts < 1 {
		httpConfig.Retries.Attempts = 1
	}

	if httpConfig.Timeout <= 0 {
		httpConfig.Timeout = 30
	}

	return &HTTPRequestAction{
		config: httpConfig,
		client: &http.Client{Timeout: time.Duration(httpConfig.Timeout) * time.Second},
	}, nil
}

func (a *HTTPRequestAction) Execute(ctx context.Context, executionCtx *models.ExecutionContext, logger *slog.Logger) (protocol.ActionResult, error) {
	url, err := template.RenderStringWithContext(a.config.URL, executionCtx)
	if err != nil {
		return protocol.ActionResult{}, fmt.Errorf("failed to render URL template: %w", err)
	}

	var body string
	if a.config.Body != "" {
		body, err = template.RenderStringWithContext(a.config.Body, executionCtx)
		if err != nil {
			return protocol.ActionResult{}, fmt.Errorf("failed to render body template: %w", err)
		}
	}

	headers := make(map[string]string, len(a.config.Headers))
	for key, value := range a.config.Headers {
		rendered, err := template.RenderStringWithContext(value, executionCtx)
		if err != nil {
			rendered = value // Use original value if template fails
		}

		headers[key] = rendered
	}

	var lastErr error

	for attempt := 1; attempt <= a.config.Retries.Attempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return protocol.ActionResult{}, ctx.Err()
			case <-time.After(time.Duration(a.config.Retries.Delay) * time.Millisecond):
			}
		}

		result, err := a.performRequest(ctx, url, body, headers)
		if err == nil {
			return protocol.ActionResult{Output: result}, nil
		}

		lastErr = err
		logger.DebugContext(ctx, "http request attempt failed", "attempt", attempt, "error", err)

		// Client and server errors are answers, not transport failures.
		httpErr := &HTTPError{}
		if errors.As(err, &httpErr) {
			break
		}
	}

	return protocol.ActionResult{}, fmt.Errorf("HTTP request failed after %d attempts: %w", a.config.Retries.Attempts, lastErr)
}

type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

func (a *HTTPRequestAction) performRequest(ctx context.Context, url, body string, headers map[string]string) (map[string]any, error) {
	var reqBody io.Reader
	if body != "" {
		reqBody = strings.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, a.config.Method, url, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for key, value := range headers {
		req.Header.Set(key, value)
	}

	if body != "" && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, &HTTPError{
			StatusCode: resp.StatusCode,
			Message:    string(respBody),
		}
	}

	result := map[string]any{
		"status_code": resp.StatusCode,
		"headers":     resp.Header,
		"body":        string(respBody),
	}

	var jsonBody any
	if err := json.Unmarshal(respBody, &jsonBody); err == nil {
		result["json"] = jsonBody
	}

	return result, nil
}
