// Package agentd is the HTTP client for the agent daemon that hosts the
// analysis agents. Each named agent is exposed as a domain.Worker so the
// graph executor stays unaware of the transport.
package agentd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/quantfold/zerodte/internal/domain"
)

// Client talks to an agent daemon over HTTP.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a new agent daemon client. timeout bounds a single
// invocation end to end; pass 0 to rely on per-request contexts alone.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type invokeRequest struct {
	Task    string            `json:"task"`
	Context map[string]string `json:"context,omitempty"`
}

// Result is the outcome of one agent invocation.
type Result struct {
	Text         string `json:"text"`
	InputTokens  int    `json:"input_tokens"`
	OutputTokens int    `json:"output_tokens"`
}

// Invoke runs the named agent with the given task and shared context.
func (c *Client) Invoke(ctx context.Context, agent, task string, shared map[string]string) (Result, error) {
	reqBody, err := json.Marshal(invokeRequest{Task: task, Context: shared})
	if err != nil {
		return Result{}, fmt.Errorf("agentd: marshal request: %w", err)
	}

	fullURL := fmt.Sprintf("%s/v1/agents/%s/invoke", c.baseURL, url.PathEscape(agent))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fullURL, bytes.NewReader(reqBody))
	if err != nil {
		return Result{}, fmt.Errorf("agentd: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("agentd: invoke %s: %w", agent, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("agentd: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("agentd: invoke %s: status %d: %s", agent, resp.StatusCode, truncate(body, 200))
	}

	var out Result
	if err := json.Unmarshal(body, &out); err != nil {
		return Result{}, fmt.Errorf("agentd: decode response: %w", err)
	}
	return out, nil
}

// Worker exposes the named agent as a domain.Worker.
func (c *Client) Worker(agent string) domain.Worker {
	return domain.WorkerFunc(func(ctx context.Context, task string, shared map[string]string) (domain.WorkerResult, error) {
		res, err := c.Invoke(ctx, agent, task, shared)
		if err != nil {
			return domain.WorkerResult{}, err
		}
		return domain.WorkerResult{
			Text:         res.Text,
			InputTokens:  res.InputTokens,
			OutputTokens: res.OutputTokens,
		}, nil
	})
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
