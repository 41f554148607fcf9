// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package summarize turns downloaded paper text into structured summaries
// and classifications using an OpenAI-compatible chat completion API.
package summarize

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pdiddy/secdigest/pkg/types"
)

// ErrMalformedOutput marks a model response that could not be parsed as the
// expected JSON shape. It is a per-record condition, not a transport failure,
// so retry loops do not repeat the call.
var ErrMalformedOutput = errors.New("malformed model output")

// backoffBase is the starting delay for transport retries. Tests override it.
var backoffBase = 2 * time.Second

// Completer issues one chat completion and returns the raw message content.
// The production implementation is OpenAIClient; tests supply canned ones.
type Completer interface {
	Complete(ctx context.Context, system, user string) ([]byte, error)
}

// OpenAIClient talks to an OpenAI-compatible /chat/completions endpoint.
// Setting BaseURL to a local server (Ollama, vLLM) works unchanged.
type OpenAIClient struct {
	Client *http.Client
	Config types.AIConfig
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	ResponseFormat *chatFormat   `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete sends one system+user exchange and returns the assistant content.
// The request asks for a JSON object response so the model cannot wrap its
// answer in prose.
func (c *OpenAIClient) Complete(ctx context.Context, system, user string) ([]byte, error) {
	payload := chatRequest{
		Model: c.Config.Model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		ResponseFormat: &chatFormat{Type: "json_object"},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	url := strings.TrimSuffix(c.Config.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.Config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.Config.APIKey)
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling model API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("model API returned HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("parsing API response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("%w: response has no choices", ErrMalformedOutput)
	}
	return []byte(parsed.Choices[0].Message.Content), nil
}

// callWithRetry runs fn, retrying transport failures with exponential
// backoff. Malformed model output is returned immediately: repeating the
// same prompt tends to reproduce the same malformed answer.
func callWithRetry(ctx context.Context, maxRetries int, fn func() error) error {
	if maxRetries <= 0 {
		maxRetries = 3
	}

	var err error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			delay := backoffBase * time.Duration(1<<(attempt-1))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		err = fn()
		if err == nil || errors.Is(err, ErrMalformedOutput) {
			return err
		}
	}
	return err
}
