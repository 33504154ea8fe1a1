// Package genai wraps the generative-model collaborator behind a single
// capability: turn an assembled prompt into text. The output is treated as
// untrusted everywhere downstream.
package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Generator is the model collaborator capability.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ErrEmptyCompletion is returned when the model answers without any text.
var ErrEmptyCompletion = errors.New("genai: model returned no text")

// Client calls a Gemini-style generateContent endpoint.
type Client struct {
	baseURL string
	model   string
	apiKey  string
	client  *http.Client
}

// NewClient builds a Generator for the given endpoint and model.
func NewClient(baseURL, model, apiKey string, client *http.Client) *Client {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		apiKey:  apiKey,
		client:  client,
	}
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Generate sends the prompt and concatenates the first candidate's text parts.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	payload, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	})
	if err != nil {
		return "", fmt.Errorf("genai: encode request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("genai: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("genai: call model: %w", err)
	}
	defer resp.Body.Close()

	var decoded generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("genai: decode response: %w", err)
	}
	if decoded.Error != nil {
		return "", fmt.Errorf("genai: model error %d: %s", decoded.Error.Code, decoded.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("genai: model returned status %d", resp.StatusCode)
	}

	var builder strings.Builder
	if len(decoded.Candidates) > 0 {
		for _, p := range decoded.Candidates[0].Content.Parts {
			builder.WriteString(p.Text)
		}
	}

	text := strings.TrimSpace(builder.String())
	if text == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}
