/*
 * This file is part of Loqa (https://github.com/loqalabs/loqa).
 * Copyright (C) 2025 Loqa Labs
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program. If not, see <https://www.gnu.org/licenses/>.
 */

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/loqalabs/loqa-assistant/internal/logging"
	"go.uber.org/zap"
)

// InferenceErrorKind classifies why a chat request produced no reply
type InferenceErrorKind string

const (
	InferenceUnreachable   InferenceErrorKind = "unreachable"
	InferenceModelNotFound InferenceErrorKind = "model_not_found"
	InferenceBadStatus     InferenceErrorKind = "bad_status"
	InferenceBadResponse   InferenceErrorKind = "bad_response"
	InferenceEmptyReply    InferenceErrorKind = "empty_reply"
)

// InferenceError is returned by Chat instead of an error-shaped reply
type InferenceError struct {
	Kind   InferenceErrorKind
	Model  string
	Detail string
	Err    error
}

func (e *InferenceError) Error() string {
	msg := fmt.Sprintf("inference %s (model %s)", e.Kind, e.Model)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *InferenceError) Unwrap() error {
	return e.Err
}

// ChatMessage is a single message in an Ollama chat request
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest represents a request to the Ollama chat API
type ChatRequest struct {
	Model    string         `json:"model"`
	Messages []ChatMessage  `json:"messages"`
	Stream   bool           `json:"stream"`
	Options  map[string]any `json:"options,omitempty"`
}

// ChatResponse represents a non-streaming response from the Ollama chat API
type ChatResponse struct {
	Model   string      `json:"model"`
	Message ChatMessage `json:"message"`
	Done    bool        `json:"done"`
	Error   string      `json:"error,omitempty"`
}

// TagsResponse represents the model list returned by /api/tags
type TagsResponse struct {
	Models []struct {
		Name  string `json:"name"`
		Model string `json:"model"`
	} `json:"models"`
}

// OllamaClient lists local models and runs chat completions against Ollama
type OllamaClient struct {
	baseURL string
	client  HTTPClient
}

// NewOllamaClient creates a client for the Ollama server at baseURL.
// A zero timeout leaves chat requests unbounded.
func NewOllamaClient(baseURL string, timeout time.Duration) *OllamaClient {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}

	return &OllamaClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// NewOllamaClientWithHTTPClient creates a client using a custom HTTP client
func NewOllamaClientWithHTTPClient(baseURL string, client HTTPClient) *OllamaClient {
	return &OllamaClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  client,
	}
}

// ListModels returns the identifiers of the locally available models in server order
func (c *OllamaClient) ListModels(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create tags request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cannot connect to Ollama at %s: %w", c.baseURL, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Printf("Warning: failed to close response body: %v", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama API returned status %d", resp.StatusCode)
	}

	var tags TagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, fmt.Errorf("error decoding tags response: %w", err)
	}

	models := make([]string, 0, len(tags.Models))
	for _, m := range tags.Models {
		switch {
		case m.Model != "":
			models = append(models, m.Model)
		case m.Name != "":
			models = append(models, m.Name)
		default:
			models = append(models, "unknown")
		}
	}

	return models, nil
}

// Chat sends a single-message, non-streaming chat request and returns the trimmed reply.
// Every failure is an *InferenceError.
func (c *OllamaClient) Chat(ctx context.Context, model, prompt string, temperature float64) (string, error) {
	reqBody := ChatRequest{
		Model:    model,
		Messages: []ChatMessage{{Role: "user", Content: prompt}},
		Stream:   false,
		Options:  map[string]any{"temperature": temperature},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", &InferenceError{Kind: InferenceBadResponse, Model: model, Detail: "marshal request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(jsonData))
	if err != nil {
		return "", &InferenceError{Kind: InferenceUnreachable, Model: model, Detail: "create request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	startTime := time.Now()
	logging.LogModelOperation(model, "chat_start",
		zap.Int("prompt_length", len(prompt)),
		zap.Float64("temperature", temperature),
	)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", &InferenceError{Kind: InferenceUnreachable, Model: model, Err: err}
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Printf("Warning: failed to close response body: %v", err)
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &InferenceError{Kind: InferenceUnreachable, Model: model, Detail: "read response", Err: err}
	}

	var chatResp ChatResponse
	decodeErr := json.Unmarshal(body, &chatResp)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", &InferenceError{Kind: InferenceModelNotFound, Model: model, Detail: chatResp.Error}
	case resp.StatusCode != http.StatusOK:
		detail := chatResp.Error
		if detail == "" {
			detail = strings.TrimSpace(string(body))
		}
		return "", &InferenceError{Kind: InferenceBadStatus, Model: model, Detail: fmt.Sprintf("status %d: %s", resp.StatusCode, detail)}
	case decodeErr != nil:
		return "", &InferenceError{Kind: InferenceBadResponse, Model: model, Detail: "decode response", Err: decodeErr}
	case chatResp.Error != "":
		return "", &InferenceError{Kind: InferenceBadResponse, Model: model, Detail: chatResp.Error}
	}

	reply := strings.TrimSpace(chatResp.Message.Content)
	if reply == "" {
		return "", &InferenceError{Kind: InferenceEmptyReply, Model: model}
	}

	logging.LogModelOperation(model, "chat_complete",
		zap.Duration("processing_time", time.Since(startTime)),
		zap.Int("reply_length", len(reply)),
	)

	return reply, nil
}

// Ping checks that Ollama is reachable
func (c *OllamaClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return fmt.Errorf("failed to create ping request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("cannot connect to Ollama at %s: %w", c.baseURL, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Printf("Warning: failed to close response body: %v", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama API returned status %d", resp.StatusCode)
	}

	return nil
}
