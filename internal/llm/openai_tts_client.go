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
	"sync"
	"time"

	"github.com/loqalabs/loqa-assistant/internal/config"
	"github.com/loqalabs/loqa-assistant/internal/logging"
	"go.uber.org/zap"
)

// OpenAITTSRequest represents a request to an OpenAI-compatible TTS API
type OpenAITTSRequest struct {
	Model   string         `json:"model"`
	Input   string         `json:"input"`
	Voice   string         `json:"voice"`
	Format  string         `json:"response_format"`
	Speed   float32        `json:"speed,omitempty"`
	Options map[string]any `json:"normalization_options,omitempty"`
}

// OpenAITTSVoicesResponse represents the response from the voices endpoint
type OpenAITTSVoicesResponse struct {
	Voices []string `json:"voices"`
}

// OpenAITTSClient implements TextToSpeech for OpenAI-compatible TTS services such as Kokoro
type OpenAITTSClient struct {
	baseURL         string
	client          *http.Client
	config          config.TTSConfig
	mu              sync.RWMutex
	cachedVoices    []string
	voicesCacheTime time.Time
}

// NewOpenAITTSClient creates a new OpenAI-compatible TTS client
func NewOpenAITTSClient(cfg config.TTSConfig) (*OpenAITTSClient, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("TTS URL cannot be empty")
	}

	ttsClient := &OpenAITTSClient{
		baseURL: strings.TrimSuffix(cfg.URL, "/"),
		client:  &http.Client{Timeout: cfg.Timeout},
		config:  cfg,
	}

	if logging.Sugar != nil {
		logging.Sugar.Infow("🔊 TTS client initialized",
			"url", cfg.URL,
			"voice", cfg.Voice,
			"format", cfg.ResponseFormat,
		)
	}

	return ttsClient, nil
}

// Synthesize converts text to speech using OpenAI-compatible TTS
func (c *OpenAITTSClient) Synthesize(ctx context.Context, text string, options *TTSOptions) (*TTSResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}

	startTime := time.Now()

	voice := c.config.Voice
	speed := c.config.Speed
	format := c.config.ResponseFormat
	normalize := c.config.Normalize

	if options != nil {
		if options.Voice != "" {
			voice = options.Voice
		}
		if options.Speed > 0 {
			speed = options.Speed
		}
		if options.ResponseFormat != "" {
			format = options.ResponseFormat
		}
		normalize = options.Normalize
	}

	request := OpenAITTSRequest{
		Model:  "tts-1",
		Input:  text,
		Voice:  voice,
		Format: format,
		Speed:  speed,
	}

	if !normalize {
		request.Options = map[string]any{
			"normalize": false,
		}
	}

	requestBody, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal TTS request: %w", err)
	}

	logging.LogSpeechOperation("output", "synthesis_start",
		zap.String("voice", voice),
		zap.Int("text_length", len(text)),
		zap.String("format", format),
		zap.Float32("speed", speed),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/audio/speech", bytes.NewReader(requestBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/*")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("TTS HTTP request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		if err := resp.Body.Close(); err != nil {
			log.Printf("Warning: failed to close response body: %v", err)
		}
		return nil, fmt.Errorf("TTS request failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	logging.LogSpeechOperation("output", "synthesis_complete",
		zap.String("voice", voice),
		zap.Duration("processing_time", time.Since(startTime)),
		zap.String("content_type", resp.Header.Get("Content-Type")),
		zap.Int64("content_length", resp.ContentLength),
	)

	return &TTSResult{
		Audio:       resp.Body,
		ContentType: resp.Header.Get("Content-Type"),
		Format:      format,
		Length:      resp.ContentLength,
	}, nil
}

// GetAvailableVoices returns the list of available voices, cached for an hour
func (c *OpenAITTSClient) GetAvailableVoices(ctx context.Context) ([]string, error) {
	c.mu.RLock()
	if len(c.cachedVoices) > 0 && time.Since(c.voicesCacheTime) < time.Hour {
		voices := make([]string, len(c.cachedVoices))
		copy(voices, c.cachedVoices)
		c.mu.RUnlock()
		return voices, nil
	}
	c.mu.RUnlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/audio/voices", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create voices request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch voices: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Printf("Warning: failed to close response body: %v", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("voices request failed with status %d", resp.StatusCode)
	}

	var voicesResponse OpenAITTSVoicesResponse
	if err := json.NewDecoder(resp.Body).Decode(&voicesResponse); err != nil {
		return nil, fmt.Errorf("failed to decode voices response: %w", err)
	}

	c.mu.Lock()
	c.cachedVoices = make([]string, len(voicesResponse.Voices))
	copy(c.cachedVoices, voicesResponse.Voices)
	c.voicesCacheTime = time.Now()
	c.mu.Unlock()

	return voicesResponse.Voices, nil
}

// CheckVoice verifies the service is reachable and offers the configured voice
func (c *OpenAITTSClient) CheckVoice(ctx context.Context) error {
	voices, err := c.GetAvailableVoices(ctx)
	if err != nil {
		return fmt.Errorf("connection test failed: %w", err)
	}

	for _, v := range voices {
		if v == c.config.Voice {
			return nil
		}
	}

	return fmt.Errorf("voice %q not offered by TTS service (available: %s)", c.config.Voice, strings.Join(voices, ", "))
}

// Close cleans up resources
func (c *OpenAITTSClient) Close() error {
	c.client.CloseIdleConnections()
	return nil
}
