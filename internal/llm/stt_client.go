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
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/loqalabs/loqa-assistant/internal/logging"
	wav "github.com/moutend/go-wav"
)

// STTClient implements the Transcriber interface using REST API calls
// to any OpenAI-compatible Speech-to-Text service
type STTClient struct {
	baseURL    string
	language   string
	model      string
	httpClient HTTPClient
}

// OpenAI-compatible response struct
type transcriptionResponse struct {
	Text string `json:"text"`
}

// NewSTTClient creates a new OpenAI-compatible STT client
func NewSTTClient(baseURL, language, model string, timeout time.Duration) *STTClient {
	if baseURL == "" {
		baseURL = "http://localhost:8000" // Default STT service address
	}
	if model == "" {
		model = "tiny"
	}

	return &STTClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		language:   language,
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// HealthCheck verifies the service is running
func (s *STTClient) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create health request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: failed to connect to STT service at %s: %v", ErrTranscriptionUnavailable, s.baseURL, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Printf("Warning: failed to close response body: %v", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: health check failed with status %d", ErrTranscriptionUnavailable, resp.StatusCode)
	}

	return nil
}

// Transcribe implements the Transcriber interface
func (s *STTClient) Transcribe(ctx context.Context, audioData []float32, sampleRate int) (string, error) {
	if len(audioData) == 0 {
		return "", fmt.Errorf("empty audio data")
	}

	if sampleRate <= 0 {
		return "", fmt.Errorf("invalid sample rate: %d", sampleRate)
	}

	startTime := time.Now()
	requestID := fmt.Sprintf("req_%d", startTime.UnixNano())

	if logging.Sugar != nil {
		logging.Sugar.Debugw("Sending transcription request",
			"request_id", requestID,
			"samples", len(audioData),
			"sample_rate", sampleRate,
		)
	}

	wavData, err := encodeWAV(audioData, sampleRate)
	if err != nil {
		return "", fmt.Errorf("failed to convert audio to WAV: %w", err)
	}

	var requestBody bytes.Buffer
	writer := multipart.NewWriter(&requestBody)

	audioWriter, err := writer.CreateFormFile("file", "audio.wav")
	if err != nil {
		return "", fmt.Errorf("failed to create form file: %w", err)
	}

	if _, err := audioWriter.Write(wavData); err != nil {
		return "", fmt.Errorf("failed to write audio data: %w", err)
	}

	_ = writer.WriteField("model", s.model)
	_ = writer.WriteField("language", s.language)
	_ = writer.WriteField("temperature", "0.0")
	_ = writer.WriteField("response_format", "json")

	contentType := writer.FormDataContentType()
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v1/audio/transcriptions", &requestBody)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", contentType)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: transcription HTTP request failed: %v", ErrTranscriptionUnavailable, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Printf("Warning: failed to close response body: %v", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		detail := strings.TrimSpace(string(body))
		// 4xx means the service is up but rejected this audio
		if resp.StatusCode < http.StatusInternalServerError {
			return "", fmt.Errorf("transcription rejected with status %d: %s", resp.StatusCode, detail)
		}
		return "", fmt.Errorf("%w: transcription failed with status %d: %s",
			ErrTranscriptionUnavailable, resp.StatusCode, detail)
	}

	var transcriptionResp transcriptionResponse
	if err := json.NewDecoder(resp.Body).Decode(&transcriptionResp); err != nil {
		return "", fmt.Errorf("%w: failed to parse transcription response: %v", ErrTranscriptionUnavailable, err)
	}

	text := strings.TrimSpace(transcriptionResp.Text)
	if logging.Sugar != nil {
		logging.Sugar.Infow("Transcription completed",
			"request_id", requestID,
			"processing_time_ms", time.Since(startTime).Milliseconds(),
			"text_length", len(text),
			"text", logging.SanitizeLogInput(text),
		)
	}

	return text, nil
}

// encodeWAV converts float32 samples to a 16-bit mono PCM WAV file
func encodeWAV(samples []float32, sampleRate int) ([]byte, error) {
	file, err := wav.New(sampleRate, 16, 1)
	if err != nil {
		return nil, err
	}

	pcm := make([]byte, len(samples)*2)
	for i, sample := range samples {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(floatToPCM16(sample)))
	}

	if _, err := file.Write(pcm); err != nil {
		return nil, err
	}

	return wav.Marshal(file)
}

func floatToPCM16(sample float32) int16 {
	clamped := math.Max(-1, math.Min(1, float64(sample)))
	return int16(math.Round(clamped * math.MaxInt16))
}

// Close cleans up resources
func (s *STTClient) Close() error {
	if logging.Sugar != nil {
		logging.Sugar.Debugw("Closing STT client", "base_url", s.baseURL)
	}
	return nil
}
