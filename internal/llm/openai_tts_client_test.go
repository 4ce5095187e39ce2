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
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/loqalabs/loqa-assistant/internal/config"
)

func newTTSTestServer(t *testing.T, lastRequest *OpenAITTSRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/audio/voices":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"voices": ["af_bella", "af_sky"]}`))
		case "/audio/speech":
			body, _ := io.ReadAll(r.Body)
			if lastRequest != nil {
				_ = json.Unmarshal(body, lastRequest)
			}
			w.Header().Set("Content-Type", "audio/mpeg")
			_, _ = w.Write([]byte("fake-mp3-data"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func testTTSConfig(url string) config.TTSConfig {
	return config.TTSConfig{
		URL:            url,
		Voice:          "af_bella",
		Speed:          1.0,
		ResponseFormat: "mp3",
		Normalize:      true,
		Timeout:        5 * time.Second,
	}
}

func TestOpenAITTSClient_New_InvalidURL(t *testing.T) {
	_, err := NewOpenAITTSClient(testTTSConfig(""))
	if err == nil {
		t.Fatal("Expected error for empty URL, got nil")
	}
	if !strings.Contains(err.Error(), "URL cannot be empty") {
		t.Errorf("Expected 'URL cannot be empty' error, got: %v", err)
	}
}

func TestOpenAITTSClient_Synthesize(t *testing.T) {
	var received OpenAITTSRequest
	server := newTTSTestServer(t, &received)
	defer server.Close()

	client, err := NewOpenAITTSClient(testTTSConfig(server.URL))
	if err != nil {
		t.Fatalf("NewOpenAITTSClient() error = %v", err)
	}
	defer client.Close()

	result, err := client.Synthesize(context.Background(), "Hello there", nil)
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	defer result.Audio.Close()

	audio, _ := io.ReadAll(result.Audio)
	if string(audio) != "fake-mp3-data" {
		t.Errorf("audio = %q, want %q", audio, "fake-mp3-data")
	}
	if result.ContentType != "audio/mpeg" {
		t.Errorf("ContentType = %q, want %q", result.ContentType, "audio/mpeg")
	}
	if result.Format != "mp3" {
		t.Errorf("Format = %q, want %q", result.Format, "mp3")
	}
	if received.Input != "Hello there" || received.Voice != "af_bella" {
		t.Errorf("unexpected request: %+v", received)
	}
	if received.Options != nil {
		t.Errorf("normalization options should be omitted when normalizing, got %v", received.Options)
	}
}

func TestOpenAITTSClient_Synthesize_Options(t *testing.T) {
	var received OpenAITTSRequest
	server := newTTSTestServer(t, &received)
	defer server.Close()

	client, _ := NewOpenAITTSClient(testTTSConfig(server.URL))
	result, err := client.Synthesize(context.Background(), "Hi", &TTSOptions{Voice: "af_sky", Speed: 1.5, ResponseFormat: "wav"})
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	result.Audio.Close()

	if received.Voice != "af_sky" || received.Speed != 1.5 || received.Format != "wav" {
		t.Errorf("options not applied: %+v", received)
	}
	if received.Options["normalize"] != false {
		t.Errorf("expected normalize=false option, got %v", received.Options)
	}
}

func TestOpenAITTSClient_Synthesize_Errors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("voice model crashed"))
	}))
	defer server.Close()

	client, _ := NewOpenAITTSClient(testTTSConfig(server.URL))

	if _, err := client.Synthesize(context.Background(), "   ", nil); err == nil {
		t.Error("Expected error for blank text")
	}

	_, err := client.Synthesize(context.Background(), "Hello", nil)
	if err == nil || !strings.Contains(err.Error(), "status 500") {
		t.Errorf("Expected status 500 error, got %v", err)
	}
}

func TestOpenAITTSClient_CheckVoice(t *testing.T) {
	server := newTTSTestServer(t, nil)
	defer server.Close()

	client, _ := NewOpenAITTSClient(testTTSConfig(server.URL))
	if err := client.CheckVoice(context.Background()); err != nil {
		t.Errorf("CheckVoice() error = %v", err)
	}

	cfg := testTTSConfig(server.URL)
	cfg.Voice = "bm_george"
	missing, _ := NewOpenAITTSClient(cfg)
	if err := missing.CheckVoice(context.Background()); err == nil {
		t.Error("Expected error for unavailable voice")
	}
}
