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

package assistant

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/loqalabs/loqa-assistant/internal/config"
	"github.com/loqalabs/loqa-assistant/internal/llm"
)

func TestNewTranscriber(t *testing.T) {
	t.Run("HTTP backend", func(t *testing.T) {
		tr, err := NewTranscriber(config.STTConfig{Backend: "http", URL: "http://stt:8000", Timeout: time.Second})
		if err != nil {
			t.Fatalf("NewTranscriber() error = %v", err)
		}
		if _, ok := tr.(*llm.STTClient); !ok {
			t.Errorf("transcriber = %T, want *llm.STTClient", tr)
		}
	})

	t.Run("Whisper backend", func(t *testing.T) {
		// Without the whisper build tag the stub constructor always succeeds;
		// with it, a missing model file is an error.
		tr, err := NewTranscriber(config.STTConfig{Backend: "whisper", WhisperModelPath: filepath.Join(t.TempDir(), "missing.bin")})
		if err == nil {
			if _, ok := tr.(*llm.WhisperTranscriber); !ok {
				t.Errorf("transcriber = %T, want *llm.WhisperTranscriber", tr)
			}
			_ = tr.Close()
		}
	})

	t.Run("Unknown backend", func(t *testing.T) {
		_, err := NewTranscriber(config.STTConfig{Backend: "carrier-pigeon"})
		if err == nil || !strings.Contains(err.Error(), "unknown STT backend") {
			t.Errorf("error = %v, want unknown backend", err)
		}
	})
}

func TestCaptureConfig(t *testing.T) {
	cfg := config.AudioConfig{
		SampleRate:          16000,
		FramesPerBuffer:     1024,
		CalibrationDuration: time.Second,
		PauseThreshold:      800 * time.Millisecond,
		MaxPhraseDuration:   30 * time.Second,
		EnergyThreshold:     0.01,
		DynamicRatio:        1.5,
	}

	got := CaptureConfig(cfg)
	if got.SampleRate != 16000 || got.FramesPerBuffer != 1024 || got.PauseThreshold != 800*time.Millisecond ||
		got.MaxPhraseDuration != 30*time.Second || got.EnergyThreshold != 0.01 || got.DynamicRatio != 1.5 ||
		got.CalibrationDuration != time.Second {
		t.Errorf("CaptureConfig() = %+v", got)
	}
}

func TestNewCorrector(t *testing.T) {
	ctx := context.Background()

	t.Run("Disabled", func(t *testing.T) {
		c, closeFn := NewCorrector(ctx, config.SpellerConfig{Enabled: false})
		if c != nil || closeFn != nil {
			t.Error("disabled speller should return nil")
		}
	})

	t.Run("SQLite lexicon", func(t *testing.T) {
		dir := t.TempDir()
		dict := filepath.Join(dir, "extra.txt")
		if err := os.WriteFile(dict, []byte("ollama 100\n"), 0600); err != nil {
			t.Fatal(err)
		}

		c, closeFn := NewCorrector(ctx, config.SpellerConfig{
			Enabled:        true,
			DBPath:         filepath.Join(dir, "lexicon.db"),
			DictionaryPath: dict,
		})
		if c == nil || closeFn == nil {
			t.Fatal("expected SQLite-backed speller")
		}
		defer func() {
			if err := closeFn(); err != nil {
				t.Errorf("close error = %v", err)
			}
		}()

		if got := c.Correct("olama tomorow"); got != "ollama tomorrow" {
			t.Errorf("Correct() = %q, want %q", got, "ollama tomorrow")
		}
	})

	t.Run("Falls back to memory", func(t *testing.T) {
		blocker := filepath.Join(t.TempDir(), "file")
		if err := os.WriteFile(blocker, []byte("x"), 0600); err != nil {
			t.Fatal(err)
		}

		c, closeFn := NewCorrector(ctx, config.SpellerConfig{
			Enabled: true,
			DBPath:  filepath.Join(blocker, "sub", "lexicon.db"),
		})
		if c == nil {
			t.Fatal("expected in-memory speller")
		}
		if closeFn != nil {
			t.Error("in-memory speller needs no close")
		}
		if got := c.Correct("tomorow"); got != "tomorrow" {
			t.Errorf("Correct() = %q, want tomorrow", got)
		}
	})
}

func TestNewPublisher(t *testing.T) {
	if p := NewPublisher(config.EventsConfig{Enabled: false}); p != nil {
		t.Error("disabled events should return nil")
	}

	p := NewPublisher(config.EventsConfig{Enabled: true, URL: "nats://127.0.0.1:1"})
	if p != nil {
		_ = p.Close()
		t.Error("unreachable NATS should return nil")
	}
}

func TestAssistant_Close(t *testing.T) {
	var order []string
	a := &Assistant{}
	a.track("first", func() error { order = append(order, "first"); return nil })
	a.track("second", func() error { order = append(order, "second"); return errors.New("boom") })
	a.track("third", func() error { order = append(order, "third"); return errors.New("bang") })

	err := a.Close()
	if err == nil {
		t.Fatal("Close() should aggregate errors")
	}
	for _, want := range []string{"close second: boom", "close third: bang"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err.Error(), want)
		}
	}

	if strings.Join(order, ",") != "third,second,first" {
		t.Errorf("close order = %v", order)
	}

	if err := a.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}
