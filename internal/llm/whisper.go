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

//go:build whisper

package llm

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
	"github.com/loqalabs/loqa-assistant/internal/logging"
)

// WhisperTranscriber handles speech-to-text locally using whisper.cpp
type WhisperTranscriber struct {
	mu        sync.Mutex
	model     whisper.Model
	modelPath string
	language  string
}

// NewWhisperTranscriber loads the ggml model at modelPath
func NewWhisperTranscriber(modelPath, language string) (*WhisperTranscriber, error) {
	if _, err := os.Stat(modelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("whisper model not found at %s", modelPath)
	}

	model, err := whisper.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load whisper model: %w", err)
	}

	if logging.Sugar != nil {
		logging.Sugar.Infow("✅ Whisper model loaded", "model_path", modelPath)
	}
	return &WhisperTranscriber{
		model:     model,
		modelPath: modelPath,
		language:  language,
	}, nil
}

// Transcribe converts audio samples to text. whisper.cpp expects 16 kHz input.
func (wt *WhisperTranscriber) Transcribe(ctx context.Context, audioData []float32, sampleRate int) (string, error) {
	wt.mu.Lock()
	defer wt.mu.Unlock()

	if wt.model == nil {
		return "", fmt.Errorf("%w: whisper model not initialized", ErrTranscriptionUnavailable)
	}

	if sampleRate != whisper.SampleRate {
		return "", fmt.Errorf("whisper requires %d Hz audio, got %d", whisper.SampleRate, sampleRate)
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}

	wctx, err := wt.model.NewContext()
	if err != nil {
		return "", fmt.Errorf("%w: failed to create whisper context: %v", ErrTranscriptionUnavailable, err)
	}

	if wt.language != "" {
		if err := wctx.SetLanguage(wt.language); err != nil {
			return "", fmt.Errorf("failed to set whisper language %q: %w", wt.language, err)
		}
	}

	if err := wctx.Process(audioData, nil, nil, nil); err != nil {
		return "", fmt.Errorf("%w: failed to process audio: %v", ErrTranscriptionUnavailable, err)
	}

	var transcript strings.Builder
	for {
		segment, err := wctx.NextSegment()
		if err != nil {
			break
		}
		transcript.WriteString(segment.Text)
	}

	result := strings.TrimSpace(transcript.String())
	if logging.Sugar != nil {
		logging.Sugar.Infow("🧠 Whisper transcription", "text", logging.SanitizeLogInput(result))
	}
	return result, nil
}

// Close cleans up the Whisper model
func (wt *WhisperTranscriber) Close() error {
	wt.mu.Lock()
	defer wt.mu.Unlock()

	if wt.model != nil {
		err := wt.model.Close()
		wt.model = nil
		return err
	}
	return nil
}
