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

package speech

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/loqalabs/loqa-assistant/internal/audio"
	"github.com/loqalabs/loqa-assistant/internal/llm"
	"github.com/loqalabs/loqa-assistant/internal/logging"
	"go.uber.org/zap"
)

var (
	// ErrUnrecognized means the user said nothing intelligible before the timeout
	ErrUnrecognized = errors.New("speech not recognized")

	// ErrServiceUnreachable means the recognition backend could not be used
	ErrServiceUnreachable = errors.New("speech service unreachable")
)

// Capturer records one utterance from an input device
type Capturer interface {
	Capture(ctx context.Context, onsetTimeout time.Duration) ([]float32, error)
}

// Recognizer turns one spoken utterance into text
type Recognizer struct {
	capturer    Capturer
	transcriber llm.Transcriber
	sampleRate  int
}

// NewRecognizer creates a recognizer
func NewRecognizer(capturer Capturer, transcriber llm.Transcriber, sampleRate int) *Recognizer {
	return &Recognizer{
		capturer:    capturer,
		transcriber: transcriber,
		sampleRate:  sampleRate,
	}
}

// Listen captures one utterance and returns its transcript.
// Failures are reported as ErrUnrecognized or ErrServiceUnreachable; context errors pass through.
func (r *Recognizer) Listen(ctx context.Context, timeout time.Duration) (string, error) {
	samples, err := r.capturer.Capture(ctx, timeout)
	if err != nil {
		switch {
		case errors.Is(err, audio.ErrOnsetTimeout):
			return "", ErrUnrecognized
		case ctx.Err() != nil:
			return "", ctx.Err()
		default:
			logging.LogError(err, "Audio capture failed")
			return "", fmt.Errorf("%w: %v", ErrServiceUnreachable, err)
		}
	}

	text, err := r.transcriber.Transcribe(ctx, samples, r.sampleRate)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if errors.Is(err, llm.ErrTranscriptionUnavailable) {
			logging.LogWarn("Transcription backend unavailable", zap.Error(err))
			return "", fmt.Errorf("%w: %v", ErrServiceUnreachable, err)
		}
		logging.LogWarn("Transcription failed", zap.Error(err))
		return "", ErrUnrecognized
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrUnrecognized
	}

	logging.LogSpeechOperation("input", "recognized",
		zap.Int("text_length", len(text)),
		zap.Int("samples", len(samples)),
	)
	return text, nil
}
