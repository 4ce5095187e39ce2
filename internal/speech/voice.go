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
	"io"
	"strings"

	"github.com/loqalabs/loqa-assistant/internal/audio"
	"github.com/loqalabs/loqa-assistant/internal/llm"
	"github.com/loqalabs/loqa-assistant/internal/logging"
	"go.uber.org/zap"
)

// AudioPlayer plays an encoded audio stream
type AudioPlayer interface {
	Play(ctx context.Context, audio io.ReadCloser, format string) error
}

// Voice speaks text aloud. Synthesis and playback failures are logged, never returned,
// so a broken speaker cannot stop the conversation.
type Voice struct {
	tts    llm.TextToSpeech
	player AudioPlayer
}

// NewVoice creates a voice
func NewVoice(tts llm.TextToSpeech, player AudioPlayer) *Voice {
	return &Voice{tts: tts, player: player}
}

// Speak synthesizes and plays text, blocking until playback ends
func (v *Voice) Speak(ctx context.Context, text string) {
	if strings.TrimSpace(text) == "" {
		return
	}

	result, err := v.tts.Synthesize(ctx, text, nil)
	if err != nil {
		logging.LogWarn("Speech synthesis failed", zap.Error(err))
		return
	}

	format := audio.FormatFor(result.ContentType, result.Format)
	if err := v.player.Play(ctx, result.Audio, format); err != nil {
		logging.LogWarn("Speech playback failed", zap.Error(err), zap.String("format", format))
	}
}
