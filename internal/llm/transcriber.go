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
	"errors"
)

// ErrTranscriptionUnavailable marks failures to reach or use the transcription backend,
// as opposed to audio that simply contained no words.
var ErrTranscriptionUnavailable = errors.New("transcription service unavailable")

// Transcriber defines the interface for speech-to-text transcription services
type Transcriber interface {
	// Transcribe converts mono float32 samples to text. Empty text means nothing was understood.
	Transcribe(ctx context.Context, audioData []float32, sampleRate int) (string, error)

	// Close cleans up resources
	Close() error
}
