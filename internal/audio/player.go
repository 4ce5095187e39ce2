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

package audio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"strings"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
	"github.com/faiface/beep/vorbis"
	"github.com/faiface/beep/wav"
	"github.com/loqalabs/loqa-assistant/internal/logging"
	"go.uber.org/zap"
)

const resampleQuality = 4

// Player plays encoded audio through the default output device
type Player struct {
	mu         sync.Mutex
	sampleRate beep.SampleRate
	ready      bool
}

// NewPlayer creates a player; the speaker is initialized lazily on first playback
func NewPlayer() *Player {
	return &Player{}
}

// FormatFor picks a decoder name from a content type, falling back to the requested format
func FormatFor(contentType, requested string) string {
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		switch mediaType {
		case "audio/mpeg", "audio/mp3":
			return "mp3"
		case "audio/wav", "audio/x-wav", "audio/wave":
			return "wav"
		case "audio/ogg", "audio/vorbis":
			return "ogg"
		}
	}
	return strings.ToLower(strings.TrimSpace(requested))
}

func decode(format string, rc io.ReadCloser) (beep.StreamSeekCloser, beep.Format, error) {
	switch format {
	case "mp3":
		return mp3.Decode(rc)
	case "wav":
		return wav.Decode(rc)
	case "ogg", "vorbis":
		return vorbis.Decode(rc)
	default:
		return nil, beep.Format{}, fmt.Errorf("unsupported audio format: %q", format)
	}
}

// Play decodes audio and blocks until playback finishes or ctx is done.
// The reader is always closed.
func (p *Player) Play(ctx context.Context, audio io.ReadCloser, format string) error {
	data, err := io.ReadAll(audio)
	_ = audio.Close()
	if err != nil {
		return fmt.Errorf("failed to read audio: %w", err)
	}
	if len(data) == 0 {
		return fmt.Errorf("empty audio stream")
	}

	streamer, fmtInfo, err := decode(format, io.NopCloser(bytes.NewReader(data)))
	if err != nil {
		return fmt.Errorf("failed to decode %s audio: %w", format, err)
	}
	defer func() {
		_ = streamer.Close()
	}()

	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.ready {
		if err := speaker.Init(fmtInfo.SampleRate, fmtInfo.SampleRate.N(time.Second/10)); err != nil {
			return fmt.Errorf("failed to initialize speaker: %w", err)
		}
		p.sampleRate = fmtInfo.SampleRate
		p.ready = true
	}

	var source beep.Streamer = streamer
	if fmtInfo.SampleRate != p.sampleRate {
		source = beep.Resample(resampleQuality, fmtInfo.SampleRate, p.sampleRate, streamer)
	}

	done := make(chan struct{})
	speaker.Play(beep.Seq(source, beep.Callback(func() {
		close(done)
	})))

	logging.LogSpeechOperation("output", "playback_start",
		zap.String("format", format),
		zap.Int("bytes", len(data)),
	)

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		speaker.Clear()
		return ctx.Err()
	}
}
