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
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"
	"github.com/loqalabs/loqa-assistant/internal/logging"
	"go.uber.org/zap"
)

// Microphone captures single utterances from the default input device.
// The device stream is opened for each capture and closed before it returns.
type Microphone struct {
	mu  sync.Mutex
	cfg CaptureConfig
}

// NewMicrophone initializes PortAudio
func NewMicrophone(cfg CaptureConfig) (*Microphone, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize portaudio: %w", err)
	}

	return &Microphone{cfg: cfg}, nil
}

// Capture records one utterance, see CaptureUtterance
func (m *Microphone) Capture(ctx context.Context, onsetTimeout time.Duration) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	buffer := make([]float32, m.cfg.FramesPerBuffer)
	stream, err := portaudio.OpenDefaultStream(1, 0, float64(m.cfg.SampleRate), len(buffer), buffer)
	if err != nil {
		return nil, fmt.Errorf("failed to open input stream: %w", err)
	}
	defer func() {
		if err := stream.Close(); err != nil {
			logging.LogWarn("Failed to close input stream", zap.Error(err))
		}
	}()

	if err := stream.Start(); err != nil {
		return nil, fmt.Errorf("failed to start input stream: %w", err)
	}
	defer func() {
		if err := stream.Stop(); err != nil {
			logging.LogWarn("Failed to stop input stream", zap.Error(err))
		}
	}()

	start := time.Now()
	samples, err := CaptureUtterance(ctx, &streamSource{stream: stream, buffer: buffer}, m.cfg, onsetTimeout)
	if err != nil {
		return nil, err
	}

	logging.LogSpeechOperation("input", "capture_complete",
		zap.Int("samples", len(samples)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return samples, nil
}

// Close releases PortAudio
func (m *Microphone) Close() error {
	return portaudio.Terminate()
}

type streamSource struct {
	stream *portaudio.Stream
	buffer []float32
}

func (s *streamSource) ReadFrame() ([]float32, error) {
	// An overflow only means frames were dropped; the buffer still holds audio.
	if err := s.stream.Read(); err != nil && err != portaudio.InputOverflowed {
		return nil, err
	}

	frame := make([]float32, len(s.buffer))
	copy(frame, s.buffer)
	return frame, nil
}
