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
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrOnsetTimeout is returned when no speech starts within the onset timeout
var ErrOnsetTimeout = errors.New("no speech detected before timeout")

// FrameSource yields consecutive frames of mono float32 samples
type FrameSource interface {
	ReadFrame() ([]float32, error)
}

// CaptureConfig controls ambient calibration and phrase detection
type CaptureConfig struct {
	SampleRate          int
	FramesPerBuffer     int
	CalibrationDuration time.Duration
	PauseThreshold      time.Duration
	MaxPhraseDuration   time.Duration
	EnergyThreshold     float64
	DynamicRatio        float64
}

// prerollFrames are kept before onset so the first syllable is not clipped
const prerollFrames = 2

// RMS returns the root mean square energy of a frame
func RMS(frame []float32) float64 {
	if len(frame) == 0 {
		return 0
	}

	var sum float64
	for _, s := range frame {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(frame)))
}

func samplesFor(d time.Duration, sampleRate int) int {
	return int(d.Seconds() * float64(sampleRate))
}

// Calibrate reads ambient audio for the configured duration and returns the speech threshold
func Calibrate(ctx context.Context, src FrameSource, cfg CaptureConfig) (float64, error) {
	target := samplesFor(cfg.CalibrationDuration, cfg.SampleRate)

	var energy float64
	frames, read := 0, 0
	for read < target {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		frame, err := src.ReadFrame()
		if err != nil {
			return 0, fmt.Errorf("calibration read failed: %w", err)
		}
		energy += RMS(frame)
		frames++
		read += len(frame)
	}

	threshold := cfg.EnergyThreshold
	if frames > 0 {
		if dynamic := energy / float64(frames) * cfg.DynamicRatio; dynamic > threshold {
			threshold = dynamic
		}
	}
	return threshold, nil
}

// CaptureUtterance calibrates against ambient noise, waits up to onsetTimeout for speech,
// and records until PauseThreshold of trailing silence or MaxPhraseDuration.
// Durations are measured in samples read, not wall-clock time.
func CaptureUtterance(ctx context.Context, src FrameSource, cfg CaptureConfig, onsetTimeout time.Duration) ([]float32, error) {
	if cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate: %d", cfg.SampleRate)
	}

	threshold, err := Calibrate(ctx, src, cfg)
	if err != nil {
		return nil, err
	}

	onsetLimit := samplesFor(onsetTimeout, cfg.SampleRate)
	pauseLimit := samplesFor(cfg.PauseThreshold, cfg.SampleRate)
	phraseLimit := samplesFor(cfg.MaxPhraseDuration, cfg.SampleRate)

	var preroll [][]float32
	waited := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		frame, err := src.ReadFrame()
		if err != nil {
			return nil, fmt.Errorf("capture read failed: %w", err)
		}

		if RMS(frame) > threshold {
			preroll = append(preroll, frame)
			break
		}

		waited += len(frame)
		if waited >= onsetLimit {
			return nil, ErrOnsetTimeout
		}

		preroll = append(preroll, frame)
		if len(preroll) > prerollFrames {
			preroll = preroll[1:]
		}
	}

	var utterance []float32
	for _, f := range preroll {
		utterance = append(utterance, f...)
	}

	silence := 0
	for len(utterance) < phraseLimit && silence < pauseLimit {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		frame, err := src.ReadFrame()
		if err != nil {
			return nil, fmt.Errorf("capture read failed: %w", err)
		}

		utterance = append(utterance, frame...)
		if RMS(frame) > threshold {
			silence = 0
		} else {
			silence += len(frame)
		}
	}

	return utterance, nil
}
