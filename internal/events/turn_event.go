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

package events

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Outcome describes how a turn ended
type Outcome string

const (
	OutcomeReplied            Outcome = "replied"
	OutcomeClarified          Outcome = "clarified"
	OutcomeUnrecognized       Outcome = "unrecognized"
	OutcomeServiceUnreachable Outcome = "service_unreachable"
	OutcomeEmptyInput         Outcome = "empty_input"
	OutcomeInferenceFailed    Outcome = "inference_failed"
	OutcomeExit               Outcome = "exit"
)

// TurnEvent records one finished turn of a session
type TurnEvent struct {
	UUID      string    `json:"uuid"`
	SessionID string    `json:"session_id"`
	Turn      int       `json:"turn"`
	Model     string    `json:"model"`
	Timestamp time.Time `json:"timestamp"`

	Transcription  string  `json:"transcription,omitempty"`
	Outcome        Outcome `json:"outcome"`
	SpokenText     string  `json:"spoken_text,omitempty"`
	ProcessingTime int64   `json:"processing_time_ms"`
	ErrorMessage   string  `json:"error_message,omitempty"`
}

// NewTurnEvent creates a TurnEvent with a generated UUID and current timestamp
func NewTurnEvent(sessionID string, turn int, model string) *TurnEvent {
	return &TurnEvent{
		UUID:      uuid.NewString(),
		SessionID: sessionID,
		Turn:      turn,
		Model:     model,
		Timestamp: time.Now(),
	}
}

// SetResult records the outcome and what was said, and stops the clock
func (e *TurnEvent) SetResult(outcome Outcome, transcription, spoken string) {
	e.Outcome = outcome
	e.Transcription = transcription
	e.SpokenText = spoken
	e.ProcessingTime = time.Since(e.Timestamp).Milliseconds()
}

// SetError attaches the failure that shaped the outcome
func (e *TurnEvent) SetError(err error) {
	if err != nil {
		e.ErrorMessage = err.Error()
	}
}

// IsValid performs basic validation on the event
func (e *TurnEvent) IsValid() error {
	if e.UUID == "" {
		return fmt.Errorf("UUID is required")
	}
	if e.SessionID == "" {
		return fmt.Errorf("sessionID is required")
	}
	if e.Turn < 1 {
		return fmt.Errorf("turn must be positive")
	}
	if e.Outcome == "" {
		return fmt.Errorf("outcome is required")
	}
	if e.Timestamp.IsZero() {
		return fmt.Errorf("timestamp is required")
	}
	return nil
}

func (e *TurnEvent) String() string {
	return fmt.Sprintf("TurnEvent{Session: %s, Turn: %d, Model: %s, Outcome: %s, Transcription: %q}",
		e.SessionID, e.Turn, e.Model, e.Outcome, e.Transcription)
}
