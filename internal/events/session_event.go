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
	"time"

	"github.com/google/uuid"
)

// SessionEventType marks a session lifecycle transition
type SessionEventType string

const (
	SessionStarted SessionEventType = "started"
	SessionEnded   SessionEventType = "ended"
)

// SessionEvent is published when a session starts talking and when it ends
type SessionEvent struct {
	UUID      string           `json:"uuid"`
	SessionID string           `json:"session_id"`
	Type      SessionEventType `json:"type"`
	Model     string           `json:"model"`
	Timestamp time.Time        `json:"timestamp"`
	Turns     int              `json:"turns"`
	Reason    string           `json:"reason,omitempty"`
}

// NewSessionEvent creates a SessionEvent with a generated UUID and current timestamp
func NewSessionEvent(sessionID string, eventType SessionEventType, model string) *SessionEvent {
	return &SessionEvent{
		UUID:      uuid.NewString(),
		SessionID: sessionID,
		Type:      eventType,
		Model:     model,
		Timestamp: time.Now(),
	}
}
