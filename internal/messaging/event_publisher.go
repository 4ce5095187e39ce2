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

package messaging

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/loqalabs/loqa-assistant/internal/events"
	"github.com/loqalabs/loqa-assistant/internal/logging"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Subject suffixes appended to the configured prefix
const (
	SubjectTurns    = "turns"
	SubjectSessions = "sessions"
)

// PublisherConfig holds NATS connection settings
type PublisherConfig struct {
	URL           string
	SubjectPrefix string
	MaxReconnect  int
	ReconnectWait time.Duration
}

// EventPublisher publishes assistant events to NATS
type EventPublisher struct {
	conn   *nats.Conn
	config PublisherConfig
}

// NewEventPublisher creates a publisher; call Connect before publishing
func NewEventPublisher(cfg PublisherConfig) *EventPublisher {
	if cfg.URL == "" {
		cfg.URL = nats.DefaultURL
	}
	if cfg.SubjectPrefix == "" {
		cfg.SubjectPrefix = "loqa.assistant"
	}
	return &EventPublisher{config: cfg}
}

// Subject returns the full subject for a suffix
func (p *EventPublisher) Subject(suffix string) string {
	return p.config.SubjectPrefix + "." + suffix
}

// Connect establishes the connection to the NATS server
func (p *EventPublisher) Connect() error {
	logging.LogNATSEvent(p.config.URL, "connecting")

	opts := []nats.Option{
		nats.Name("loqa-assistant"),
		nats.ReconnectWait(p.config.ReconnectWait),
		nats.MaxReconnects(p.config.MaxReconnect),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logging.LogWarn("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logging.LogNATSEvent(nc.ConnectedUrl(), "reconnected")
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logging.LogNATSEvent(p.config.URL, "closed")
		}),
	}

	conn, err := nats.Connect(p.config.URL, opts...)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}

	p.conn = conn
	logging.LogNATSEvent(conn.ConnectedUrl(), "connected")
	return nil
}

func (p *EventPublisher) publish(subject string, event any) error {
	if p.conn == nil {
		return fmt.Errorf("NATS connection not established")
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}

	logging.LogNATSEvent(subject, "published", zap.Int("bytes", len(data)))
	return nil
}

// PublishTurn publishes a finished turn
func (p *EventPublisher) PublishTurn(event *events.TurnEvent) error {
	if err := event.IsValid(); err != nil {
		return fmt.Errorf("invalid turn event: %w", err)
	}
	return p.publish(p.Subject(SubjectTurns), event)
}

// PublishSession publishes a session lifecycle event
func (p *EventPublisher) PublishSession(event *events.SessionEvent) error {
	return p.publish(p.Subject(SubjectSessions), event)
}

// OnTurn publishes the event and logs failures, so the session never blocks on messaging
func (p *EventPublisher) OnTurn(event *events.TurnEvent) {
	if err := p.PublishTurn(event); err != nil {
		logging.LogWarn("Failed to publish turn event", zap.Error(err), zap.Int("turn", event.Turn))
	}
}

// OnSession publishes the event and logs failures
func (p *EventPublisher) OnSession(event *events.SessionEvent) {
	if err := p.PublishSession(event); err != nil {
		logging.LogWarn("Failed to publish session event", zap.Error(err), zap.String("type", string(event.Type)))
	}
}

// Close drains and closes the connection
func (p *EventPublisher) Close() error {
	if p.conn == nil {
		return nil
	}
	err := p.conn.Drain()
	p.conn = nil
	return err
}

// IsConnected returns true if connected to NATS
func (p *EventPublisher) IsConnected() bool {
	return p.conn != nil && p.conn.IsConnected()
}
