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

package session

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/loqalabs/loqa-assistant/internal/events"
	"github.com/loqalabs/loqa-assistant/internal/logging"
	"github.com/loqalabs/loqa-assistant/internal/speech"
	"go.uber.org/zap"
)

// ErrNoModel is returned by RunTurn before SelectModel has run
var ErrNoModel = errors.New("no model selected")

// ModelCatalog lists locally available models
type ModelCatalog interface {
	ListModels(ctx context.Context) ([]string, error)
}

// SpeechInput listens for one utterance
type SpeechInput interface {
	Listen(ctx context.Context, timeout time.Duration) (string, error)
}

// TextCorrector fixes spelling in recognized text
type TextCorrector interface {
	Correct(text string) string
}

// ChatEngine answers one prompt with one model
type ChatEngine interface {
	Chat(ctx context.Context, model, prompt string, temperature float64) (string, error)
}

// SpeechOutput speaks text; it reports its own failures
type SpeechOutput interface {
	Speak(ctx context.Context, text string)
}

// TurnObserver is told about every finished turn
type TurnObserver interface {
	OnTurn(event *events.TurnEvent)
}

// SessionObserver is an optional extension of TurnObserver for lifecycle events
type SessionObserver interface {
	OnSession(event *events.SessionEvent)
}

// Config holds the per-session settings
type Config struct {
	DefaultModel  string
	Temperature   float64
	ListenTimeout time.Duration
	VoiceEnabled  bool
}

// Dependencies are the collaborators a session drives. Corrector and Observer may be nil;
// Stdin and Stdout default to the process streams.
type Dependencies struct {
	Catalog   ModelCatalog
	Input     SpeechInput
	Corrector TextCorrector
	Engine    ChatEngine
	Output    SpeechOutput
	Observer  TurnObserver
	Stdin     io.Reader
	Stdout    io.Writer
}

// Turn is the record of one listen-respond cycle
type Turn struct {
	Number    int
	Raw       string
	Corrected string
	Reply     string
	Spoken    string
	Outcome   events.Outcome
	Err       error
}

// Session is one conversation with a single model chosen at startup
type Session struct {
	id    string
	cfg   Config
	deps  Dependencies
	in    *bufio.Reader
	out   io.Writer
	model string
	state State
	turns int
}

// New creates a session
func New(cfg Config, deps Dependencies) (*Session, error) {
	if deps.Catalog == nil || deps.Input == nil || deps.Engine == nil {
		return nil, fmt.Errorf("catalog, speech input and chat engine are required")
	}
	if cfg.VoiceEnabled && deps.Output == nil {
		return nil, fmt.Errorf("speech output is required when voice is enabled")
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = FallbackModel
	}
	if cfg.ListenTimeout <= 0 {
		cfg.ListenTimeout = 10 * time.Second
	}

	stdin := deps.Stdin
	if stdin == nil {
		stdin = os.Stdin
	}
	stdout := deps.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}

	return &Session{
		id:   uuid.NewString(),
		cfg:  cfg,
		deps: deps,
		in:   bufio.NewReader(stdin),
		out:  stdout,
	}, nil
}

// ID returns the session identifier
func (s *Session) ID() string { return s.id }

// Model returns the selected model, empty before SelectModel
func (s *Session) Model() string { return s.model }

// State returns the current lifecycle state
func (s *Session) State() State { return s.state }

// Terminated reports whether the user has said goodbye
func (s *Session) Terminated() bool { return s.state == StateTerminated }

func (s *Session) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(s.out, format, args...)
}

// respond speaks text when voice is enabled and echoes it to the console
func (s *Session) respond(ctx context.Context, text string) {
	if s.cfg.VoiceEnabled {
		s.deps.Output.Speak(ctx, text)
	}
	s.printf("AI: %s\n", text)
}

// SelectModel runs the startup menu once. Later calls return the first choice.
func (s *Session) SelectModel(ctx context.Context) (string, error) {
	if s.model != "" {
		return s.model, nil
	}
	s.state = StateSelectingModel

	models, err := s.deps.Catalog.ListModels(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		logging.LogError(err, "Failed to list models", zap.String("component", "session"))
		models = nil
	}

	if len(models) == 0 {
		s.model = s.cfg.DefaultModel
		s.printf("No models found. Defaulting to %s\n", s.model)
		logging.LogModelOperation(s.model, "selected", zap.String("reason", "empty_catalog"))
		return s.model, nil
	}

	s.printf("Available models:\n")
	for i, m := range models {
		s.printf("%d. %s\n", i+1, m)
	}
	s.printf("%s", SelectionPrompt)

	line, err := s.readLine(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if !errors.Is(err, io.EOF) {
			logging.LogWarn("Failed to read model selection", zap.Error(err))
			line = ""
		}
	}

	model, ok := ResolveSelection(models, line)
	if !ok {
		s.printf("Using default model: %s\n", model)
	}
	s.model = model

	logging.LogModelOperation(s.model, "selected", zap.Bool("explicit", ok), zap.Int("available", len(models)))
	return s.model, nil
}

// readLine reads one line from the console or gives up when ctx is done.
// On cancellation the reading goroutine stays blocked until stdin closes.
func (s *Session) readLine(ctx context.Context) (string, error) {
	type result struct {
		line string
		err  error
	}

	done := make(chan result, 1)
	go func() {
		line, err := s.in.ReadString('\n')
		done <- result{line: line, err: err}
	}()

	select {
	case r := <-done:
		return r.line, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Greet speaks the opening line
func (s *Session) Greet(ctx context.Context) {
	s.state = StateGreeting
	s.respond(ctx, Greeting)
	s.state = StateAwaitingSpeech
}

// RunTurn performs one listen-respond cycle. The only errors returned are
// ErrNoModel and context cancellation; everything else becomes the turn's outcome.
func (s *Session) RunTurn(ctx context.Context) (Turn, error) {
	if s.model == "" {
		return Turn{}, ErrNoModel
	}
	if s.state == StateTerminated {
		return Turn{}, fmt.Errorf("session already terminated")
	}

	s.turns++
	turn := Turn{Number: s.turns}
	event := events.NewTurnEvent(s.id, s.turns, s.model)

	s.state = StateAwaitingSpeech
	raw, err := s.deps.Input.Listen(ctx, s.cfg.ListenTimeout)
	if err != nil {
		if ctx.Err() != nil {
			return turn, ctx.Err()
		}
		turn.Err = err
		if errors.Is(err, speech.ErrServiceUnreachable) {
			s.printf("%s\n", NoticeUnreachable)
			turn.Outcome = events.OutcomeServiceUnreachable
		} else {
			s.printf("%s\n", NoticeUnrecognized)
			turn.Outcome = events.OutcomeUnrecognized
		}
		turn.Spoken = RepeatPrompt
		s.respond(ctx, turn.Spoken)
		return s.finish(turn, event), nil
	}

	s.state = StateCorrecting
	turn.Raw = raw
	turn.Corrected = raw
	if s.deps.Corrector != nil {
		turn.Corrected = s.deps.Corrector.Correct(raw)
	}

	if strings.TrimSpace(turn.Corrected) == "" {
		turn.Outcome = events.OutcomeEmptyInput
		turn.Spoken = RepeatPrompt
		s.respond(ctx, turn.Spoken)
		return s.finish(turn, event), nil
	}
	s.printf("You: %s\n", turn.Corrected)

	if IsExitPhrase(turn.Corrected) {
		turn.Outcome = events.OutcomeExit
		turn.Spoken = Farewell
		s.respond(ctx, turn.Spoken)
		s.state = StateTerminated
		return s.finish(turn, event), nil
	}

	s.state = StateDispatching
	reply, err := s.deps.Engine.Chat(ctx, s.model, BuildPrompt(turn.Corrected), s.cfg.Temperature)
	if err != nil {
		if ctx.Err() != nil {
			return turn, ctx.Err()
		}
		logging.LogError(err, "Inference failed", zap.String("model", s.model), zap.Int("turn", turn.Number))
		turn.Err = err
		turn.Outcome = events.OutcomeInferenceFailed
		turn.Spoken = InferenceApology
	} else {
		turn.Reply = reply
		spoken, clarified := FilterReply(reply)
		turn.Spoken = spoken
		turn.Outcome = events.OutcomeReplied
		if clarified {
			turn.Outcome = events.OutcomeClarified
		}
	}

	s.state = StateSpeaking
	s.respond(ctx, turn.Spoken)
	s.state = StateAwaitingSpeech
	return s.finish(turn, event), nil
}

func (s *Session) finish(turn Turn, event *events.TurnEvent) Turn {
	if s.state != StateTerminated {
		s.state = StateAwaitingSpeech
	}

	event.SetResult(turn.Outcome, turn.Corrected, turn.Spoken)
	event.SetError(turn.Err)

	logging.LogTurn(s.id, turn.Number, string(turn.Outcome),
		zap.String("model", s.model),
		zap.Int64("processing_time_ms", event.ProcessingTime),
	)

	if s.deps.Observer != nil {
		s.deps.Observer.OnTurn(event)
	}
	return turn
}

func (s *Session) notifySession(eventType events.SessionEventType, reason string) {
	observer, ok := s.deps.Observer.(SessionObserver)
	if !ok {
		return
	}
	event := events.NewSessionEvent(s.id, eventType, s.model)
	event.Turns = s.turns
	event.Reason = reason
	observer.OnSession(event)
}

// Run repeats turns until an exit phrase is heard (returning nil) or ctx is done.
func (s *Session) Run(ctx context.Context) (err error) {
	if s.model == "" {
		return ErrNoModel
	}

	s.notifySession(events.SessionStarted, "")
	defer func() {
		reason := "exit_phrase"
		if err != nil {
			reason = err.Error()
		}
		s.notifySession(events.SessionEnded, reason)
	}()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := s.RunTurn(ctx); err != nil {
			return err
		}
		if s.Terminated() {
			return nil
		}
	}
}
