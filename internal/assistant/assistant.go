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

package assistant

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/loqalabs/loqa-assistant/internal/audio"
	"github.com/loqalabs/loqa-assistant/internal/config"
	"github.com/loqalabs/loqa-assistant/internal/llm"
	"github.com/loqalabs/loqa-assistant/internal/logging"
	"github.com/loqalabs/loqa-assistant/internal/messaging"
	"github.com/loqalabs/loqa-assistant/internal/session"
	"github.com/loqalabs/loqa-assistant/internal/speech"
	"github.com/loqalabs/loqa-assistant/internal/speller"
	"github.com/loqalabs/loqa-assistant/internal/storage"
	"go.uber.org/zap"
)

type closer struct {
	name  string
	close func() error
}

// Assistant owns the devices and service clients behind one session
type Assistant struct {
	cfg     *config.Config
	session *session.Session
	closers []closer
}

// New builds every collaborator from cfg. Optional parts (speller store, voice check,
// event publisher) degrade with a warning instead of failing.
func New(ctx context.Context, cfg *config.Config) (*Assistant, error) {
	a := &Assistant{cfg: cfg}

	ollama := llm.NewOllamaClient(cfg.Ollama.URL, cfg.Ollama.Timeout)
	if err := ollama.Ping(ctx); err != nil {
		logging.LogWarn("Ollama not reachable, model list will be empty", zap.Error(err), zap.String("url", cfg.Ollama.URL))
	}

	transcriber, err := NewTranscriber(cfg.STT)
	if err != nil {
		return nil, err
	}
	a.track("transcriber", transcriber.Close)
	if client, ok := transcriber.(*llm.STTClient); ok {
		if err := client.HealthCheck(ctx); err != nil {
			logging.LogWarn("STT service not reachable yet", zap.Error(err), zap.String("url", cfg.STT.URL))
		}
	}

	mic, err := audio.NewMicrophone(CaptureConfig(cfg.Audio))
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.track("microphone", mic.Close)

	corrector, closeCorrector := NewCorrector(ctx, cfg.Speller)
	if closeCorrector != nil {
		a.track("lexicon", closeCorrector)
	}

	deps := session.Dependencies{
		Catalog: ollama,
		Input:   speech.NewRecognizer(mic, transcriber, cfg.Audio.SampleRate),
		Engine:  ollama,
	}
	if corrector != nil {
		deps.Corrector = corrector
	}

	if cfg.Assistant.VoiceEnabled {
		tts, err := llm.NewOpenAITTSClient(cfg.TTS)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		a.track("tts", tts.Close)
		if err := tts.CheckVoice(ctx); err != nil {
			logging.LogWarn("TTS voice check failed, replies may be silent", zap.Error(err))
		}
		deps.Output = speech.NewVoice(tts, audio.NewPlayer())
	}

	if publisher := NewPublisher(cfg.Events); publisher != nil {
		a.track("events", publisher.Close)
		deps.Observer = publisher
	}

	a.session, err = session.New(session.Config{
		DefaultModel:  cfg.Assistant.DefaultModel,
		Temperature:   cfg.Assistant.Temperature,
		ListenTimeout: cfg.Assistant.ListenTimeout,
		VoiceEnabled:  cfg.Assistant.VoiceEnabled,
	}, deps)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	return a, nil
}

func (a *Assistant) track(name string, fn func() error) {
	a.closers = append(a.closers, closer{name: name, close: fn})
}

// Run selects the model, greets the user and converses until goodbye or ctx is done
func (a *Assistant) Run(ctx context.Context) error {
	model, err := a.session.SelectModel(ctx)
	if err != nil {
		return err
	}

	if logging.Sugar != nil {
		logging.Sugar.Infow("Session started",
			"session_id", a.session.ID(),
			"model", model,
			"voice", a.cfg.Assistant.VoiceEnabled,
		)
	}

	a.session.Greet(ctx)
	return a.session.Run(ctx)
}

// Close releases resources in reverse order of acquisition
func (a *Assistant) Close() error {
	var result *multierror.Error
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("close %s: %w", c.name, err))
		}
	}
	a.closers = nil
	return result.ErrorOrNil()
}

// NewTranscriber picks the speech-to-text backend
func NewTranscriber(cfg config.STTConfig) (llm.Transcriber, error) {
	switch cfg.Backend {
	case "", "http":
		return llm.NewSTTClient(cfg.URL, cfg.Language, cfg.Model, cfg.Timeout), nil
	case "whisper":
		return llm.NewWhisperTranscriber(cfg.WhisperModelPath, cfg.Language)
	default:
		return nil, fmt.Errorf("unknown STT backend %q", cfg.Backend)
	}
}

// CaptureConfig converts audio settings into microphone capture settings
func CaptureConfig(cfg config.AudioConfig) audio.CaptureConfig {
	return audio.CaptureConfig{
		SampleRate:          cfg.SampleRate,
		FramesPerBuffer:     cfg.FramesPerBuffer,
		CalibrationDuration: cfg.CalibrationDuration,
		PauseThreshold:      cfg.PauseThreshold,
		MaxPhraseDuration:   cfg.MaxPhraseDuration,
		EnergyThreshold:     cfg.EnergyThreshold,
		DynamicRatio:        cfg.DynamicRatio,
	}
}

// NewCorrector returns nil when spelling correction is disabled. The SQLite lexicon is
// preferred; if it cannot be opened or seeded the embedded list is used in memory.
func NewCorrector(ctx context.Context, cfg config.SpellerConfig) (*speller.Speller, func() error) {
	if !cfg.Enabled {
		return nil, nil
	}

	db, err := storage.NewDatabase(storage.DatabaseConfig{Path: cfg.DBPath})
	if err != nil {
		logging.LogWarn("Lexicon database unavailable, using in-memory word list", zap.Error(err))
		return speller.New(speller.NewMemoryLexicon(speller.DefaultWords())), nil
	}

	store := storage.NewLexiconStore(db)
	if err := store.Seed(ctx, cfg.DictionaryPath); err != nil {
		logging.LogWarn("Failed to seed lexicon", zap.Error(err))
		if count, cerr := store.Count(ctx); cerr != nil || count == 0 {
			_ = db.Close()
			return speller.New(speller.NewMemoryLexicon(speller.DefaultWords())), nil
		}
	}

	return speller.New(store), db.Close
}

// NewPublisher returns a connected publisher, or nil when events are disabled or NATS is down
func NewPublisher(cfg config.EventsConfig) *messaging.EventPublisher {
	if !cfg.Enabled {
		return nil
	}

	publisher := messaging.NewEventPublisher(messaging.PublisherConfig{
		URL:           cfg.URL,
		SubjectPrefix: cfg.SubjectPrefix,
		MaxReconnect:  cfg.MaxReconnect,
		ReconnectWait: cfg.ReconnectWait,
	})
	if err := publisher.Connect(); err != nil {
		logging.LogWarn("Turn events disabled", zap.Error(err))
		return nil
	}
	return publisher
}
