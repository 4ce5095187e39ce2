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

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultModel is the model used when the catalog is empty
const DefaultModel = "llama3:latest"

// Config holds all configuration for the assistant
type Config struct {
	Assistant AssistantConfig
	Ollama    OllamaConfig
	STT       STTConfig
	TTS       TTSConfig
	Audio     AudioConfig
	Speller   SpellerConfig
	Events    EventsConfig
	Logging   LoggingConfig
}

// AssistantConfig holds session loop settings
type AssistantConfig struct {
	DefaultModel  string
	Temperature   float64
	ListenTimeout time.Duration // Wait for speech onset
	VoiceEnabled  bool          // Speak replies aloud, otherwise print only
}

// OllamaConfig holds language model service configuration
type OllamaConfig struct {
	URL     string
	Timeout time.Duration // Zero means no timeout
}

// STTConfig holds Speech-to-Text configuration
type STTConfig struct {
	Backend          string // "http" or "whisper"
	URL              string // REST API URL for OpenAI-compatible STT service
	Language         string
	Model            string
	Timeout          time.Duration
	WhisperModelPath string
}

// TTSConfig holds Text-to-Speech service configuration
type TTSConfig struct {
	URL            string        // REST API URL for OpenAI-compatible TTS service
	Voice          string        // Default voice to use (e.g., "af_bella")
	Speed          float32       // Speech speed (1.0 = normal)
	ResponseFormat string        // Audio format (mp3, wav, opus, flac)
	Normalize      bool          // Enable text normalization
	Timeout        time.Duration // Request timeout
}

// AudioConfig holds microphone capture configuration
type AudioConfig struct {
	SampleRate          int
	FramesPerBuffer     int
	CalibrationDuration time.Duration
	PauseThreshold      time.Duration // Trailing silence that ends a phrase
	MaxPhraseDuration   time.Duration
	EnergyThreshold     float64 // Minimum RMS considered speech
	DynamicRatio        float64 // Multiplier over ambient RMS
}

// SpellerConfig holds spelling correction configuration
type SpellerConfig struct {
	Enabled        bool
	DBPath         string
	DictionaryPath string
}

// EventsConfig holds NATS turn event publishing configuration
type EventsConfig struct {
	Enabled       bool
	URL           string
	SubjectPrefix string
	MaxReconnect  int
	ReconnectWait time.Duration
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// Load loads configuration from environment variables with defaults
func Load() (*Config, error) {
	config := &Config{
		Assistant: AssistantConfig{
			DefaultModel:  getEnvString("ASSISTANT_DEFAULT_MODEL", DefaultModel),
			Temperature:   getEnvFloat64("ASSISTANT_TEMPERATURE", 0.6),
			ListenTimeout: getEnvDuration("ASSISTANT_LISTEN_TIMEOUT", 10*time.Second),
			VoiceEnabled:  getEnvBool("ASSISTANT_VOICE_ENABLED", true),
		},
		Ollama: OllamaConfig{
			URL:     getEnvString("OLLAMA_URL", "http://localhost:11434"),
			Timeout: getEnvDuration("OLLAMA_TIMEOUT", 0),
		},
		STT: STTConfig{
			Backend:          strings.ToLower(getEnvString("STT_BACKEND", "http")),
			URL:              getEnvString("STT_URL", "http://localhost:8000"),
			Language:         getEnvString("STT_LANGUAGE", "en"),
			Model:            getEnvString("STT_MODEL", "tiny"),
			Timeout:          getEnvDuration("STT_TIMEOUT", 30*time.Second),
			WhisperModelPath: getEnvString("WHISPER_MODEL_PATH", "./models/ggml-base.en.bin"),
		},
		TTS: TTSConfig{
			URL:            getEnvString("KOKORO_TTS_URL", "http://localhost:8880/v1"),
			Voice:          getEnvString("KOKORO_TTS_VOICE", "af_bella"),
			Speed:          getEnvFloat32("KOKORO_TTS_SPEED", 1.0),
			ResponseFormat: getEnvString("KOKORO_TTS_FORMAT", "mp3"),
			Normalize:      getEnvBool("KOKORO_TTS_NORMALIZE", true),
			Timeout:        getEnvDuration("KOKORO_TTS_TIMEOUT", 30*time.Second),
		},
		Audio: AudioConfig{
			SampleRate:          getEnvInt("AUDIO_SAMPLE_RATE", 16000),
			FramesPerBuffer:     getEnvInt("AUDIO_FRAMES_PER_BUFFER", 1024),
			CalibrationDuration: getEnvDuration("AUDIO_CALIBRATION_DURATION", time.Second),
			PauseThreshold:      getEnvDuration("AUDIO_PAUSE_THRESHOLD", 800*time.Millisecond),
			MaxPhraseDuration:   getEnvDuration("AUDIO_MAX_PHRASE_DURATION", 30*time.Second),
			EnergyThreshold:     getEnvFloat64("AUDIO_ENERGY_THRESHOLD", 0.01),
			DynamicRatio:        getEnvFloat64("AUDIO_DYNAMIC_RATIO", 1.5),
		},
		Speller: SpellerConfig{
			Enabled:        getEnvBool("SPELLER_ENABLED", true),
			DBPath:         getEnvString("SPELLER_DB_PATH", "./data/lexicon.db"),
			DictionaryPath: getEnvString("SPELLER_DICTIONARY_PATH", ""),
		},
		Events: EventsConfig{
			Enabled:       getEnvBool("ASSISTANT_EVENTS_ENABLED", false),
			URL:           getEnvString("NATS_URL", "nats://localhost:4222"),
			SubjectPrefix: getEnvString("NATS_SUBJECT_PREFIX", "loqa.assistant"),
			MaxReconnect:  getEnvInt("NATS_MAX_RECONNECT", 10),
			ReconnectWait: getEnvDuration("NATS_RECONNECT_WAIT", 2*time.Second),
		},
		Logging: LoggingConfig{
			Level:  getEnvString("LOG_LEVEL", "info"),
			Format: getEnvString("LOG_FORMAT", "console"),
		},
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// validate checks if the configuration is valid
func (c *Config) validate() error {
	if c.Assistant.DefaultModel == "" {
		return fmt.Errorf("default model must be provided")
	}

	if c.Assistant.Temperature < 0 || c.Assistant.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2: %f", c.Assistant.Temperature)
	}

	if c.Assistant.ListenTimeout <= 0 {
		return fmt.Errorf("listen timeout must be positive: %s", c.Assistant.ListenTimeout)
	}

	if c.Ollama.URL == "" {
		return fmt.Errorf("Ollama URL must be provided")
	}

	switch c.STT.Backend {
	case "http":
		if c.STT.URL == "" {
			return fmt.Errorf("STT URL must be provided")
		}
	case "whisper":
		if c.STT.WhisperModelPath == "" {
			return fmt.Errorf("whisper model path must be provided")
		}
	default:
		return fmt.Errorf("unknown STT backend: %q", c.STT.Backend)
	}

	if c.Assistant.VoiceEnabled {
		if c.TTS.URL == "" {
			return fmt.Errorf("TTS URL must be provided")
		}
		if c.TTS.Speed <= 0 {
			return fmt.Errorf("TTS speed must be positive: %f", c.TTS.Speed)
		}
	}

	if c.Audio.SampleRate <= 0 {
		return fmt.Errorf("invalid sample rate: %d", c.Audio.SampleRate)
	}

	if c.Audio.FramesPerBuffer <= 0 {
		return fmt.Errorf("invalid frames per buffer: %d", c.Audio.FramesPerBuffer)
	}

	if c.Audio.PauseThreshold <= 0 || c.Audio.MaxPhraseDuration <= 0 {
		return fmt.Errorf("pause threshold and max phrase duration must be positive")
	}

	if c.Speller.Enabled && c.Speller.DBPath == "" {
		return fmt.Errorf("speller database path must be provided")
	}

	if c.Events.Enabled && c.Events.URL == "" {
		return fmt.Errorf("NATS URL must be provided when events are enabled")
	}

	return nil
}

// Helper functions for environment variable parsing
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatValue)
		}
	}
	return defaultValue
}

func getEnvFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
