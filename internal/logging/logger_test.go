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

package logging

import (
	"errors"
	"os"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestInitialize(t *testing.T) {
	originalLevel := os.Getenv("LOG_LEVEL")
	originalFormat := os.Getenv("LOG_FORMAT")
	defer func() {
		_ = os.Setenv("LOG_LEVEL", originalLevel)
		_ = os.Setenv("LOG_FORMAT", originalFormat)
	}()

	tests := []struct {
		name      string
		logLevel  string
		logFormat string
	}{
		{name: "Default values"},
		{name: "Debug level JSON format", logLevel: "debug", logFormat: "json"},
		{name: "Warn level console format", logLevel: "warn", logFormat: "console"},
		{name: "Invalid format defaults to console", logLevel: "info", logFormat: "invalid"},
		{name: "Invalid level defaults to info", logLevel: "invalid", logFormat: "console"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.logLevel != "" {
				_ = os.Setenv("LOG_LEVEL", tt.logLevel)
			} else {
				_ = os.Unsetenv("LOG_LEVEL")
			}
			if tt.logFormat != "" {
				_ = os.Setenv("LOG_FORMAT", tt.logFormat)
			} else {
				_ = os.Unsetenv("LOG_FORMAT")
			}

			if err := Initialize(); err != nil {
				t.Fatalf("Initialize() unexpected error: %v", err)
			}

			if Logger == nil {
				t.Error("Logger should not be nil after initialization")
			}
			if Sugar == nil {
				t.Error("Sugar should not be nil after initialization")
			}

			Close()
		})
	}
}

func TestInitializeWithConfig_Level(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		t.Run(level, func(t *testing.T) {
			if err := InitializeWithConfig(LogConfig{Level: level, Format: "console"}); err != nil {
				t.Fatalf("Failed to initialize with level %s: %v", level, err)
			}
			defer Close()

			want, _ := zapcore.ParseLevel(level)
			if !Logger.Core().Enabled(want) {
				t.Errorf("level %s should be enabled", level)
			}
			if want > zapcore.DebugLevel && Logger.Core().Enabled(want-1) {
				t.Errorf("level below %s should be disabled", level)
			}
		})
	}
}

func fieldMap(entry observer.LoggedEntry) map[string]interface{} {
	fields := make(map[string]interface{})
	for _, field := range entry.Context {
		switch field.Type {
		case zapcore.StringType:
			fields[field.Key] = field.String
		case zapcore.Int64Type:
			fields[field.Key] = field.Integer
		case zapcore.ErrorType:
			fields[field.Key] = field.Interface
		}
	}
	return fields
}

func TestLoggingFunctions(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	Logger = zap.New(core)
	Sugar = Logger.Sugar()

	defer func() {
		Close()
		Logger = nil
		Sugar = nil
	}()

	t.Run("LogTurn", func(t *testing.T) {
		LogTurn("session-1", 3, "replied", zap.String("model", "llama3:latest"))

		logs := recorded.All()
		entry := logs[len(logs)-1]
		if entry.Message != "Turn completed" {
			t.Errorf("Expected message 'Turn completed', got %q", entry.Message)
		}

		fields := fieldMap(entry)
		if fields["component"] != "session" {
			t.Errorf("Expected component 'session', got %v", fields["component"])
		}
		if fields["session_id"] != "session-1" {
			t.Errorf("Expected session_id 'session-1', got %v", fields["session_id"])
		}
		if fields["turn"] != int64(3) {
			t.Errorf("Expected turn 3, got %v", fields["turn"])
		}
		if fields["outcome"] != "replied" {
			t.Errorf("Expected outcome 'replied', got %v", fields["outcome"])
		}
		if fields["model"] != "llama3:latest" {
			t.Errorf("Expected model 'llama3:latest', got %v", fields["model"])
		}
	})

	t.Run("LogSpeechOperation", func(t *testing.T) {
		LogSpeechOperation("output", "synthesize")

		logs := recorded.All()
		entry := logs[len(logs)-1]
		if entry.Level != zapcore.DebugLevel {
			t.Errorf("Expected debug level, got %v", entry.Level)
		}

		fields := fieldMap(entry)
		if fields["direction"] != "output" {
			t.Errorf("Expected direction 'output', got %v", fields["direction"])
		}
		if fields["operation"] != "synthesize" {
			t.Errorf("Expected operation 'synthesize', got %v", fields["operation"])
		}
	})

	t.Run("LogModelOperation", func(t *testing.T) {
		LogModelOperation("b:latest", "chat")

		logs := recorded.All()
		fields := fieldMap(logs[len(logs)-1])
		if fields["component"] != "llm" || fields["model"] != "b:latest" || fields["operation"] != "chat" {
			t.Errorf("Unexpected fields: %v", fields)
		}
	})

	t.Run("LogNATSEvent", func(t *testing.T) {
		LogNATSEvent("loqa.assistant.turns", "publish")

		logs := recorded.All()
		entry := logs[len(logs)-1]
		if entry.Message != "NATS event" {
			t.Errorf("Expected message 'NATS event', got %q", entry.Message)
		}
		if fieldMap(entry)["subject"] != "loqa.assistant.turns" {
			t.Errorf("Expected subject 'loqa.assistant.turns'")
		}
	})

	t.Run("LogError", func(t *testing.T) {
		LogError(errors.New("boom"), "Something failed")

		logs := recorded.All()
		entry := logs[len(logs)-1]
		if entry.Level != zapcore.ErrorLevel {
			t.Errorf("Expected error level, got %v", entry.Level)
		}
		if entry.Message != "Something failed" {
			t.Errorf("Expected message 'Something failed', got %q", entry.Message)
		}
		if _, ok := fieldMap(entry)["error"]; !ok {
			t.Error("Missing error field")
		}
	})

	t.Run("LogWarn", func(t *testing.T) {
		LogWarn("careful")

		logs := recorded.All()
		if logs[len(logs)-1].Level != zapcore.WarnLevel {
			t.Errorf("Expected warn level, got %v", logs[len(logs)-1].Level)
		}
	})
}

func TestLoggingFunctions_NilLogger(t *testing.T) {
	originalLogger := Logger
	originalSugar := Sugar
	defer func() {
		Logger = originalLogger
		Sugar = originalSugar
	}()

	Logger = nil
	Sugar = nil

	defer func() {
		if r := recover(); r != nil {
			t.Errorf("Function panicked with nil logger: %v", r)
		}
	}()

	LogTurn("s", 1, "replied")
	LogSpeechOperation("input", "listen")
	LogModelOperation("m", "chat")
	LogNATSEvent("subject", "action")
	LogDatabaseOperation("op", "table")
	LogError(errors.New("test"), "message")
	LogWarn("warning")
	Sync()
}

func TestSanitizeLogInput(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"hello", "hello"},
		{"line one\nline two", "line one line two"},
		{"fake\r\nINFO entry", "fake INFO entry"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := SanitizeLogInput(tt.input); got != tt.expected {
			t.Errorf("SanitizeLogInput(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestGetEnvOrDefault(t *testing.T) {
	t.Setenv("TEST_ENV_VAR", "env_value")
	if got := getEnvOrDefault("TEST_ENV_VAR", "default"); got != "env_value" {
		t.Errorf("getEnvOrDefault = %q, want %q", got, "env_value")
	}

	_ = os.Unsetenv("TEST_ENV_VAR_NOT_SET")
	if got := getEnvOrDefault("TEST_ENV_VAR_NOT_SET", "default"); got != "default" {
		t.Errorf("getEnvOrDefault = %q, want %q", got, "default")
	}
}
