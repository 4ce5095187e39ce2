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

package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/loqalabs/loqa-assistant/internal/assistant"
	"github.com/loqalabs/loqa-assistant/internal/config"
	"github.com/loqalabs/loqa-assistant/internal/logging"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Warning: failed to load .env: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	if err := logging.InitializeWithConfig(logging.LogConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	}); err != nil {
		log.Fatalf("Failed to initialize logging: %v", err)
	}
	defer logging.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logging.Sugar.Infow("🚀 loqa-assistant starting",
		"ollama_url", cfg.Ollama.URL,
		"stt_backend", cfg.STT.Backend,
		"voice", cfg.Assistant.VoiceEnabled,
		"speller", cfg.Speller.Enabled,
		"events", cfg.Events.Enabled,
	)

	a, err := assistant.New(ctx, cfg)
	if err != nil {
		logging.LogError(err, "Failed to start assistant")
		logging.Close()
		os.Exit(1)
	}

	runErr := a.Run(ctx)
	if closeErr := a.Close(); closeErr != nil {
		logging.LogWarn("Errors during shutdown", zap.Error(closeErr))
	}

	switch {
	case runErr == nil:
		logging.Sugar.Info("👋 Session ended")
	case errors.Is(runErr, context.Canceled):
		logging.Sugar.Info("🛑 Interrupted, shutting down")
	default:
		logging.LogError(runErr, "Session failed")
		logging.Close()
		os.Exit(1)
	}
}
