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

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/loqalabs/loqa-assistant/internal/logging"
	"github.com/loqalabs/loqa-assistant/internal/speller"
	"go.uber.org/zap"
)

// LexiconStore serves speller lookups from the lexicon table
type LexiconStore struct {
	db *Database
}

// NewLexiconStore creates a lexicon store
func NewLexiconStore(db *Database) *LexiconStore {
	return &LexiconStore{db: db}
}

// Count returns the number of stored words
func (s *LexiconStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.DB().QueryRowContext(ctx, "SELECT COUNT(*) FROM lexicon").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count lexicon: %w", err)
	}
	return n, nil
}

// Upsert stores entries in one transaction. An existing word keeps the larger frequency.
func (s *LexiconStore) Upsert(ctx context.Context, entries []speller.Entry) error {
	tx, err := s.db.DB().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO lexicon (word, frequency, length) VALUES (?, ?, ?)
		ON CONFLICT(word) DO UPDATE SET frequency = MAX(frequency, excluded.frequency)`)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer func() {
		_ = stmt.Close()
	}()

	for _, e := range entries {
		word := strings.ToLower(strings.TrimSpace(e.Word))
		if word == "" {
			continue
		}
		if _, err := stmt.ExecContext(ctx, word, max(e.Frequency, 1), len(word)); err != nil {
			return fmt.Errorf("failed to store word %q: %w", word, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit lexicon: %w", err)
	}

	logging.LogDatabaseOperation("upsert", "lexicon", zap.Int("entries", len(entries)))
	return nil
}

// Seed loads the embedded word list when the table is empty, then merges the
// optional dictionary file at dictionaryPath.
func (s *LexiconStore) Seed(ctx context.Context, dictionaryPath string) error {
	count, err := s.Count(ctx)
	if err != nil {
		return err
	}
	if count == 0 {
		if err := s.Upsert(ctx, speller.DefaultWords()); err != nil {
			return fmt.Errorf("failed to seed lexicon: %w", err)
		}
	}

	if dictionaryPath == "" {
		return nil
	}

	f, err := os.Open(dictionaryPath)
	if err != nil {
		return fmt.Errorf("failed to open dictionary: %w", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			logging.LogWarn("Failed to close dictionary", zap.Error(err))
		}
	}()

	entries, err := speller.ParseWordList(f)
	if err != nil {
		return fmt.Errorf("failed to parse dictionary %s: %w", dictionaryPath, err)
	}
	return s.Upsert(ctx, entries)
}

// Frequency implements speller.Lexicon
func (s *LexiconStore) Frequency(word string) (int, error) {
	var freq int
	err := s.db.DB().QueryRow("SELECT frequency FROM lexicon WHERE word = ?", strings.ToLower(word)).Scan(&freq)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to look up %q: %w", word, err)
	}
	return freq, nil
}

// Candidates implements speller.Lexicon
func (s *LexiconStore) Candidates(word string, maxDistance int) ([]speller.Entry, error) {
	word = strings.ToLower(word)

	rows, err := s.db.DB().Query(
		"SELECT word, frequency FROM lexicon WHERE length BETWEEN ? AND ?",
		len(word)-maxDistance, len(word)+maxDistance,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query candidates: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var entries []speller.Entry
	for rows.Next() {
		var e speller.Entry
		if err := rows.Scan(&e.Word, &e.Frequency); err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read candidates: %w", err)
	}

	return speller.FilterCandidates(word, maxDistance, entries), nil
}
