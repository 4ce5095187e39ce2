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

package speller

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/loqalabs/loqa-assistant/internal/logging"
	"go.uber.org/zap"
)

const (
	minWordLength = 3
	// Two edits are only tried on words at least this long.
	longWordLength = 8
)

var wordPattern = regexp.MustCompile(`[A-Za-z']+`)

// Speller replaces misspelled words with the most frequent nearby known word
type Speller struct {
	lexicon Lexicon
}

// New creates a speller backed by lexicon
func New(lexicon Lexicon) *Speller {
	return &Speller{lexicon: lexicon}
}

// Correct returns text with unknown words corrected. Known words are never changed.
// Words shorter than eight letters are only corrected by a single edit.
// Punctuation and spacing are kept verbatim.
func (s *Speller) Correct(text string) string {
	return wordPattern.ReplaceAllStringFunc(text, s.correctWord)
}

func (s *Speller) correctWord(token string) string {
	if len(token) < minWordLength {
		return token
	}

	lower := strings.ToLower(token)
	known, err := s.isKnown(lower)
	if err != nil {
		logging.LogWarn("Lexicon lookup failed", zap.Error(err), zap.String("word", logging.SanitizeLogInput(token)))
		return token
	}
	if known {
		return token
	}

	maxDistance := 1
	if len(lower) >= longWordLength {
		maxDistance = 2
	}

	for distance := 1; distance <= maxDistance; distance++ {
		candidates, err := s.lexicon.Candidates(lower, distance)
		if err != nil {
			logging.LogWarn("Lexicon candidate lookup failed", zap.Error(err), zap.String("word", logging.SanitizeLogInput(token)))
			return token
		}
		if best, ok := pickBest(candidates); ok {
			return matchCase(token, best)
		}
	}

	return token
}

// isKnown accepts lexicon words and possessives of them
func (s *Speller) isKnown(word string) (bool, error) {
	freq, err := s.lexicon.Frequency(word)
	if err != nil || freq > 0 {
		return freq > 0, err
	}

	if stem, ok := strings.CutSuffix(word, "'s"); ok && stem != "" {
		freq, err = s.lexicon.Frequency(stem)
		return freq > 0, err
	}
	return false, nil
}

// pickBest prefers higher frequency, then alphabetical order
func pickBest(candidates []Entry) (string, bool) {
	if len(candidates) == 0 {
		return "", false
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.Frequency > best.Frequency || (c.Frequency == best.Frequency && c.Word < best.Word) {
			best = c
		}
	}
	return best.Word, true
}

// matchCase gives word the case shape of original: UPPER, Title or lower
func matchCase(original, word string) string {
	switch {
	case isUpper(original):
		return strings.ToUpper(word)
	case startsUpper(original):
		r, size := utf8.DecodeRuneInString(word)
		return string(unicode.ToUpper(r)) + word[size:]
	default:
		return word
	}
}

func isUpper(s string) bool {
	hasLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			hasLetter = true
			if !unicode.IsUpper(r) {
				return false
			}
		}
	}
	return hasLetter
}

func startsUpper(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return unicode.IsUpper(r)
}
