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
	"bufio"
	_ "embed"
	"fmt"
	"io"
	"slices"
	"sort"
	"strconv"
	"strings"
	"sync"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"
)

//go:embed words.txt
var defaultWords string

// Entry is a known word and how common it is
type Entry struct {
	Word      string
	Frequency int
}

// Lexicon is a source of known words
type Lexicon interface {
	// Frequency returns 0 for unknown words
	Frequency(word string) (int, error)

	// Candidates returns known words within maxDistance edits of word, excluding word itself
	Candidates(word string, maxDistance int) ([]Entry, error)
}

// ParseWordList reads "word count" lines. Blank lines and lines starting with # are skipped;
// a missing count means 1.
func ParseWordList(r io.Reader) ([]Entry, error) {
	var entries []Entry

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		entry := Entry{Word: strings.ToLower(fields[0]), Frequency: 1}
		if len(fields) > 1 {
			count, err := strconv.Atoi(fields[1])
			if err != nil || count < 0 {
				return nil, fmt.Errorf("line %d: invalid count %q", lineNo, fields[1])
			}
			entry.Frequency = count
		}
		entries = append(entries, entry)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read word list: %w", err)
	}
	return entries, nil
}

var defaultEntries = sync.OnceValue(func() []Entry {
	entries, err := ParseWordList(strings.NewReader(defaultWords))
	if err != nil {
		panic(fmt.Sprintf("embedded word list is malformed: %v", err))
	}
	return entries
})

// DefaultWords returns the embedded US English word list. Counts come from
// general text, with conversational words weighted up.
func DefaultWords() []Entry {
	return slices.Clone(defaultEntries())
}

// FilterCandidates keeps entries within maxDistance edits of word, dropping word itself
func FilterCandidates(word string, maxDistance int, entries []Entry) []Entry {
	var out []Entry
	for _, e := range entries {
		if abs(len(e.Word)-len(word)) > maxDistance {
			continue
		}
		if d := fuzzy.EditDistance(word, e.Word); d > 0 && d <= maxDistance {
			out = append(out, e)
		}
	}
	return out
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// MemoryLexicon keeps the whole word list in a map
type MemoryLexicon struct {
	words   map[string]int
	entries []Entry
}

// NewMemoryLexicon builds a lexicon; repeated words keep the highest count
func NewMemoryLexicon(entries []Entry) *MemoryLexicon {
	words := make(map[string]int, len(entries))
	for _, e := range entries {
		w := strings.ToLower(e.Word)
		if f := max(e.Frequency, 1); f > words[w] {
			words[w] = f
		}
	}

	sorted := make([]Entry, 0, len(words))
	for w, f := range words {
		sorted = append(sorted, Entry{Word: w, Frequency: f})
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Word < sorted[j].Word })

	return &MemoryLexicon{words: words, entries: sorted}
}

// Frequency implements Lexicon
func (l *MemoryLexicon) Frequency(word string) (int, error) {
	return l.words[strings.ToLower(word)], nil
}

// Candidates implements Lexicon
func (l *MemoryLexicon) Candidates(word string, maxDistance int) ([]Entry, error) {
	return FilterCandidates(strings.ToLower(word), maxDistance, l.entries), nil
}

// Len returns the number of known words
func (l *MemoryLexicon) Len() int {
	return len(l.words)
}
