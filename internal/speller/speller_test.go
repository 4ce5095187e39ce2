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
	"errors"
	"strings"
	"testing"
)

func testLexicon() *MemoryLexicon {
	return NewMemoryLexicon([]Entry{
		{"hello", 500},
		{"what", 900},
		{"weather", 300},
		{"whether", 100},
		{"time", 800},
		{"tame", 50},
		{"exit", 200},
		{"stop", 200},
		{"quit", 200},
		{"bye", 200},
		{"cat", 10},
		{"cot", 10},
		{"don't", 400},
		{"please", 150},
		{"now", 600},
		{"there", 700},
		{"is", 1000},
		{"it", 1000},
		{"definitely", 300},
	})
}

func TestSpeller_Correct(t *testing.T) {
	s := New(testLexicon())

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"Known words untouched", "what time", "what time"},
		{"Single edit", "helo", "hello"},
		{"Frequency wins", "weathr", "weather"},
		{"One edit on short words", "wheathr", "wheathr"},
		{"Two edits on long words", "definatly", "definitely"},
		{"Possessive of known word", "Hello's there", "Hello's there"},
		{"Title case kept", "Helo there!", "Hello there!"},
		{"Upper case kept", "HELO", "HELLO"},
		{"Punctuation kept", "helo,  what  time?", "hello,  what  time?"},
		{"Short words kept", "xy hi", "xy hi"},
		{"No candidate kept", "zzzzzzzz", "zzzzzzzz"},
		{"Tie broken alphabetically", "cxt", "cat"},
		{"Apostrophes", "dont't", "don't"},
		{"Empty", "", ""},
		{"Whitespace only", "   ", "   "},
		{"Exit words survive", "please EXIT now", "please EXIT now"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.Correct(tt.input); got != tt.want {
				t.Errorf("Correct(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSpeller_DefaultWords_KeepsRealWords(t *testing.T) {
	s := New(NewMemoryLexicon(DefaultWords()))

	inputs := []string{
		"give me a quiz",
		"does god exist",
		"what is the stock price",
		"how many bytes in a kilobyte",
		"tell me a joke about Paris",
		"is god's love real",
	}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			if got := s.Correct(input); got != input {
				t.Errorf("Correct(%q) = %q, want unchanged", input, got)
			}
		})
	}
}

func TestSpeller_DefaultWords_FixesTypos(t *testing.T) {
	s := New(NewMemoryLexicon(DefaultWords()))

	tests := []struct {
		input string
		want  string
	}{
		{"what's the wether tomorow", "what's the weather tomorrow"},
		{"definately", "definitely"},
		{"I want to quitt", "I want to quit"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := s.Correct(tt.input); got != tt.want {
				t.Errorf("Correct(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSpeller_Correct_Idempotent(t *testing.T) {
	s := New(testLexicon())
	for _, input := range []string{"helo wrld", "What tme is it", "stpo"} {
		once := s.Correct(input)
		if twice := s.Correct(once); twice != once {
			t.Errorf("Correct not stable for %q: %q then %q", input, once, twice)
		}
	}
}

type failingLexicon struct{}

func (failingLexicon) Frequency(string) (int, error) { return 0, errors.New("database is locked") }
func (failingLexicon) Candidates(string, int) ([]Entry, error) {
	return nil, errors.New("database is locked")
}

func TestSpeller_Correct_LexiconErrors(t *testing.T) {
	s := New(failingLexicon{})
	if got := s.Correct("helo wrld"); got != "helo wrld" {
		t.Errorf("Correct() = %q, want input unchanged on lexicon failure", got)
	}
}

func TestParseWordList(t *testing.T) {
	input := `# comment
hello 10

World 5
lonely
`
	entries, err := ParseWordList(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseWordList() error = %v", err)
	}

	want := []Entry{{"hello", 10}, {"world", 5}, {"lonely", 1}}
	if len(entries) != len(want) {
		t.Fatalf("got %d entries, want %d", len(entries), len(want))
	}
	for i := range want {
		if entries[i] != want[i] {
			t.Errorf("entries[%d] = %+v, want %+v", i, entries[i], want[i])
		}
	}

	if _, err := ParseWordList(strings.NewReader("hello many")); err == nil {
		t.Error("Expected error for non-numeric count")
	}
}

func TestDefaultWords(t *testing.T) {
	lex := NewMemoryLexicon(DefaultWords())
	if lex.Len() < 50000 {
		t.Errorf("embedded list has %d words, expected a full vocabulary", lex.Len())
	}

	for _, w := range []string{"exit", "stop", "quit", "bye", "hello", "weather", "quiz", "exist", "stock"} {
		if f, _ := lex.Frequency(w); f == 0 {
			t.Errorf("embedded list is missing %q", w)
		}
	}
}

func TestFilterCandidates(t *testing.T) {
	entries := []Entry{{"cat", 1}, {"cart", 1}, {"dog", 1}, {"cat", 1}}

	got := FilterCandidates("cat", 1, entries)
	if len(got) != 1 || got[0].Word != "cart" {
		t.Errorf("FilterCandidates() = %+v, want [cart]", got)
	}
}
