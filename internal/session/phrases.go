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
	"fmt"
	"strconv"
	"strings"
)

// Fixed utterances and console notices
const (
	FallbackModel = "llama3:latest"

	Greeting         = "Hello! I'm your AI assistant. Ask me anything."
	RepeatPrompt     = "Could you please repeat?"
	Farewell         = "Goodbye!"
	Clarification    = "I'm not quite sure about that. Could you rephrase?"
	InferenceApology = "Sorry, I'm having trouble reaching the language model right now."

	NoticeUnrecognized = "Sorry, I didn't catch that."
	NoticeUnreachable  = "Error connecting to speech service."

	SelectionPrompt = "Select a model by number (default 1): "

	promptTemplate = "Give a short, friendly, and clear response in English only. User: %s"
)

var (
	exitKeywords   = []string{"exit", "stop", "quit", "bye"}
	unclearMarkers = []string{"I'm not sure", "I don't know"}
)

// IsExitPhrase reports whether text contains an exit keyword anywhere, in any case
func IsExitPhrase(text string) bool {
	lower := strings.ToLower(text)
	for _, k := range exitKeywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

// BuildPrompt wraps the user's words in the fixed instruction
func BuildPrompt(text string) string {
	return fmt.Sprintf(promptTemplate, text)
}

// FilterReply swaps uncertain replies for the clarification sentence.
// The second result reports whether the swap happened.
func FilterReply(reply string) (string, bool) {
	for _, m := range unclearMarkers {
		if strings.Contains(reply, m) {
			return Clarification, true
		}
	}
	return reply, false
}

// ResolveSelection maps a 1-based menu entry to a model. Anything that is not
// an in-range number yields the first model and ok=false. models must not be empty.
func ResolveSelection(models []string, input string) (string, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil || n < 1 || n > len(models) {
		return models[0], false
	}
	return models[n-1], true
}
