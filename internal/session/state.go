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

// State is the position of a session in its lifecycle
type State int

const (
	StateIdle State = iota
	StateSelectingModel
	StateGreeting
	StateAwaitingSpeech
	StateCorrecting
	StateDispatching
	StateSpeaking
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSelectingModel:
		return "selecting_model"
	case StateGreeting:
		return "greeting"
	case StateAwaitingSpeech:
		return "awaiting_speech"
	case StateCorrecting:
		return "correcting"
	case StateDispatching:
		return "dispatching"
	case StateSpeaking:
		return "speaking"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}
