// Package lifecycle drives a match report through its approval states:
// submission, peer validation, admin certification. State transitions are
// pure; their side effects are emitted as outbox events and executed by the
// controller afterwards.
package lifecycle

import "github.com/matchledger/matchledger/internal/chat"

// GameEvent is the sealed interface for events that drive the game FSM.
type GameEvent interface {
	// isGameEvent seals the interface to prevent external implementations.
	isGameEvent()
}

// Ensure all event types implement GameEvent.
func (ReportSubmitted) isGameEvent() {}
func (ReportRevised) isGameEvent()   {}
func (ReactionAdded) isGameEvent()   {}

// ReportSubmitted is sent when a new score command message arrives.
type ReportSubmitted struct {
	Msg chat.Message
}

// ReportRevised is sent when an existing score command message is edited.
type ReportRevised struct {
	Msg chat.Message
}

// ReactionAdded is sent when a user reacts to a score command message. Msg is
// the message reacted to, with its current content.
type ReactionAdded struct {
	Msg    chat.Message
	Emoji  string
	UserID string
}
