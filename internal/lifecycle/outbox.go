package lifecycle

import (
	"github.com/matchledger/matchledger/internal/chat"
	"github.com/matchledger/matchledger/internal/report"
)

// SideEffect is the sealed interface for effects emitted by the game FSM.
// Transitions only describe effects; the controller executes them, in order,
// after the transition is decided.
type SideEffect interface {
	// isSideEffect seals the interface to prevent external
	// implementations.
	isSideEffect()
}

// Ensure all side effect types implement SideEffect.
func (ReplyToReporter) isSideEffect()   {}
func (DeleteMessage) isSideEffect()     {}
func (ClearReactions) isSideEffect()    {}
func (StripReaction) isSideEffect()     {}
func (NotifyParticipant) isSideEffect() {}
func (InsertRecord) isSideEffect()      {}
func (MarkValidated) isSideEffect()     {}
func (ClearRecord) isSideEffect()       {}
func (DeleteLedgerRow) isSideEffect()   {}
func (CertifyGame) isSideEffect()       {}

// ReplyToReporter posts a reply under the report message.
type ReplyToReporter struct {
	Msg  chat.Message
	Text string
}

// DeleteMessage removes the report message from the channel.
type DeleteMessage struct {
	Msg chat.Message
}

// ClearReactions removes every reaction from the report message.
type ClearReactions struct {
	Msg chat.Message
}

// StripReaction removes one user's reaction from the report message.
type StripReaction struct {
	Msg    chat.Message
	Emoji  string
	UserID string
}

// NotifyParticipant sends a tagged participant a direct message asking them
// to validate the report.
type NotifyParticipant struct {
	Msg    chat.Message
	UserID string
}

// InsertRecord persists a fresh unvalidated record for the parsed report.
type InsertRecord struct {
	Report     *report.Report
	ReporterID string
}

// MarkValidated sets the record's validated flag.
type MarkValidated struct {
	MessageID string
}

// ClearRecord deletes the record entirely.
type ClearRecord struct {
	MessageID string
}

// DeleteLedgerRow removes any previously published ledger row for the
// message.
type DeleteLedgerRow struct {
	MessageID string
}

// CertifyGame atomically claims the record's certified flag and, only when
// this attempt wins the claim, publishes the ledger row and marks the message
// with the certified emoji. Losing the claim is not an error: of any number
// of concurrent certification attempts exactly one publishes.
type CertifyGame struct {
	Report      *report.Report
	Msg         chat.Message
	CertifierID string
}
