package store

import (
	"context"
	"time"

	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/matchledger/matchledger/internal/report"
)

// GameRecord is one persisted match report, keyed by the source message id.
// The parsed fields are carried so a ledger row can be regenerated at
// certification time.
type GameRecord struct {
	// MessageID is the source chat message identifier, unique and stable
	// for the record's lifetime.
	MessageID string

	// ChannelID and GuildID locate the source message.
	ChannelID string
	GuildID   string

	// ReporterID is the user who filed the report.
	ReporterID string

	// Fields is the parsed participant field sequence.
	Fields []report.Field

	// Validated is set once a qualifying peer or big admin reaction
	// arrives.
	Validated bool

	// Certified is set once an admin certifies the validated report.
	// Certified implies Validated.
	Certified bool

	// CreatedAt and UpdatedAt are maintained by the store.
	CreatedAt time.Time
	UpdatedAt time.Time
}

// GameStore is the persistence contract the lifecycle controller consumes.
// All operations are keyed by message id and idempotent under retry; the
// implementation must provide at least per-key serializability so that
// concurrent transitions on the same message cannot interleave into an
// inconsistent composite state.
type GameStore interface {
	// GameByMessage returns the record for the message, or None when no
	// record exists.
	GameByMessage(ctx context.Context,
		messageID string) (fn.Option[GameRecord], error)

	// InsertGame creates (or replaces) the record for the report's
	// message with validated and certified unset.
	InsertGame(ctx context.Context, rep *report.Report,
		reporterID string) error

	// MarkValidated sets the validated flag. It returns true when this
	// call changed the record and false when the record was already
	// validated or absent.
	MarkValidated(ctx context.Context, messageID string) (bool, error)

	// MarkCertified sets the certified flag on a validated record. It
	// returns true only for the call that flipped the flag, so exactly
	// one of any number of concurrent certification attempts observes a
	// newly certified record.
	MarkCertified(ctx context.Context, messageID string) (bool, error)

	// Clear deletes the record entirely. Clearing an absent record is a
	// no-op.
	Clear(ctx context.Context, messageID string) error
}
