package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/matchledger/matchledger/internal/db"
	"github.com/matchledger/matchledger/internal/report"
)

// GameQueries is the set of SQL queries the store runs, bound to a single
// open transaction.
type GameQueries struct {
	tx *sql.Tx
}

// NewGameQueries binds the query set to a transaction.
func NewGameQueries(tx *sql.Tx) *GameQueries {
	return &GameQueries{tx: tx}
}

// GetGame fetches one record row by message id.
func (q *GameQueries) GetGame(ctx context.Context,
	messageID string) (GameRecord, error) {

	row := q.tx.QueryRowContext(ctx, `
		SELECT message_id, channel_id, guild_id, reporter_id,
		       fields_json, validated, certified, created_at, updated_at
		FROM games WHERE message_id = ?`, messageID,
	)

	var (
		rec        GameRecord
		fieldsJSON string
	)
	err := row.Scan(
		&rec.MessageID, &rec.ChannelID, &rec.GuildID, &rec.ReporterID,
		&fieldsJSON, &rec.Validated, &rec.Certified,
		&rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return GameRecord{}, err
	}

	if err := json.Unmarshal([]byte(fieldsJSON), &rec.Fields); err != nil {
		return GameRecord{}, fmt.Errorf("decode fields: %w", err)
	}

	return rec, nil
}

// UpsertGame inserts a fresh unvalidated record for the report, replacing
// any previous row for the same message.
func (q *GameQueries) UpsertGame(ctx context.Context, rep *report.Report,
	reporterID string) error {

	fieldsJSON, err := json.Marshal(rep.Fields)
	if err != nil {
		return fmt.Errorf("encode fields: %w", err)
	}

	_, err = q.tx.ExecContext(ctx, `
		INSERT INTO games (
			message_id, channel_id, guild_id, reporter_id,
			fields_json, validated, certified
		)
		VALUES (?, ?, ?, ?, ?, 0, 0)
		ON CONFLICT(message_id) DO UPDATE SET
			channel_id = excluded.channel_id,
			guild_id = excluded.guild_id,
			reporter_id = excluded.reporter_id,
			fields_json = excluded.fields_json,
			validated = 0,
			certified = 0,
			updated_at = CURRENT_TIMESTAMP`,
		rep.MessageID, rep.ChannelID, rep.GuildID, reporterID,
		string(fieldsJSON),
	)

	return err
}

// SetValidated flips the validated flag, reporting how many rows changed.
func (q *GameQueries) SetValidated(ctx context.Context,
	messageID string) (int64, error) {

	res, err := q.tx.ExecContext(ctx, `
		UPDATE games
		SET validated = 1, updated_at = CURRENT_TIMESTAMP
		WHERE message_id = ? AND validated = 0`, messageID,
	)
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}

// SetCertified flips the certified flag on a validated, not yet certified
// record, reporting how many rows changed. The WHERE guard is what makes
// concurrent certification attempts claim the flag exactly once.
func (q *GameQueries) SetCertified(ctx context.Context,
	messageID string) (int64, error) {

	res, err := q.tx.ExecContext(ctx, `
		UPDATE games
		SET certified = 1, updated_at = CURRENT_TIMESTAMP
		WHERE message_id = ? AND validated = 1 AND certified = 0`,
		messageID,
	)
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}

// DeleteGame removes the record row.
func (q *GameQueries) DeleteGame(ctx context.Context,
	messageID string) error {

	_, err := q.tx.ExecContext(
		ctx, `DELETE FROM games WHERE message_id = ?`, messageID,
	)

	return err
}

// SQLStore implements GameStore on SQLite through the retried transaction
// executor.
type SQLStore struct {
	txer *db.TransactionExecutor[*GameQueries]

	log *slog.Logger
}

// NewSQLStore creates a GameStore backed by the given querier.
func NewSQLStore(base db.BatchedQuerier, log *slog.Logger) *SQLStore {
	return &SQLStore{
		txer: db.NewTransactionExecutor(
			base, NewGameQueries, log,
		),
		log: log,
	}
}

// GameByMessage returns the record for the message, or None.
//
// NOTE: This implements the GameStore interface.
func (s *SQLStore) GameByMessage(ctx context.Context,
	messageID string) (fn.Option[GameRecord], error) {

	var result fn.Option[GameRecord]
	err := s.txer.ExecTx(ctx, db.ReadTxOption(), func(q *GameQueries) error {
		rec, err := q.GetGame(ctx, messageID)
		switch {
		case err == sql.ErrNoRows:
			result = fn.None[GameRecord]()
			return nil

		case err != nil:
			return err
		}

		result = fn.Some(rec)

		return nil
	})
	if err != nil {
		return fn.None[GameRecord](),
			fmt.Errorf("get game %s: %w", messageID, err)
	}

	return result, nil
}

// InsertGame creates or replaces the record for the report's message.
//
// NOTE: This implements the GameStore interface.
func (s *SQLStore) InsertGame(ctx context.Context, rep *report.Report,
	reporterID string) error {

	err := s.txer.ExecTx(ctx, db.WriteTxOption(), func(q *GameQueries) error {
		return q.UpsertGame(ctx, rep, reporterID)
	})
	if err != nil {
		return fmt.Errorf("insert game %s: %w", rep.MessageID, err)
	}

	return nil
}

// MarkValidated sets the validated flag, reporting whether this call changed
// the record.
//
// NOTE: This implements the GameStore interface.
func (s *SQLStore) MarkValidated(ctx context.Context,
	messageID string) (bool, error) {

	var changed bool
	err := s.txer.ExecTx(ctx, db.WriteTxOption(), func(q *GameQueries) error {
		n, err := q.SetValidated(ctx, messageID)
		if err != nil {
			return err
		}
		changed = n > 0

		return nil
	})
	if err != nil {
		return false, fmt.Errorf("validate game %s: %w", messageID, err)
	}

	return changed, nil
}

// MarkCertified claims the certified flag, reporting whether this call was
// the one that flipped it.
//
// NOTE: This implements the GameStore interface.
func (s *SQLStore) MarkCertified(ctx context.Context,
	messageID string) (bool, error) {

	var changed bool
	err := s.txer.ExecTx(ctx, db.WriteTxOption(), func(q *GameQueries) error {
		n, err := q.SetCertified(ctx, messageID)
		if err != nil {
			return err
		}
		changed = n > 0

		return nil
	})
	if err != nil {
		return false, fmt.Errorf("certify game %s: %w", messageID, err)
	}

	return changed, nil
}

// Clear deletes the record entirely.
//
// NOTE: This implements the GameStore interface.
func (s *SQLStore) Clear(ctx context.Context, messageID string) error {
	err := s.txer.ExecTx(ctx, db.WriteTxOption(), func(q *GameQueries) error {
		return q.DeleteGame(ctx, messageID)
	})
	if err != nil {
		return fmt.Errorf("clear game %s: %w", messageID, err)
	}

	return nil
}

// Ensure SQLStore implements GameStore at compile time.
var _ GameStore = (*SQLStore)(nil)
