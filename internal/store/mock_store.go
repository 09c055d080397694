package store

import (
	"context"
	"sync"
	"time"

	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/matchledger/matchledger/internal/report"
)

// MockStore is an in-memory GameStore for tests. A single mutex around every
// operation provides the same per-key serializability the SQL implementation
// gets from its single-writer transactions.
type MockStore struct {
	mu sync.Mutex

	games map[string]GameRecord
}

// NewMockStore creates a new in-memory mock store.
func NewMockStore() *MockStore {
	return &MockStore{
		games: make(map[string]GameRecord),
	}
}

// GameByMessage returns a copy of the record, or None.
//
// NOTE: This implements the GameStore interface.
func (m *MockStore) GameByMessage(_ context.Context,
	messageID string) (fn.Option[GameRecord], error) {

	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.games[messageID]
	if !ok {
		return fn.None[GameRecord](), nil
	}

	rec.Fields = append([]report.Field(nil), rec.Fields...)

	return fn.Some(rec), nil
}

// InsertGame creates or replaces the record with both flags unset.
//
// NOTE: This implements the GameStore interface.
func (m *MockStore) InsertGame(_ context.Context, rep *report.Report,
	reporterID string) error {

	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	created := now
	if prev, ok := m.games[rep.MessageID]; ok {
		created = prev.CreatedAt
	}

	m.games[rep.MessageID] = GameRecord{
		MessageID:  rep.MessageID,
		ChannelID:  rep.ChannelID,
		GuildID:    rep.GuildID,
		ReporterID: reporterID,
		Fields:     append([]report.Field(nil), rep.Fields...),
		CreatedAt:  created,
		UpdatedAt:  now,
	}

	return nil
}

// MarkValidated sets the validated flag.
//
// NOTE: This implements the GameStore interface.
func (m *MockStore) MarkValidated(_ context.Context,
	messageID string) (bool, error) {

	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.games[messageID]
	if !ok || rec.Validated {
		return false, nil
	}

	rec.Validated = true
	rec.UpdatedAt = time.Now().UTC()
	m.games[messageID] = rec

	return true, nil
}

// MarkCertified claims the certified flag on a validated record.
//
// NOTE: This implements the GameStore interface.
func (m *MockStore) MarkCertified(_ context.Context,
	messageID string) (bool, error) {

	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.games[messageID]
	if !ok || !rec.Validated || rec.Certified {
		return false, nil
	}

	rec.Certified = true
	rec.UpdatedAt = time.Now().UTC()
	m.games[messageID] = rec

	return true, nil
}

// Clear deletes the record.
//
// NOTE: This implements the GameStore interface.
func (m *MockStore) Clear(_ context.Context, messageID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.games, messageID)

	return nil
}

// IsConsistent verifies the store's lifecycle invariant: certified implies
// validated. Used by property-based tests.
func (m *MockStore) IsConsistent() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, rec := range m.games {
		if rec.Certified && !rec.Validated {
			return false
		}
	}

	return true
}

// Len returns the number of stored records.
func (m *MockStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.games)
}

// Ensure MockStore implements GameStore at compile time.
var _ GameStore = (*MockStore)(nil)
