package ledger

import (
	"context"
	"sync"

	"github.com/matchledger/matchledger/internal/report"
)

// AppendedRow is one recorded AppendRow call.
type AppendedRow struct {
	Report      report.Report
	CertifiedBy string
}

// RecordingPublisher is an in-memory Publisher for tests. It records every
// call and can be primed to fail.
type RecordingPublisher struct {
	mu sync.Mutex

	// AppendErr, when set, is returned from every AppendRow call.
	AppendErr error

	// DeleteErr, when set, is returned from every DeleteRow call.
	DeleteErr error

	appended []AppendedRow
	deleted  []string
	errors   []string
}

// NewRecordingPublisher creates an empty recording publisher.
func NewRecordingPublisher() *RecordingPublisher {
	return &RecordingPublisher{}
}

// AppendRow records the call.
//
// NOTE: This implements the Publisher interface.
func (r *RecordingPublisher) AppendRow(_ context.Context, rep *report.Report,
	certifiedBy string) error {

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.AppendErr != nil {
		return r.AppendErr
	}

	r.appended = append(r.appended, AppendedRow{
		Report:      *rep,
		CertifiedBy: certifiedBy,
	})

	return nil
}

// DeleteRow records the call.
//
// NOTE: This implements the Publisher interface.
func (r *RecordingPublisher) DeleteRow(_ context.Context,
	messageID string) error {

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.DeleteErr != nil {
		return r.DeleteErr
	}

	r.deleted = append(r.deleted, messageID)

	return nil
}

// ReportError records the call.
//
// NOTE: This implements the Publisher interface.
func (r *RecordingPublisher) ReportError(_ context.Context, detail string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.errors = append(r.errors, detail)
}

// Appended returns a copy of the recorded AppendRow calls.
func (r *RecordingPublisher) Appended() []AppendedRow {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]AppendedRow(nil), r.appended...)
}

// Deleted returns a copy of the recorded DeleteRow message ids.
func (r *RecordingPublisher) Deleted() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]string(nil), r.deleted...)
}

// Errors returns a copy of the recorded ReportError details.
func (r *RecordingPublisher) Errors() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]string(nil), r.errors...)
}

// Ensure RecordingPublisher implements Publisher at compile time.
var _ Publisher = (*RecordingPublisher)(nil)
