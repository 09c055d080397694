// Package ledger publishes certified match results to an external,
// append-only record keeper.
package ledger

import (
	"context"

	"github.com/matchledger/matchledger/internal/report"
)

// Publisher is the external ledger the daemon appends certified results to.
// Implementations are expected to be safe for concurrent use.
type Publisher interface {
	// AppendRow appends one certified result row. certifiedBy is the
	// display name of the certifying admin.
	AppendRow(ctx context.Context, rep *report.Report,
		certifiedBy string) error

	// DeleteRow removes any previously appended row for the message.
	// Deleting a row that was never appended is a no-op.
	DeleteRow(ctx context.Context, messageID string) error

	// ReportError forwards an operational failure to the ledger's error
	// log. It is strictly best effort: implementations swallow their own
	// failures so that error reporting can never recurse.
	ReportError(ctx context.Context, detail string)
}
