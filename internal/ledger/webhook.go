package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/matchledger/matchledger/internal/report"
)

const (
	// DefaultTimeout bounds every outbound ledger call.
	DefaultTimeout = 10 * time.Second

	actionAppendRow   = "append_row"
	actionDeleteRow   = "delete_row"
	actionReportError = "report_error"
)

// webhookRequest is the JSON envelope posted to the webhook endpoint.
type webhookRequest struct {
	Action      string         `json:"action"`
	MessageID   string         `json:"message_id,omitempty"`
	CertifiedBy string         `json:"certified_by,omitempty"`
	Fields      []report.Field `json:"fields,omitempty"`
	Detail      string         `json:"detail,omitempty"`
}

// WebhookPublisher implements Publisher by posting JSON envelopes to a single
// HTTP endpoint.
type WebhookPublisher struct {
	url     string
	client  *http.Client
	timeout time.Duration

	log *slog.Logger
}

// NewWebhookPublisher creates a Publisher posting to the given URL. A
// non-positive timeout falls back to DefaultTimeout.
func NewWebhookPublisher(url string, timeout time.Duration,
	log *slog.Logger) *WebhookPublisher {

	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &WebhookPublisher{
		url:     url,
		client:  &http.Client{Timeout: timeout},
		timeout: timeout,
		log:     log,
	}
}

// AppendRow appends one certified result row.
//
// NOTE: This implements the Publisher interface.
func (w *WebhookPublisher) AppendRow(ctx context.Context, rep *report.Report,
	certifiedBy string) error {

	return w.post(ctx, &webhookRequest{
		Action:      actionAppendRow,
		MessageID:   rep.MessageID,
		CertifiedBy: certifiedBy,
		Fields:      rep.Fields,
	})
}

// DeleteRow removes any previously appended row for the message.
//
// NOTE: This implements the Publisher interface.
func (w *WebhookPublisher) DeleteRow(ctx context.Context,
	messageID string) error {

	return w.post(ctx, &webhookRequest{
		Action:    actionDeleteRow,
		MessageID: messageID,
	})
}

// ReportError forwards an operational failure to the ledger's error log,
// swallowing any delivery failure.
//
// NOTE: This implements the Publisher interface.
func (w *WebhookPublisher) ReportError(ctx context.Context, detail string) {
	err := w.post(ctx, &webhookRequest{
		Action: actionReportError,
		Detail: detail,
	})
	if err != nil {
		w.log.ErrorContext(
			ctx, "Unable to forward error to ledger", "err", err,
		)
	}
}

// post marshals and delivers one envelope, treating any non-2xx status as an
// error.
func (w *WebhookPublisher) post(ctx context.Context,
	req *webhookRequest) error {

	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode ledger request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(
		ctx, http.MethodPost, w.url, bytes.NewReader(payload),
	)
	if err != nil {
		return fmt.Errorf("build ledger request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("deliver ledger %s: %w", req.Action, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("ledger %s rejected: status %d", req.Action,
			resp.StatusCode)
	}

	return nil
}

// Ensure WebhookPublisher implements Publisher at compile time.
var _ Publisher = (*WebhookPublisher)(nil)

// LogPublisher implements Publisher by logging every call. It stands in when
// no webhook endpoint is configured.
type LogPublisher struct {
	log *slog.Logger
}

// NewLogPublisher creates a log-only Publisher.
func NewLogPublisher(log *slog.Logger) *LogPublisher {
	return &LogPublisher{log: log}
}

// AppendRow logs the would-be row.
//
// NOTE: This implements the Publisher interface.
func (l *LogPublisher) AppendRow(ctx context.Context, rep *report.Report,
	certifiedBy string) error {

	l.log.InfoContext(
		ctx, "Ledger append", "message_id", rep.MessageID,
		"certified_by", certifiedBy, "num_fields", len(rep.Fields),
	)

	return nil
}

// DeleteRow logs the would-be deletion.
//
// NOTE: This implements the Publisher interface.
func (l *LogPublisher) DeleteRow(ctx context.Context, messageID string) error {
	l.log.InfoContext(ctx, "Ledger delete", "message_id", messageID)

	return nil
}

// ReportError logs the forwarded failure.
//
// NOTE: This implements the Publisher interface.
func (l *LogPublisher) ReportError(ctx context.Context, detail string) {
	l.log.ErrorContext(ctx, "Ledger error report", "detail", detail)
}

// Ensure LogPublisher implements Publisher at compile time.
var _ Publisher = (*LogPublisher)(nil)
