package lifecycle

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/matchledger/matchledger/internal/chat"
	"github.com/matchledger/matchledger/internal/ledger"
	"github.com/matchledger/matchledger/internal/store"
	"github.com/stretchr/testify/require"
)

// testHarness bundles a controller with its recording collaborators.
type testHarness struct {
	controller *Controller
	store      *store.MockStore
	messenger  *chat.RecordingMessenger
	ledger     *ledger.RecordingPublisher
}

// newTestHarness wires a controller against in-memory collaborators.
func newTestHarness(t *testing.T) *testHarness {
	t.Helper()

	mockStore := store.NewMockStore()
	messenger := chat.NewRecordingMessenger("bot-1")
	publisher := ledger.NewRecordingPublisher()

	controller := NewController(ControllerConfig{
		ChannelName: "match-reports",
		Env:         newTestEnv(),
		Store:       mockStore,
		Ledger:      publisher,
		Messenger:   messenger,
		Log:         slog.Default(),
	})

	return &testHarness{
		controller: controller,
		store:      mockStore,
		messenger:  messenger,
		ledger:     publisher,
	}
}

// submit delivers a MessageCreated event for the message.
func (h *testHarness) submit(t *testing.T, msg chat.Message) {
	t.Helper()

	err := h.controller.HandleEvent(
		context.Background(), chat.MessageCreated{Msg: msg},
	)
	require.NoError(t, err)
}

// react delivers a ReactionAdded event for the message.
func (h *testHarness) react(t *testing.T, msg chat.Message, emoji,
	userID string) {

	t.Helper()

	err := h.controller.HandleEvent(context.Background(), chat.ReactionAdded{
		Msg: msg, Emoji: emoji, UserID: userID,
	})
	require.NoError(t, err)
}

// edit delivers a MessageEdited event carrying the new content.
func (h *testHarness) edit(t *testing.T, old, updated chat.Message) {
	t.Helper()

	err := h.controller.HandleEvent(context.Background(), chat.MessageEdited{
		Old: old, New: updated,
	})
	require.NoError(t, err)
}

// record fetches the stored record for the message, requiring it to exist.
func (h *testHarness) record(t *testing.T, messageID string) store.GameRecord {
	t.Helper()

	rec, err := h.store.GameByMessage(context.Background(), messageID)
	require.NoError(t, err)
	require.True(t, rec.IsSome())

	return rec.UnwrapOr(store.GameRecord{})
}

// TestFullLifecycle walks a report from submission through validation to
// certification.
func TestFullLifecycle(t *testing.T) {
	h := newTestHarness(t)
	h.messenger.SetDisplayName(adminID, "Admin Alice")

	msg := testMessage(validContent)

	// Submission records the game and notifies the tagged peer.
	h.submit(t, msg)

	rec := h.record(t, msg.ID)
	require.False(t, rec.Validated)
	require.False(t, rec.Certified)

	require.Len(t, h.messenger.DirectMessages, 1)
	require.Equal(t, "200", h.messenger.DirectMessages[0].UserID)
	require.Contains(
		t, h.messenger.DirectMessages[0].Text, chat.Permalink(msg),
	)

	// Peer validation flips the flag and keeps the reaction.
	h.react(t, msg, "thumbsup", "200")

	rec = h.record(t, msg.ID)
	require.True(t, rec.Validated)
	require.Empty(t, h.messenger.RemovedReactions)

	// Admin certification publishes exactly one row and marks the
	// message.
	h.react(t, msg, testVerifyEmoji, adminID)

	rec = h.record(t, msg.ID)
	require.True(t, rec.Certified)

	appended := h.ledger.Appended()
	require.Len(t, appended, 1)
	require.Equal(t, "Admin Alice", appended[0].CertifiedBy)
	require.Equal(t, msg.ID, appended[0].Report.MessageID)

	require.Len(t, h.messenger.AddedReactions, 1)
	require.Equal(
		t, testCertifiedEmoji, h.messenger.AddedReactions[0].Emoji,
	)
}

// TestMalformedSubmission verifies a bad report is answered, deleted and not
// recorded.
func TestMalformedSubmission(t *testing.T) {
	h := newTestHarness(t)

	msg := testMessage("!score <@100> <@200> 7 kills")
	h.submit(t, msg)

	require.Equal(t, 0, h.store.Len())
	require.Len(t, h.messenger.Deleted, 1)

	require.Len(t, h.messenger.Replies, 1)
	reply := h.messenger.Replies[0].Text
	require.Contains(t, reply, msg.Content)
	require.Contains(t, reply, "Please repost the corrected score.")
}

// TestWrongChannelIgnored verifies events outside the configured channel do
// nothing.
func TestWrongChannelIgnored(t *testing.T) {
	h := newTestHarness(t)

	msg := testMessage(validContent)
	msg.ChannelName = "general"

	h.submit(t, msg)
	h.react(t, msg, "thumbsup", "200")

	require.Equal(t, 0, h.store.Len())
	require.Empty(t, h.messenger.Replies)
	require.Empty(t, h.messenger.RemovedReactions)
}

// TestReactionOnNonReportStripped verifies reactions on chatter messages in
// the reports channel are removed.
func TestReactionOnNonReportStripped(t *testing.T) {
	h := newTestHarness(t)

	msg := testMessage("gg well played")
	h.react(t, msg, "thumbsup", "200")

	require.Len(t, h.messenger.RemovedReactions, 1)
	require.Equal(t, "200", h.messenger.RemovedReactions[0].UserID)
}

// TestBotOwnReactionIgnored verifies the bot's certified marker does not feed
// back into the lifecycle.
func TestBotOwnReactionIgnored(t *testing.T) {
	h := newTestHarness(t)

	msg := testMessage(validContent)
	h.submit(t, msg)
	h.react(t, msg, testCertifiedEmoji, h.messenger.BotUserID())

	require.Empty(t, h.messenger.RemovedReactions)
}

// TestEditResetsValidation verifies editing a validated report clears the
// record, ledger row and reactions and starts over.
func TestEditResetsValidation(t *testing.T) {
	h := newTestHarness(t)

	msg := testMessage(validContent)
	h.submit(t, msg)
	h.react(t, msg, "thumbsup", "200")
	require.True(t, h.record(t, msg.ID).Validated)

	updated := msg
	updated.Content = "!score <@100> 3 kills <@300> 12 kills"
	h.edit(t, msg, updated)

	rec := h.record(t, msg.ID)
	require.False(t, rec.Validated)
	require.Equal(t, "300", rec.Fields[1].UserID)

	require.Equal(t, []string{msg.ID}, h.ledger.Deleted())
	require.Len(t, h.messenger.ClearedReactions, 1)

	// The newly tagged participant got a validation request.
	var notified []string
	for _, dm := range h.messenger.DirectMessages {
		notified = append(notified, dm.UserID)
	}
	require.Contains(t, notified, "300")
}

// TestEditCertifiedRefused verifies a certified report cannot be modified.
func TestEditCertifiedRefused(t *testing.T) {
	h := newTestHarness(t)

	msg := testMessage(validContent)
	h.submit(t, msg)
	h.react(t, msg, "thumbsup", "200")
	h.react(t, msg, testVerifyEmoji, adminID)
	require.True(t, h.record(t, msg.ID).Certified)

	updated := msg
	updated.Content = "!score <@100> 99 kills <@200> 0 kills"
	h.edit(t, msg, updated)

	// Record and ledger row survive untouched.
	rec := h.record(t, msg.ID)
	require.True(t, rec.Certified)
	require.Equal(t, "10 kills", rec.Fields[0].Stat)
	require.Empty(t, h.ledger.Deleted())

	lastReply := h.messenger.Replies[len(h.messenger.Replies)-1]
	require.Equal(t, certifiedImmutableReply, lastReply.Text)
}

// TestRecertifyDoesNotRepublish verifies a second admin verify reaction on a
// certified game appends nothing.
func TestRecertifyDoesNotRepublish(t *testing.T) {
	h := newTestHarness(t)

	msg := testMessage(validContent)
	h.submit(t, msg)
	h.react(t, msg, "thumbsup", "200")
	h.react(t, msg, testVerifyEmoji, adminID)
	require.Len(t, h.ledger.Appended(), 1)

	h.react(t, msg, testVerifyEmoji, adminID)

	require.Len(t, h.ledger.Appended(), 1)
	lastReply := h.messenger.Replies[len(h.messenger.Replies)-1]
	require.Equal(t, alreadyCertifiedReply, lastReply.Text)
}

// TestConcurrentCertifyPublishesOnce runs simultaneous admin certifications
// and checks exactly one ledger row appears.
func TestConcurrentCertifyPublishesOnce(t *testing.T) {
	h := newTestHarness(t)

	msg := testMessage(validContent)
	h.submit(t, msg)
	h.react(t, msg, "thumbsup", "200")

	const attempts = 8

	var wg sync.WaitGroup
	errs := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			errs <- h.controller.HandleEvent(
				context.Background(), chat.ReactionAdded{
					Msg:    msg,
					Emoji:  testVerifyEmoji,
					UserID: adminID,
				},
			)
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	require.Len(t, h.ledger.Appended(), 1)
	require.True(t, h.record(t, msg.ID).Certified)
}

// TestLedgerFailureReported verifies an append failure surfaces through the
// two-tier failure handler when dispatched asynchronously.
func TestLedgerFailureReported(t *testing.T) {
	h := newTestHarness(t)

	msg := testMessage(validContent)
	h.submit(t, msg)
	h.react(t, msg, "thumbsup", "200")

	h.ledger.AppendErr = errLedgerDown

	h.controller.Dispatch(context.Background(), chat.ReactionAdded{
		Msg: msg, Emoji: testVerifyEmoji, UserID: adminID,
	})
	h.controller.Wait()

	errs := h.ledger.Errors()
	require.Len(t, errs, 1)
	require.Contains(t, errs[0], errLedgerDown.Error())
}

// errLedgerDown is a sentinel for ledger outage tests.
var errLedgerDown = &ledgerDownError{}

type ledgerDownError struct{}

func (e *ledgerDownError) Error() string { return "ledger unavailable" }

// TestBigAdminSoloReport verifies a big admin may file a below-minimum,
// self-only report and have it certified.
func TestBigAdminSoloReport(t *testing.T) {
	h := newTestHarness(t)

	msg := testMessage("!score <@" + bigAdminID + "> 20 kills")
	msg.AuthorID = bigAdminID

	h.submit(t, msg)
	require.Equal(t, 1, h.store.Len())
	require.Empty(t, h.messenger.DirectMessages)

	// Their own reaction force-validates.
	h.react(t, msg, "rocket", bigAdminID)
	require.True(t, h.record(t, msg.ID).Validated)
}

// TestRegularSoloReportRejected verifies the same report from a regular user
// is refused.
func TestRegularSoloReportRejected(t *testing.T) {
	h := newTestHarness(t)

	msg := testMessage("!score <@100> 20 kills")
	h.submit(t, msg)

	require.Equal(t, 0, h.store.Len())
	require.Len(t, h.messenger.Deleted, 1)
	require.True(t, strings.Contains(
		h.messenger.Replies[0].Text,
		"Not enough tagged participants",
	))
}
