package lifecycle

import (
	"context"
	"testing"

	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/matchledger/matchledger/internal/chat"
	"github.com/matchledger/matchledger/internal/policy"
	"github.com/matchledger/matchledger/internal/report"
	"github.com/matchledger/matchledger/internal/store"
)

const (
	testVerifyEmoji    = "ballot_box_with_check"
	testCertifiedEmoji = "white_check_mark"
	testErrorEmoji     = "x"

	adminID    = "900"
	bigAdminID = "901"
)

// newTestEnv creates an FSM environment with one admin and one big admin.
func newTestEnv() *Environment {
	pol := policy.New([]string{adminID}, []string{bigAdminID})

	return &Environment{
		Parser:         report.NewParser([]string{"!score"}, 2, pol),
		Policy:         pol,
		VerifyEmoji:    testVerifyEmoji,
		CertifiedEmoji: testCertifiedEmoji,
		ErrorEmoji:     testErrorEmoji,
	}
}

// testMessage builds a report message with the given content, authored by
// user 100.
func testMessage(content string) chat.Message {
	return chat.Message{
		ID:          "msg-1",
		ChannelID:   "chan-1",
		ChannelName: "match-reports",
		GuildID:     "guild-1",
		AuthorID:    "100",
		AuthorName:  "Reporter",
		Content:     content,
	}
}

const validContent = "!score <@100> 10 kills <@200> 7 kills"

// assertHasEffect fails unless the effects contain one of type T, returning
// the first match.
func assertHasEffect[T SideEffect](t *testing.T, effects []SideEffect) T {
	t.Helper()

	for _, eff := range effects {
		if match, ok := eff.(T); ok {
			return match
		}
	}

	var zero T
	t.Fatalf("expected effect %T, got %v", zero, effects)
	return zero
}

// assertNoEffect fails if the effects contain one of type T.
func assertNoEffect[T SideEffect](t *testing.T, effects []SideEffect) {
	t.Helper()

	for _, eff := range effects {
		if _, ok := eff.(T); ok {
			t.Fatalf("unexpected effect %T in %v", eff, effects)
		}
	}
}

// TestSubmitValidReport tests absent → unvalidated on a clean submission.
func TestSubmitValidReport(t *testing.T) {
	ctx := context.Background()
	fsm := NewGameFSM(&StateAbsent{}, newTestEnv())

	effects, err := fsm.ProcessEvent(ctx, ReportSubmitted{
		Msg: testMessage(validContent),
	})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if fsm.CurrentState() != "unvalidated" {
		t.Fatalf("expected 'unvalidated', got %q", fsm.CurrentState())
	}

	rec := assertHasEffect[InsertRecord](t, effects)
	if len(rec.Report.Fields) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(rec.Report.Fields))
	}

	// Only the non-author participant is notified.
	notify := assertHasEffect[NotifyParticipant](t, effects)
	if notify.UserID != "200" {
		t.Fatalf("expected notification for 200, got %s", notify.UserID)
	}
	for _, eff := range effects {
		if n, ok := eff.(NotifyParticipant); ok && n.UserID == "100" {
			t.Fatal("author must not be notified")
		}
	}
}

// TestSubmitMalformedReport tests that a rejected submission is answered and
// the message deleted.
func TestSubmitMalformedReport(t *testing.T) {
	ctx := context.Background()
	fsm := NewGameFSM(&StateAbsent{}, newTestEnv())

	effects, err := fsm.ProcessEvent(ctx, ReportSubmitted{
		Msg: testMessage("!score <@100> <@200> 7 kills"),
	})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if fsm.CurrentState() != "absent" {
		t.Fatalf("expected 'absent', got %q", fsm.CurrentState())
	}

	reply := assertHasEffect[ReplyToReporter](t, effects)
	if reply.Text == "" {
		t.Fatal("expected a non-empty rejection reply")
	}
	assertHasEffect[DeleteMessage](t, effects)
	assertNoEffect[InsertRecord](t, effects)
}

// TestPeerValidation tests unvalidated → validated on a tagged participant's
// reaction.
func TestPeerValidation(t *testing.T) {
	ctx := context.Background()
	fsm := NewGameFSM(&StateUnvalidated{}, newTestEnv())

	effects, err := fsm.ProcessEvent(ctx, ReactionAdded{
		Msg:    testMessage(validContent),
		Emoji:  "thumbsup",
		UserID: "200",
	})
	if err != nil {
		t.Fatalf("reaction failed: %v", err)
	}
	if fsm.CurrentState() != "validated" {
		t.Fatalf("expected 'validated', got %q", fsm.CurrentState())
	}

	assertHasEffect[MarkValidated](t, effects)
	assertNoEffect[StripReaction](t, effects)
}

// TestUntaggedReactionStripped tests that a bystander's reaction is removed.
func TestUntaggedReactionStripped(t *testing.T) {
	ctx := context.Background()
	fsm := NewGameFSM(&StateUnvalidated{}, newTestEnv())

	effects, err := fsm.ProcessEvent(ctx, ReactionAdded{
		Msg:    testMessage(validContent),
		Emoji:  "thumbsup",
		UserID: "555",
	})
	if err != nil {
		t.Fatalf("reaction failed: %v", err)
	}
	if fsm.CurrentState() != "unvalidated" {
		t.Fatalf("expected 'unvalidated', got %q", fsm.CurrentState())
	}

	assertHasEffect[StripReaction](t, effects)
	assertNoEffect[MarkValidated](t, effects)
}

// TestBigAdminForceValidation tests that a big admin's reaction validates
// without being tagged.
func TestBigAdminForceValidation(t *testing.T) {
	ctx := context.Background()
	fsm := NewGameFSM(&StateUnvalidated{}, newTestEnv())

	effects, err := fsm.ProcessEvent(ctx, ReactionAdded{
		Msg:    testMessage(validContent),
		Emoji:  "rocket",
		UserID: bigAdminID,
	})
	if err != nil {
		t.Fatalf("reaction failed: %v", err)
	}
	if fsm.CurrentState() != "validated" {
		t.Fatalf("expected 'validated', got %q", fsm.CurrentState())
	}

	assertHasEffect[MarkValidated](t, effects)
}

// TestVerifyEmojiBeforeValidation tests that the verify emoji on an
// unvalidated report is stripped even for admins.
func TestVerifyEmojiBeforeValidation(t *testing.T) {
	ctx := context.Background()
	fsm := NewGameFSM(&StateUnvalidated{}, newTestEnv())

	effects, err := fsm.ProcessEvent(ctx, ReactionAdded{
		Msg:    testMessage(validContent),
		Emoji:  testVerifyEmoji,
		UserID: adminID,
	})
	if err != nil {
		t.Fatalf("reaction failed: %v", err)
	}
	if fsm.CurrentState() != "unvalidated" {
		t.Fatalf("expected 'unvalidated', got %q", fsm.CurrentState())
	}

	assertHasEffect[StripReaction](t, effects)
	assertNoEffect[CertifyGame](t, effects)
}

// TestAdminCertification tests validated → certified on an admin's verify
// reaction.
func TestAdminCertification(t *testing.T) {
	ctx := context.Background()
	fsm := NewGameFSM(&StateValidated{}, newTestEnv())

	effects, err := fsm.ProcessEvent(ctx, ReactionAdded{
		Msg:    testMessage(validContent),
		Emoji:  testVerifyEmoji,
		UserID: adminID,
	})
	if err != nil {
		t.Fatalf("reaction failed: %v", err)
	}
	if fsm.CurrentState() != "certified" {
		t.Fatalf("expected 'certified', got %q", fsm.CurrentState())
	}
	if !fsm.IsTerminal() {
		t.Fatal("certified state should be terminal")
	}

	certify := assertHasEffect[CertifyGame](t, effects)
	if certify.CertifierID != adminID {
		t.Fatalf("expected certifier %s, got %s", adminID,
			certify.CertifierID)
	}
	if len(certify.Report.Fields) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(certify.Report.Fields))
	}
}

// TestNonAdminVerifyStripped tests that non-admin verify reactions are
// removed in the validated state.
func TestNonAdminVerifyStripped(t *testing.T) {
	ctx := context.Background()
	fsm := NewGameFSM(&StateValidated{}, newTestEnv())

	effects, err := fsm.ProcessEvent(ctx, ReactionAdded{
		Msg:    testMessage(validContent),
		Emoji:  testVerifyEmoji,
		UserID: "200",
	})
	if err != nil {
		t.Fatalf("reaction failed: %v", err)
	}
	if fsm.CurrentState() != "validated" {
		t.Fatalf("expected 'validated', got %q", fsm.CurrentState())
	}

	assertHasEffect[StripReaction](t, effects)
	assertNoEffect[CertifyGame](t, effects)
}

// TestCertifyDriftedContent tests that certification re-parses and cancels
// when the content no longer parses.
func TestCertifyDriftedContent(t *testing.T) {
	ctx := context.Background()
	fsm := NewGameFSM(&StateValidated{}, newTestEnv())

	effects, err := fsm.ProcessEvent(ctx, ReactionAdded{
		Msg:    testMessage("!score <@100>"),
		Emoji:  testVerifyEmoji,
		UserID: adminID,
	})
	if err != nil {
		t.Fatalf("reaction failed: %v", err)
	}
	if fsm.CurrentState() != "validated" {
		t.Fatalf("expected 'validated', got %q", fsm.CurrentState())
	}

	assertHasEffect[StripReaction](t, effects)
	assertHasEffect[ReplyToReporter](t, effects)
	assertNoEffect[CertifyGame](t, effects)
}

// TestRevisionResetsLifecycle tests that editing a validated report drops the
// ledger row, record and reactions before resubmitting.
func TestRevisionResetsLifecycle(t *testing.T) {
	ctx := context.Background()
	fsm := NewGameFSM(&StateValidated{}, newTestEnv())

	effects, err := fsm.ProcessEvent(ctx, ReportRevised{
		Msg: testMessage(validContent),
	})
	if err != nil {
		t.Fatalf("revise failed: %v", err)
	}
	if fsm.CurrentState() != "unvalidated" {
		t.Fatalf("expected 'unvalidated', got %q", fsm.CurrentState())
	}

	assertHasEffect[DeleteLedgerRow](t, effects)
	assertHasEffect[ClearRecord](t, effects)
	assertHasEffect[ClearReactions](t, effects)
	assertHasEffect[InsertRecord](t, effects)
}

// TestRevisionToMalformed tests that editing a live report into garbage
// clears everything and deletes the message.
func TestRevisionToMalformed(t *testing.T) {
	ctx := context.Background()
	fsm := NewGameFSM(&StateUnvalidated{}, newTestEnv())

	effects, err := fsm.ProcessEvent(ctx, ReportRevised{
		Msg: testMessage("!score <@100> only me"),
	})
	if err != nil {
		t.Fatalf("revise failed: %v", err)
	}
	if fsm.CurrentState() != "absent" {
		t.Fatalf("expected 'absent', got %q", fsm.CurrentState())
	}

	assertHasEffect[DeleteLedgerRow](t, effects)
	assertHasEffect[ClearRecord](t, effects)
	assertHasEffect[ReplyToReporter](t, effects)
	assertHasEffect[DeleteMessage](t, effects)
	assertNoEffect[InsertRecord](t, effects)
}

// TestCertifiedIsImmutable tests that edits to a certified report only get a
// reply.
func TestCertifiedIsImmutable(t *testing.T) {
	ctx := context.Background()
	fsm := NewGameFSM(&StateCertified{}, newTestEnv())

	effects, err := fsm.ProcessEvent(ctx, ReportRevised{
		Msg: testMessage(validContent),
	})
	if err != nil {
		t.Fatalf("revise failed: %v", err)
	}
	if fsm.CurrentState() != "certified" {
		t.Fatalf("expected 'certified', got %q", fsm.CurrentState())
	}

	reply := assertHasEffect[ReplyToReporter](t, effects)
	if reply.Text != certifiedImmutableReply {
		t.Fatalf("unexpected reply %q", reply.Text)
	}
	assertNoEffect[ClearRecord](t, effects)
	assertNoEffect[DeleteLedgerRow](t, effects)
}

// TestRecertifyAnswered tests that an admin verify reaction on a certified
// report gets a reply instead of a second publication.
func TestRecertifyAnswered(t *testing.T) {
	ctx := context.Background()
	fsm := NewGameFSM(&StateCertified{}, newTestEnv())

	effects, err := fsm.ProcessEvent(ctx, ReactionAdded{
		Msg:    testMessage(validContent),
		Emoji:  testVerifyEmoji,
		UserID: adminID,
	})
	if err != nil {
		t.Fatalf("reaction failed: %v", err)
	}
	if fsm.CurrentState() != "certified" {
		t.Fatalf("expected 'certified', got %q", fsm.CurrentState())
	}

	reply := assertHasEffect[ReplyToReporter](t, effects)
	if reply.Text != alreadyCertifiedReply {
		t.Fatalf("unexpected reply %q", reply.Text)
	}
	assertNoEffect[CertifyGame](t, effects)
	assertNoEffect[StripReaction](t, effects)
}

// TestReservedEmojiStripped tests that user-added certified and error emoji
// are removed in every state.
func TestReservedEmojiStripped(t *testing.T) {
	ctx := context.Background()

	states := []GameState{
		&StateAbsent{}, &StateUnvalidated{},
		&StateValidated{}, &StateCertified{},
	}
	for _, state := range states {
		for _, emoji := range []string{
			testCertifiedEmoji, testErrorEmoji,
		} {
			fsm := NewGameFSM(state, newTestEnv())

			effects, err := fsm.ProcessEvent(ctx, ReactionAdded{
				Msg:    testMessage(validContent),
				Emoji:  emoji,
				UserID: "200",
			})
			if err != nil {
				t.Fatalf("state %s emoji %s: %v",
					state, emoji, err)
			}
			if fsm.CurrentState() != state.String() {
				t.Fatalf("state %s changed to %s",
					state, fsm.CurrentState())
			}

			assertHasEffect[StripReaction](t, effects)
		}
	}
}

// TestAbsentPeerReactionKept tests that a qualifying reaction on a message
// without a record stays put and changes nothing.
func TestAbsentPeerReactionKept(t *testing.T) {
	ctx := context.Background()
	fsm := NewGameFSM(&StateAbsent{}, newTestEnv())

	effects, err := fsm.ProcessEvent(ctx, ReactionAdded{
		Msg:    testMessage(validContent),
		Emoji:  "thumbsup",
		UserID: "200",
	})
	if err != nil {
		t.Fatalf("reaction failed: %v", err)
	}
	if fsm.CurrentState() != "absent" {
		t.Fatalf("expected 'absent', got %q", fsm.CurrentState())
	}
	if len(effects) != 0 {
		t.Fatalf("expected no effects, got %v", effects)
	}
}

// stateForFlags derives a state from record flags.
func stateForFlags(validated, certified bool) GameState {
	return StateForRecord(fn.Some(store.GameRecord{
		Validated: validated,
		Certified: certified,
	}))
}

// TestStateForRecord tests the record to state derivation.
func TestStateForRecord(t *testing.T) {
	if StateForRecord(fn.None[store.GameRecord]()).String() != "absent" {
		t.Fatal("missing record should derive the absent state")
	}

	cases := []struct {
		name      string
		validated bool
		certified bool
		want      string
	}{
		{name: "fresh", want: "unvalidated"},
		{name: "validated", validated: true, want: "validated"},
		{
			name: "certified", validated: true, certified: true,
			want: "certified",
		},
	}
	for _, tc := range cases {
		state := stateForFlags(tc.validated, tc.certified)
		if state.String() != tc.want {
			t.Fatalf("%s: expected %q, got %q", tc.name, tc.want,
				state.String())
		}
	}
}
