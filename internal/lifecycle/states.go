package lifecycle

import (
	"context"
	"fmt"

	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/matchledger/matchledger/internal/chat"
	"github.com/matchledger/matchledger/internal/policy"
	"github.com/matchledger/matchledger/internal/report"
	"github.com/matchledger/matchledger/internal/store"
)

// GameState is the sealed interface for all game lifecycle states. Each state
// handles incoming events and returns state transitions with optional outbox
// events for side effects.
type GameState interface {
	// ProcessEvent handles an incoming event and returns the next state
	// along with any side effects to execute.
	ProcessEvent(ctx context.Context, event GameEvent,
		env *Environment) (*Transition, error)

	// IsTerminal returns true if this is a terminal state.
	IsTerminal() bool

	// String returns a human-readable name for the state.
	String() string

	// isGameState seals the interface.
	isGameState()
}

// Transition represents the result of processing an event.
type Transition struct {
	NextState    GameState
	OutboxEvents []SideEffect
}

// Environment provides the static collaborators state transitions consult.
// It carries no per-game data; the same environment serves every game.
type Environment struct {
	// Parser validates score command content.
	Parser *report.Parser

	// Policy answers admin and big-admin membership questions.
	Policy *policy.Policy

	// VerifyEmoji is the admin-only certification emoji.
	VerifyEmoji string

	// CertifiedEmoji marks a certified report. Reserved for the daemon.
	CertifiedEmoji string

	// ErrorEmoji marks a failed report. Reserved for the daemon.
	ErrorEmoji string
}

// Compile-time verification that all concrete states implement GameState.
var (
	_ GameState = (*StateAbsent)(nil)
	_ GameState = (*StateUnvalidated)(nil)
	_ GameState = (*StateValidated)(nil)
	_ GameState = (*StateCertified)(nil)
)

// certifiedImmutableReply is quoted back when anyone edits a certified
// report.
const certifiedImmutableReply = "Certified scores cannot be modified, " +
	"please contact an admin if you wish to edit the score"

// alreadyCertifiedReply is quoted back when an admin re-certifies.
const alreadyCertifiedReply = "Game is already certified"

// submitReport parses the message and produces the shared submission
// transition: a rejected report is answered and deleted, an accepted one is
// persisted and its participants are asked to validate. prior effects run
// first; they carry the cleanup a revision owes before resubmitting.
func submitReport(msg chat.Message, env *Environment,
	prior []SideEffect) (*Transition, error) {

	rep, err := env.Parser.Parse(msg)
	if err != nil {
		parseErr, ok := report.AsParseError(err)
		if !ok {
			return nil, fmt.Errorf("parse report %s: %w", msg.ID, err)
		}

		reply := fmt.Sprintf(
			"%s:\n%s\nPlease repost the corrected score.",
			parseErr.Error(), msg.Content,
		)

		return &Transition{
			NextState: &StateAbsent{},
			OutboxEvents: append(prior,
				ReplyToReporter{Msg: msg, Text: reply},
				DeleteMessage{Msg: msg},
			),
		}, nil
	}

	effects := append(prior, InsertRecord{
		Report:     rep,
		ReporterID: msg.AuthorID,
	})

	// Ask every tagged participant except the reporter to validate.
	for _, userID := range rep.Participants() {
		if env.Policy.IsSelfTag(msg.AuthorID, userID) {
			continue
		}

		effects = append(effects, NotifyParticipant{
			Msg:    msg,
			UserID: userID,
		})
	}

	return &Transition{
		NextState:    &StateUnvalidated{},
		OutboxEvents: effects,
	}, nil
}

// peerQualifies reports whether the reacting user's reaction counts as peer
// validation: big admins always qualify, everyone else must be tagged as a
// participant by the message's current content.
func peerQualifies(msg chat.Message, userID string, env *Environment) bool {
	if env.Policy.CanForceValidate(userID) {
		return true
	}

	rep, err := env.Parser.Parse(msg)
	if err != nil {
		return false
	}

	return rep.Tags(userID)
}

// stripTransition keeps the current state and removes the reaction.
func stripTransition(state GameState, e ReactionAdded) *Transition {
	return &Transition{
		NextState: state,
		OutboxEvents: []SideEffect{
			StripReaction{
				Msg:    e.Msg,
				Emoji:  e.Emoji,
				UserID: e.UserID,
			},
		},
	}
}

// isReservedEmoji reports whether the emoji is one the daemon sets itself.
func isReservedEmoji(emoji string, env *Environment) bool {
	return emoji == env.CertifiedEmoji || emoji == env.ErrorEmoji
}

// =============================================================================
// StateAbsent: No record exists for the message.
// =============================================================================

// StateAbsent is the state of any message without a stored record: brand new
// reports and reports whose last revision failed to parse.
type StateAbsent struct{}

// ProcessEvent handles events in the Absent state.
func (s *StateAbsent) ProcessEvent(_ context.Context, event GameEvent,
	env *Environment) (*Transition, error) {

	switch e := event.(type) {
	case ReportSubmitted:
		return submitReport(e.Msg, env, nil)

	case ReportRevised:
		// An edit with no surviving record is a fresh submission;
		// there is no ledger row or record to clean up.
		return submitReport(e.Msg, env, nil)

	case ReactionAdded:
		if isReservedEmoji(e.Emoji, env) {
			return stripTransition(s, e), nil
		}

		// The verify emoji means nothing without a record; strip it
		// for admins and non-admins alike.
		if e.Emoji == env.VerifyEmoji {
			return stripTransition(s, e), nil
		}

		// A qualifying peer reaction stays on the message even though
		// there is no record to validate yet.
		if peerQualifies(e.Msg, e.UserID, env) {
			return &Transition{NextState: s}, nil
		}

		return stripTransition(s, e), nil

	default:
		return nil, fmt.Errorf("unexpected event %T in state Absent",
			event)
	}
}

func (s *StateAbsent) IsTerminal() bool { return false }
func (s *StateAbsent) String() string   { return "absent" }
func (s *StateAbsent) isGameState()     {}

// =============================================================================
// StateUnvalidated: Recorded, waiting for peer validation.
// =============================================================================

// StateUnvalidated is a recorded report no peer has validated yet.
type StateUnvalidated struct{}

// ProcessEvent handles events in the Unvalidated state.
func (s *StateUnvalidated) ProcessEvent(_ context.Context, event GameEvent,
	env *Environment) (*Transition, error) {

	switch e := event.(type) {
	case ReportSubmitted, ReportRevised:
		return reviseReport(event, env)

	case ReactionAdded:
		if isReservedEmoji(e.Emoji, env) {
			return stripTransition(s, e), nil
		}

		if e.Emoji == env.VerifyEmoji {
			// Certification requires prior peer validation, so the
			// verify emoji is stripped here even for admins.
			return stripTransition(s, e), nil
		}

		if peerQualifies(e.Msg, e.UserID, env) {
			return &Transition{
				NextState: &StateValidated{},
				OutboxEvents: []SideEffect{
					MarkValidated{MessageID: e.Msg.ID},
				},
			}, nil
		}

		return stripTransition(s, e), nil

	default:
		return nil, fmt.Errorf(
			"unexpected event %T in state Unvalidated", event,
		)
	}
}

func (s *StateUnvalidated) IsTerminal() bool { return false }
func (s *StateUnvalidated) String() string   { return "unvalidated" }
func (s *StateUnvalidated) isGameState()     {}

// =============================================================================
// StateValidated: Peer validated, waiting for admin certification.
// =============================================================================

// StateValidated is a recorded report with at least one qualifying peer
// validation.
type StateValidated struct{}

// ProcessEvent handles events in the Validated state.
func (s *StateValidated) ProcessEvent(_ context.Context, event GameEvent,
	env *Environment) (*Transition, error) {

	switch e := event.(type) {
	case ReportSubmitted, ReportRevised:
		return reviseReport(event, env)

	case ReactionAdded:
		if isReservedEmoji(e.Emoji, env) {
			return stripTransition(s, e), nil
		}

		if e.Emoji == env.VerifyEmoji {
			if !env.Policy.CanCertify(e.UserID) {
				return stripTransition(s, e), nil
			}

			return certifyReport(e, env)
		}

		// Additional peer validations are welcome but change
		// nothing; the reaction stays on the message.
		if peerQualifies(e.Msg, e.UserID, env) {
			return &Transition{NextState: s}, nil
		}

		return stripTransition(s, e), nil

	default:
		return nil, fmt.Errorf(
			"unexpected event %T in state Validated", event,
		)
	}
}

func (s *StateValidated) IsTerminal() bool { return false }
func (s *StateValidated) String() string   { return "validated" }
func (s *StateValidated) isGameState()     {}

// certifyReport re-parses the message at certification time so that the
// published row always reflects the content the admin actually approved. A
// content drift that no longer parses cancels the certification.
func certifyReport(e ReactionAdded, env *Environment) (*Transition, error) {
	rep, err := env.Parser.Parse(e.Msg)
	if err != nil {
		parseErr, ok := report.AsParseError(err)
		if !ok {
			return nil, fmt.Errorf("parse report %s: %w",
				e.Msg.ID, err)
		}

		return &Transition{
			NextState: &StateValidated{},
			OutboxEvents: []SideEffect{
				StripReaction{
					Msg:    e.Msg,
					Emoji:  e.Emoji,
					UserID: e.UserID,
				},
				ReplyToReporter{
					Msg:  e.Msg,
					Text: parseErr.Error(),
				},
			},
		}, nil
	}

	return &Transition{
		NextState: &StateCertified{},
		OutboxEvents: []SideEffect{
			CertifyGame{
				Report:      rep,
				Msg:         e.Msg,
				CertifierID: e.UserID,
			},
		},
	}, nil
}

// reviseReport is the shared revision transition for live records: the stale
// ledger row, record and reactions are dropped, then the new content goes
// through the normal submission path.
func reviseReport(event GameEvent, env *Environment) (*Transition, error) {
	var msg chat.Message
	switch e := event.(type) {
	case ReportSubmitted:
		msg = e.Msg
	case ReportRevised:
		msg = e.Msg
	}

	cleanup := []SideEffect{
		DeleteLedgerRow{MessageID: msg.ID},
		ClearRecord{MessageID: msg.ID},
		ClearReactions{Msg: msg},
	}

	return submitReport(msg, env, cleanup)
}

// =============================================================================
// StateCertified: Published to the ledger. Terminal for non-admin flows.
// =============================================================================

// StateCertified is a certified, published report. Its content is immutable;
// edits are answered with a pointer to the admins.
type StateCertified struct{}

// ProcessEvent handles events in the Certified state.
func (s *StateCertified) ProcessEvent(_ context.Context, event GameEvent,
	env *Environment) (*Transition, error) {

	switch e := event.(type) {
	case ReportSubmitted, ReportRevised:
		var msg chat.Message
		switch ev := event.(type) {
		case ReportSubmitted:
			msg = ev.Msg
		case ReportRevised:
			msg = ev.Msg
		}

		return &Transition{
			NextState: s,
			OutboxEvents: []SideEffect{
				ReplyToReporter{
					Msg:  msg,
					Text: certifiedImmutableReply,
				},
			},
		}, nil

	case ReactionAdded:
		if isReservedEmoji(e.Emoji, env) {
			return stripTransition(s, e), nil
		}

		if e.Emoji == env.VerifyEmoji {
			if !env.Policy.CanCertify(e.UserID) {
				return stripTransition(s, e), nil
			}

			// Re-certification must not publish a second row; the
			// admin just gets told.
			return &Transition{
				NextState: s,
				OutboxEvents: []SideEffect{
					ReplyToReporter{
						Msg:  e.Msg,
						Text: alreadyCertifiedReply,
					},
				},
			}, nil
		}

		if peerQualifies(e.Msg, e.UserID, env) {
			return &Transition{NextState: s}, nil
		}

		return stripTransition(s, e), nil

	default:
		return nil, fmt.Errorf(
			"unexpected event %T in state Certified", event,
		)
	}
}

func (s *StateCertified) IsTerminal() bool { return true }
func (s *StateCertified) String() string   { return "certified" }
func (s *StateCertified) isGameState()     {}

// StateForRecord derives the lifecycle state from a stored record. The state
// is never persisted directly; the record's flags are the source of truth.
func StateForRecord(rec fn.Option[store.GameRecord]) GameState {
	if rec.IsNone() {
		return &StateAbsent{}
	}

	r := rec.UnwrapOr(store.GameRecord{})

	switch {
	case r.Certified:
		return &StateCertified{}
	case r.Validated:
		return &StateValidated{}
	default:
		return &StateUnvalidated{}
	}
}
