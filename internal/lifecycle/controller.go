package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/matchledger/matchledger/internal/chat"
	"github.com/matchledger/matchledger/internal/ledger"
	"github.com/matchledger/matchledger/internal/store"
)

// participantNotice is the direct message sent to every tagged participant
// when a report is recorded. The permalink is appended.
const participantNotice = "You've been tagged as having participated in a " +
	"League Match. Please validate this match's occurrence by adding a " +
	"Reaction emoji of your choice (:thumbsup: :rocket: :ok_hand:) to " +
	"this match report. "

// ControllerConfig bundles the controller's collaborators.
type ControllerConfig struct {
	// ChannelName is the only channel the controller listens to.
	ChannelName string

	// Env is the FSM environment shared by every game.
	Env *Environment

	// Store persists game records.
	Store store.GameStore

	// Ledger receives certified rows and operational error reports.
	Ledger ledger.Publisher

	// Messenger performs all outbound chat actions.
	Messenger chat.Messenger

	// Log is the controller's structured logger.
	Log *slog.Logger
}

// Controller receives chat events, derives the game's current state from its
// stored record, runs the FSM transition and executes the resulting side
// effects. One controller serves every game; per-game atomicity comes from
// the store.
type Controller struct {
	cfg ControllerConfig

	wg sync.WaitGroup
}

// NewController creates a lifecycle controller.
func NewController(cfg ControllerConfig) *Controller {
	return &Controller{cfg: cfg}
}

// Dispatch handles one chat event asynchronously. Panics and errors are
// routed through the controller's failure handler so a single poisoned event
// cannot take the daemon down.
//
// NOTE: This implements the chat.EventHandler interface.
func (c *Controller) Dispatch(ctx context.Context, ev chat.Event) {
	traceID := uuid.New().String()
	log := c.cfg.Log.With("trace_id", traceID)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		defer func() {
			if r := recover(); r != nil {
				c.reportFailure(ctx, log, fmt.Errorf(
					"panic handling %T: %v", ev, r,
				))
			}
		}()

		if err := c.HandleEvent(ctx, ev); err != nil {
			c.reportFailure(ctx, log, err)
		}
	}()
}

// Wait blocks until all in-flight event handlers have finished.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// HandleEvent handles one chat event synchronously.
func (c *Controller) HandleEvent(ctx context.Context, ev chat.Event) error {
	switch e := ev.(type) {
	case chat.MessageCreated:
		return c.handleMessage(ctx, e.Msg, false)

	case chat.MessageEdited:
		return c.handleMessage(ctx, e.New, true)

	case chat.ReactionAdded:
		return c.handleReaction(ctx, e)

	default:
		return fmt.Errorf("unknown chat event %T", ev)
	}
}

// handleMessage filters and dispatches new and edited messages.
func (c *Controller) handleMessage(ctx context.Context, msg chat.Message,
	revised bool) error {

	if msg.ChannelName != c.cfg.ChannelName {
		return nil
	}
	if msg.AuthorID == c.cfg.Messenger.BotUserID() {
		return nil
	}
	if !c.cfg.Env.Parser.IsScoreCommand(msg.Content) {
		return nil
	}

	var event GameEvent = ReportSubmitted{Msg: msg}
	if revised {
		event = ReportRevised{Msg: msg}
	}

	return c.processGameEvent(ctx, msg, event)
}

// handleReaction filters and dispatches reactions.
func (c *Controller) handleReaction(ctx context.Context,
	ev chat.ReactionAdded) error {

	if ev.Msg.ChannelName != c.cfg.ChannelName {
		return nil
	}

	// Reactions on non-report messages are noise; keep the channel clean
	// for the admins.
	if !c.cfg.Env.Parser.IsScoreCommand(ev.Msg.Content) {
		return c.cfg.Messenger.RemoveReaction(
			ctx, ev.Msg, ev.Emoji, ev.UserID,
		)
	}

	// The daemon's own certified marker must not feed back in.
	if ev.UserID == c.cfg.Messenger.BotUserID() {
		return nil
	}

	return c.processGameEvent(ctx, ev.Msg, ReactionAdded{
		Msg:    ev.Msg,
		Emoji:  ev.Emoji,
		UserID: ev.UserID,
	})
}

// processGameEvent derives the game's state from its stored record, runs the
// transition and executes the emitted side effects in order.
func (c *Controller) processGameEvent(ctx context.Context, msg chat.Message,
	event GameEvent) error {

	rec, err := c.cfg.Store.GameByMessage(ctx, msg.ID)
	if err != nil {
		return fmt.Errorf("load game %s: %w", msg.ID, err)
	}

	fsm := NewGameFSM(StateForRecord(rec), c.cfg.Env)
	fromState := fsm.CurrentState()

	effects, err := fsm.ProcessEvent(ctx, event)
	if err != nil {
		return fmt.Errorf("game %s: %w", msg.ID, err)
	}

	c.cfg.Log.DebugContext(
		ctx, "Game transition", "message_id", msg.ID,
		"from_state", fromState, "to_state", fsm.CurrentState(),
		"num_effects", len(effects),
	)

	return c.applyEffects(ctx, effects)
}

// applyEffects executes the side effects in emission order, stopping at the
// first failure.
func (c *Controller) applyEffects(ctx context.Context,
	effects []SideEffect) error {

	for _, effect := range effects {
		if err := c.apply(ctx, effect); err != nil {
			return fmt.Errorf("apply %T: %w", effect, err)
		}
	}

	return nil
}

// apply executes a single side effect.
func (c *Controller) apply(ctx context.Context, effect SideEffect) error {
	switch eff := effect.(type) {
	case ReplyToReporter:
		return c.cfg.Messenger.Reply(ctx, eff.Msg, eff.Text)

	case DeleteMessage:
		return c.cfg.Messenger.DeleteMessage(ctx, eff.Msg)

	case ClearReactions:
		return c.cfg.Messenger.ClearReactions(ctx, eff.Msg)

	case StripReaction:
		return c.cfg.Messenger.RemoveReaction(
			ctx, eff.Msg, eff.Emoji, eff.UserID,
		)

	case NotifyParticipant:
		// Undeliverable notifications are logged and skipped so one
		// closed inbox cannot block the rest of the roster.
		text := participantNotice + chat.Permalink(eff.Msg)
		err := c.cfg.Messenger.SendDirect(ctx, eff.UserID, text)
		if err != nil {
			c.cfg.Log.WarnContext(
				ctx, "Unable to notify participant",
				"user_id", eff.UserID, "err", err,
			)
		}

		return nil

	case InsertRecord:
		return c.cfg.Store.InsertGame(ctx, eff.Report, eff.ReporterID)

	case MarkValidated:
		_, err := c.cfg.Store.MarkValidated(ctx, eff.MessageID)
		return err

	case ClearRecord:
		return c.cfg.Store.Clear(ctx, eff.MessageID)

	case DeleteLedgerRow:
		return c.cfg.Ledger.DeleteRow(ctx, eff.MessageID)

	case CertifyGame:
		return c.certify(ctx, eff)

	default:
		return fmt.Errorf("unknown side effect %T", effect)
	}
}

// certify claims the certified flag and, only when this attempt is the one
// that flipped it, publishes the ledger row and marks the message. The claim
// runs first so concurrent certification attempts can never publish twice.
func (c *Controller) certify(ctx context.Context, eff CertifyGame) error {
	claimed, err := c.cfg.Store.MarkCertified(ctx, eff.Msg.ID)
	if err != nil {
		return fmt.Errorf("claim certification %s: %w", eff.Msg.ID, err)
	}
	if !claimed {
		c.cfg.Log.InfoContext(
			ctx, "Certification already claimed",
			"message_id", eff.Msg.ID,
		)

		return nil
	}

	name, err := c.cfg.Messenger.DisplayName(
		ctx, eff.Msg.GuildID, eff.CertifierID,
	)
	if err != nil {
		c.cfg.Log.WarnContext(
			ctx, "Unable to resolve certifier display name",
			"user_id", eff.CertifierID, "err", err,
		)
		name = eff.CertifierID
	}

	if err := c.cfg.Ledger.AppendRow(ctx, eff.Report, name); err != nil {
		return fmt.Errorf("publish row %s: %w", eff.Msg.ID, err)
	}

	return c.cfg.Messenger.AddReaction(
		ctx, eff.Msg, c.cfg.Env.CertifiedEmoji,
	)
}

// reportFailure is the controller's two-tier failure handler: the error is
// logged locally and forwarded to the ledger's best-effort error log.
func (c *Controller) reportFailure(ctx context.Context, log *slog.Logger,
	err error) {

	log.ErrorContext(ctx, "Event handling failed", "err", err)

	c.cfg.Ledger.ReportError(ctx, err.Error())
}
