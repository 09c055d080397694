package chat

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// EventHandler consumes chat events. The lifecycle controller implements it.
type EventHandler interface {
	// Dispatch hands an event to the handler. Implementations process the
	// event asynchronously and must not block the delivery loop.
	Dispatch(ctx context.Context, ev Event)
}

// ConsoleSession is a development transport: it reads JSON-framed chat events
// from a reader (normally stdin) and performs every outbound Messenger action
// by logging it. The real chat-platform client is an external collaborator;
// this session lets the daemon run end to end without one.
type ConsoleSession struct {
	r       io.Reader
	log     *slog.Logger
	handler EventHandler
	botID   string
}

// consoleFrame is the wire shape of one line of console input.
type consoleFrame struct {
	Type   string   `json:"type"`
	Msg    *Message `json:"message,omitempty"`
	Old    *Message `json:"old,omitempty"`
	New    *Message `json:"new,omitempty"`
	Emoji  string   `json:"emoji,omitempty"`
	UserID string   `json:"user_id,omitempty"`
}

// NewConsoleSession creates a console session reading frames from r and
// acting as the given bot user id.
func NewConsoleSession(r io.Reader, botID string,
	log *slog.Logger) *ConsoleSession {

	return &ConsoleSession{
		r:     r,
		log:   log,
		botID: botID,
	}
}

// SetHandler wires the event handler. Must be called before Run.
func (s *ConsoleSession) SetHandler(h EventHandler) {
	s.handler = h
}

// Run reads frames until EOF or context cancellation, dispatching each one.
// Malformed lines are logged and skipped so a bad paste cannot stall the
// session.
func (s *ConsoleSession) Run(ctx context.Context) error {
	if s.handler == nil {
		return errors.New("console session has no event handler")
	}

	scanner := bufio.NewScanner(s.r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		ev, err := decodeFrame(line)
		if err != nil {
			s.log.WarnContext(ctx, "Skipping malformed frame",
				"err", err)
			continue
		}

		s.handler.Dispatch(ctx, ev)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("console read: %w", err)
	}

	s.log.InfoContext(ctx, "Console input closed")

	return nil
}

// decodeFrame parses one JSON line into a chat event.
func decodeFrame(line string) (Event, error) {
	var frame consoleFrame
	if err := json.Unmarshal([]byte(line), &frame); err != nil {
		return nil, err
	}

	switch frame.Type {
	case "message":
		if frame.Msg == nil {
			return nil, errors.New("message frame missing message")
		}
		return MessageCreated{Msg: *frame.Msg}, nil

	case "edit":
		if frame.New == nil {
			return nil, errors.New("edit frame missing new message")
		}
		old := Message{}
		if frame.Old != nil {
			old = *frame.Old
		}
		return MessageEdited{Old: old, New: *frame.New}, nil

	case "reaction":
		if frame.Msg == nil {
			return nil, errors.New("reaction frame missing message")
		}
		return ReactionAdded{
			Msg:    *frame.Msg,
			Emoji:  frame.Emoji,
			UserID: frame.UserID,
		}, nil

	default:
		return nil, fmt.Errorf("unknown frame type %q", frame.Type)
	}
}

// Reply logs the reply that would be posted.
func (s *ConsoleSession) Reply(ctx context.Context, msg Message,
	text string) error {

	s.log.InfoContext(ctx, "Reply", "message_id", msg.ID, "text", text)
	return nil
}

// DeleteMessage logs the deletion that would be performed.
func (s *ConsoleSession) DeleteMessage(ctx context.Context,
	msg Message) error {

	s.log.InfoContext(ctx, "Delete message", "message_id", msg.ID)
	return nil
}

// ClearReactions logs the reaction reset.
func (s *ConsoleSession) ClearReactions(ctx context.Context,
	msg Message) error {

	s.log.InfoContext(ctx, "Clear reactions", "message_id", msg.ID)
	return nil
}

// AddReaction logs the bot reaction.
func (s *ConsoleSession) AddReaction(ctx context.Context, msg Message,
	emoji string) error {

	s.log.InfoContext(ctx, "Add reaction", "message_id", msg.ID,
		"emoji", emoji)
	return nil
}

// RemoveReaction logs the stripped reaction.
func (s *ConsoleSession) RemoveReaction(ctx context.Context, msg Message,
	emoji, userID string) error {

	s.log.InfoContext(ctx, "Remove reaction", "message_id", msg.ID,
		"emoji", emoji, "user_id", userID)
	return nil
}

// SendDirect logs the direct notification.
func (s *ConsoleSession) SendDirect(ctx context.Context, userID,
	text string) error {

	s.log.InfoContext(ctx, "Direct message", "user_id", userID,
		"text", text)
	return nil
}

// DisplayName returns the raw user id; the console has no member directory.
func (s *ConsoleSession) DisplayName(_ context.Context, _,
	userID string) (string, error) {

	return userID, nil
}

// SetPresence logs the presence string.
func (s *ConsoleSession) SetPresence(ctx context.Context,
	activity string) error {

	s.log.InfoContext(ctx, "Presence", "now_playing", activity)
	return nil
}

// BotUserID returns the configured bot user id.
func (s *ConsoleSession) BotUserID() string {
	return s.botID
}

// Ensure ConsoleSession implements Messenger at compile time.
var _ Messenger = (*ConsoleSession)(nil)
