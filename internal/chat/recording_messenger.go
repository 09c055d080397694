package chat

import (
	"context"
	"sync"
)

// RecordingMessenger is an in-memory Messenger that records every outbound
// call for inspection in tests. All data is protected by a mutex so tests may
// drive it from concurrent event handlers.
type RecordingMessenger struct {
	mu sync.Mutex

	// Injectable behavior.
	botID        string
	displayNames map[string]string

	// Recorded calls, in order per category.
	Replies          []RecordedReply
	Deleted          []Message
	ClearedReactions []Message
	AddedReactions   []RecordedReaction
	RemovedReactions []RecordedReaction
	DirectMessages   []RecordedDirect
	Presence         []string
}

// RecordedReply captures a Reply call.
type RecordedReply struct {
	Msg  Message
	Text string
}

// RecordedReaction captures an AddReaction or RemoveReaction call.
type RecordedReaction struct {
	Msg    Message
	Emoji  string
	UserID string
}

// RecordedDirect captures a SendDirect call.
type RecordedDirect struct {
	UserID string
	Text   string
}

// NewRecordingMessenger creates a recording messenger acting as the given
// bot user.
func NewRecordingMessenger(botID string) *RecordingMessenger {
	return &RecordingMessenger{
		botID:        botID,
		displayNames: make(map[string]string),
	}
}

// SetDisplayName registers a display name returned by DisplayName lookups.
func (m *RecordingMessenger) SetDisplayName(userID, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.displayNames[userID] = name
}

// Reply records a reply.
func (m *RecordingMessenger) Reply(_ context.Context, msg Message,
	text string) error {

	m.mu.Lock()
	defer m.mu.Unlock()
	m.Replies = append(m.Replies, RecordedReply{Msg: msg, Text: text})

	return nil
}

// DeleteMessage records a message deletion.
func (m *RecordingMessenger) DeleteMessage(_ context.Context,
	msg Message) error {

	m.mu.Lock()
	defer m.mu.Unlock()
	m.Deleted = append(m.Deleted, msg)

	return nil
}

// ClearReactions records a reaction reset.
func (m *RecordingMessenger) ClearReactions(_ context.Context,
	msg Message) error {

	m.mu.Lock()
	defer m.mu.Unlock()
	m.ClearedReactions = append(m.ClearedReactions, msg)

	return nil
}

// AddReaction records a bot reaction.
func (m *RecordingMessenger) AddReaction(_ context.Context, msg Message,
	emoji string) error {

	m.mu.Lock()
	defer m.mu.Unlock()
	m.AddedReactions = append(m.AddedReactions, RecordedReaction{
		Msg: msg, Emoji: emoji, UserID: m.botID,
	})

	return nil
}

// RemoveReaction records a stripped reaction.
func (m *RecordingMessenger) RemoveReaction(_ context.Context, msg Message,
	emoji, userID string) error {

	m.mu.Lock()
	defer m.mu.Unlock()
	m.RemovedReactions = append(m.RemovedReactions, RecordedReaction{
		Msg: msg, Emoji: emoji, UserID: userID,
	})

	return nil
}

// SendDirect records a direct notification.
func (m *RecordingMessenger) SendDirect(_ context.Context, userID,
	text string) error {

	m.mu.Lock()
	defer m.mu.Unlock()
	m.DirectMessages = append(m.DirectMessages, RecordedDirect{
		UserID: userID, Text: text,
	})

	return nil
}

// DisplayName returns a registered display name, falling back to the raw id.
func (m *RecordingMessenger) DisplayName(_ context.Context, _,
	userID string) (string, error) {

	m.mu.Lock()
	defer m.mu.Unlock()
	if name, ok := m.displayNames[userID]; ok {
		return name, nil
	}

	return userID, nil
}

// SetPresence records a presence update.
func (m *RecordingMessenger) SetPresence(_ context.Context,
	activity string) error {

	m.mu.Lock()
	defer m.mu.Unlock()
	m.Presence = append(m.Presence, activity)

	return nil
}

// BotUserID returns the configured bot user id.
func (m *RecordingMessenger) BotUserID() string {
	return m.botID
}

// Ensure RecordingMessenger implements Messenger at compile time.
var _ Messenger = (*RecordingMessenger)(nil)
