package chat

import (
	"context"
	"fmt"
)

// Message is the slice of a chat message the lifecycle core consumes. The
// shape is collaborator-defined; the core never owns a wire protocol.
type Message struct {
	// ID is the platform message identifier. Game records and ledger rows
	// are keyed by it.
	ID string `json:"id"`

	// ChannelID is the identifier of the channel the message lives in.
	ChannelID string `json:"channel_id"`

	// ChannelName is the human-readable channel name, matched against the
	// configured reports channel.
	ChannelName string `json:"channel_name"`

	// GuildID is the identifier of the guild/server.
	GuildID string `json:"guild_id"`

	// AuthorID is the message author's user id.
	AuthorID string `json:"author_id"`

	// AuthorName is the author's display name at delivery time.
	AuthorName string `json:"author_name"`

	// AuthorIsBot is true when the author is a bot account.
	AuthorIsBot bool `json:"author_is_bot,omitempty"`

	// Content is the raw message text.
	Content string `json:"content"`
}

// Event is the sealed interface for chat events delivered to the lifecycle
// controller.
type Event interface {
	// isChatEvent seals the interface.
	isChatEvent()
}

func (MessageCreated) isChatEvent() {}
func (MessageEdited) isChatEvent()  {}
func (ReactionAdded) isChatEvent()  {}

// MessageCreated is delivered when a new message is posted.
type MessageCreated struct {
	Msg Message
}

// MessageEdited is delivered when a message's content changes. Old carries
// the pre-edit snapshot, New the current content.
type MessageEdited struct {
	Old Message
	New Message
}

// ReactionAdded is delivered when a user adds a reaction emoji to a message.
// Msg is the message as it reads at reaction time, which the controller
// re-parses on certification attempts.
type ReactionAdded struct {
	Msg    Message
	Emoji  string
	UserID string
}

// Messenger is the outbound half of the chat-platform collaborator. Every
// method is a blocking I/O call and honors the passed context.
type Messenger interface {
	// Reply posts a reply to the given message in its channel.
	Reply(ctx context.Context, msg Message, text string) error

	// DeleteMessage removes the message from its channel.
	DeleteMessage(ctx context.Context, msg Message) error

	// ClearReactions removes all reactions from the message.
	ClearReactions(ctx context.Context, msg Message) error

	// AddReaction adds a reaction as the bot user.
	AddReaction(ctx context.Context, msg Message, emoji string) error

	// RemoveReaction removes a specific user's reaction.
	RemoveReaction(ctx context.Context, msg Message, emoji,
		userID string) error

	// SendDirect sends a direct notification to a user.
	SendDirect(ctx context.Context, userID, text string) error

	// DisplayName resolves a user's display name within a guild.
	DisplayName(ctx context.Context, guildID, userID string) (string, error)

	// SetPresence sets the bot's "now playing" presence string.
	SetPresence(ctx context.Context, activity string) error

	// BotUserID returns the bot's own user id, used to ignore the bot's
	// own reactions.
	BotUserID() string
}

// Permalink builds a link to a message that can be embedded in direct
// notifications so participants can jump straight to the report.
func Permalink(msg Message) string {
	return fmt.Sprintf(
		"https://discordapp.com/channels/%s/%s/%s",
		msg.GuildID, msg.ChannelID, msg.ID,
	)
}
