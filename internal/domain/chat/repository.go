package chat

import (
	"context"
	"time"

	"tradepost/internal/domain/user"
)

// Summary is one inbox row: the conversation enriched with the listing
// card, the counterpart's public profile, the latest message preview and
// the viewer's unread count for that thread.
type Summary struct {
	Conversation Conversation

	ListingTitle     string
	ListingPrice     int64
	ListingThumbnail string

	Counterpart user.PublicProfile

	LastMessage string
	Unread      int64
}

// Repository persists conversations and their messages. Implementations
// must run every call against the transaction of the enclosing unit of
// work so multi-step operations commit or roll back as a whole.
type Repository interface {
	// ByID loads a conversation or returns ErrConversationNotFound.
	ByID(ctx context.Context, id ConversationID) (*Conversation, error)

	// ByTriple finds the unique conversation for a (listing, buyer,
	// seller) triple or returns ErrConversationNotFound.
	ByTriple(ctx context.Context, listingID string, buyerID, sellerID user.ID) (*Conversation, error)

	// Insert stores a new conversation. A collision with a concurrent
	// first contact surfaces as ErrDuplicateConversation and must leave
	// the enclosing transaction usable so callers can re-read the
	// winner instead of fail.
	Insert(ctx context.Context, conversation *Conversation) error

	// ListForUser returns inbox rows for conversations the user takes
	// part in, ordered by last activity descending with untouched
	// conversations last, plus the total row count for pagination.
	ListForUser(ctx context.Context, userID user.ID, limit, offset int) ([]Summary, int64, error)

	// InsertMessage appends a message to its conversation.
	InsertMessage(ctx context.Context, message *Message) error

	// TouchActivity bumps the conversation's inbox ordering key.
	TouchActivity(ctx context.Context, id ConversationID, at time.Time) error

	// MessagesPage returns one page of messages newest-first together
	// with the conversation's total message count.
	MessagesPage(ctx context.Context, id ConversationID, limit, offset int) ([]Message, int64, error)

	// MarkRead flips every unread message not sent by the reader to
	// read and reports how many rows changed.
	MarkRead(ctx context.Context, id ConversationID, readerID user.ID) (int64, error)

	// UnreadTotal counts unread messages addressed to the user across
	// all conversations they take part in.
	UnreadTotal(ctx context.Context, userID user.ID) (int64, error)

	// Delete removes a conversation and, by cascade, its messages.
	// Returns ErrConversationNotFound when no row was removed.
	Delete(ctx context.Context, id ConversationID) error
}
