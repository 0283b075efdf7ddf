package chat

import (
	"errors"
	"strings"
	"time"

	"tradepost/internal/domain/user"
)

var (
	ErrEmptyMessage     = errors.New("chat: message body is empty")
	ErrSenderRequired   = errors.New("chat: sender is required")
	ErrMessageOrphaned  = errors.New("chat: message requires a conversation")
	ErrMessageIDMissing = errors.New("chat: message id is required")
)

type MessageID string

// Message is one entry in a conversation. Read is flipped only by the
// bulk read-state transition and only for the counterpart's messages.
type Message struct {
	ID             MessageID
	ConversationID ConversationID
	SenderID       user.ID
	Body           string
	Read           bool
	SentAt         time.Time
}

type CreateMessageParams struct {
	ID             MessageID
	ConversationID ConversationID
	SenderID       user.ID
	Body           string
	Now            time.Time
}

func NewMessage(params CreateMessageParams) (*Message, error) {
	if strings.TrimSpace(string(params.ID)) == "" {
		return nil, ErrMessageIDMissing
	}
	if strings.TrimSpace(string(params.ConversationID)) == "" {
		return nil, ErrMessageOrphaned
	}
	if strings.TrimSpace(string(params.SenderID)) == "" {
		return nil, ErrSenderRequired
	}
	body := strings.TrimSpace(params.Body)
	if body == "" {
		return nil, ErrEmptyMessage
	}
	now := params.Now
	if now.IsZero() {
		now = time.Now()
	}
	return &Message{
		ID:             params.ID,
		ConversationID: params.ConversationID,
		SenderID:       params.SenderID,
		Body:           body,
		SentAt:         now.UTC(),
	}, nil
}
