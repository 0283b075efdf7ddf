package chat

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"tradepost/internal/app/dto"
	"tradepost/internal/app/outbox"
	"tradepost/internal/app/uow"
	domainchat "tradepost/internal/domain/chat"
	domainuser "tradepost/internal/domain/user"
)

const eventMessagePosted = "chat.message_posted"

type messagePostedEvent struct {
	MessageID      string `json:"message_id"`
	ConversationID string `json:"conversation_id"`
	SenderID       string `json:"sender_id"`
}

// PostMessage appends a message to a conversation the sender takes part
// in and bumps the conversation's activity marker in the same
// transaction: a reader never sees the message without the bump or the
// bump without the message.
func (s *Service) PostMessage(ctx context.Context, conversationID string, senderID domainuser.ID, text string) (dto.ChatMessage, error) {
	if strings.TrimSpace(text) == "" {
		return dto.ChatMessage{}, domainchat.ErrEmptyMessage
	}

	unit, ctx, managed, err := s.begin(ctx, uow.TxOptions{})
	if err != nil {
		return dto.ChatMessage{}, err
	}
	committed := false
	if managed {
		defer func() {
			if !committed {
				_ = unit.Rollback(ctx)
			}
		}()
	}

	conversation, err := s.loadConversation(ctx, unit, domainchat.ConversationID(conversationID), senderID, nil)
	if err != nil {
		return dto.ChatMessage{}, err
	}

	now := s.now()
	message, err := domainchat.NewMessage(domainchat.CreateMessageParams{
		ID:             domainchat.MessageID(uuid.NewString()),
		ConversationID: conversation.ID,
		SenderID:       senderID,
		Body:           text,
		Now:            now,
	})
	if err != nil {
		return dto.ChatMessage{}, err
	}

	if err := unit.Conversations().InsertMessage(ctx, message); err != nil {
		return dto.ChatMessage{}, err
	}
	if err := unit.Conversations().TouchActivity(ctx, conversation.ID, now); err != nil {
		return dto.ChatMessage{}, err
	}

	record, err := outbox.NewRecord(eventMessagePosted, string(conversation.ID), messagePostedEvent{
		MessageID:      string(message.ID),
		ConversationID: string(message.ConversationID),
		SenderID:       string(message.SenderID),
	}, now)
	if err != nil {
		return dto.ChatMessage{}, err
	}
	if box := unit.Outbox(); box != nil {
		if err := box.Add(ctx, record); err != nil {
			return dto.ChatMessage{}, err
		}
	}

	if managed {
		if err := unit.Commit(ctx); err != nil {
			return dto.ChatMessage{}, err
		}
		committed = true
	}
	return messageDTO(message), nil
}

// ListMessages returns one page of a conversation's messages in
// chronological order. Pages are selected newest-first so offset zero is
// always the most recent page, then reversed before returning.
func (s *Service) ListMessages(ctx context.Context, conversationID string, callerID domainuser.ID, limit, offset int) (dto.ChatMessageList, dto.Conversation, error) {
	limit, offset = clampPage(limit, offset)

	unit, ctx, managed, err := s.begin(ctx, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return dto.ChatMessageList{}, dto.Conversation{}, err
	}
	committed := false
	if managed {
		defer func() {
			if !committed {
				_ = unit.Rollback(ctx)
			}
		}()
	}

	conversation, err := s.loadConversation(ctx, unit, domainchat.ConversationID(conversationID), callerID, nil)
	if err != nil {
		return dto.ChatMessageList{}, dto.Conversation{}, err
	}

	page, total, err := unit.Conversations().MessagesPage(ctx, conversation.ID, limit, offset)
	if err != nil {
		return dto.ChatMessageList{}, dto.Conversation{}, err
	}

	list := dto.ChatMessageList{
		Items: make([]dto.ChatMessage, 0, len(page)),
		Pagination: dto.Pagination{
			Limit:   limit,
			Offset:  offset,
			Total:   total,
			HasMore: int64(offset+len(page)) < total,
		},
	}
	// Oldest first for the caller.
	for i := len(page) - 1; i >= 0; i-- {
		list.Items = append(list.Items, messageDTO(&page[i]))
	}

	if managed {
		if err := unit.Commit(ctx); err != nil {
			return dto.ChatMessageList{}, dto.Conversation{}, err
		}
		committed = true
	}
	return list, conversationDTO(conversation), nil
}
