package chat

import (
	"context"

	"tradepost/internal/app/outbox"
	"tradepost/internal/app/uow"
	domainchat "tradepost/internal/domain/chat"
	domainuser "tradepost/internal/domain/user"
)

const eventConversationDeleted = "chat.conversation_deleted"

type conversationDeletedEvent struct {
	ConversationID string `json:"conversation_id"`
	DeletedBy      string `json:"deleted_by"`
}

// DeleteConversation removes a conversation and all its messages.
// Participants may delete their own threads; moderators and admins may
// delete any. Deleting an absent conversation reports not-found.
func (s *Service) DeleteConversation(ctx context.Context, conversationID string, callerID domainuser.ID, roles []domainuser.Role) error {
	unit, ctx, managed, err := s.begin(ctx, uow.TxOptions{})
	if err != nil {
		return err
	}
	committed := false
	if managed {
		defer func() {
			if !committed {
				_ = unit.Rollback(ctx)
			}
		}()
	}

	moderatorRoles := roles
	if !domainuser.Moderator(roles) {
		moderatorRoles = nil
	}
	conversation, err := s.loadConversation(ctx, unit, domainchat.ConversationID(conversationID), callerID, moderatorRoles)
	if err != nil {
		return err
	}

	if err := unit.Conversations().Delete(ctx, conversation.ID); err != nil {
		return err
	}

	record, err := outbox.NewRecord(eventConversationDeleted, string(conversation.ID), conversationDeletedEvent{
		ConversationID: string(conversation.ID),
		DeletedBy:      string(callerID),
	}, s.now())
	if err != nil {
		return err
	}
	if box := unit.Outbox(); box != nil {
		if err := box.Add(ctx, record); err != nil {
			return err
		}
	}

	if managed {
		if err := unit.Commit(ctx); err != nil {
			return err
		}
		committed = true
	}
	s.log().Info("conversation deleted", "conversation_id", conversation.ID, "deleted_by", callerID)
	return nil
}
