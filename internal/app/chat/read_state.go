package chat

import (
	"context"

	"tradepost/internal/app/uow"
	domainchat "tradepost/internal/domain/chat"
	domainuser "tradepost/internal/domain/user"
)

// MarkRead transitions every unread message addressed to the caller in
// one conversation to read with a single bulk update. Calling it again
// is a no-op returning zero.
func (s *Service) MarkRead(ctx context.Context, conversationID string, callerID domainuser.ID) (int64, error) {
	unit, ctx, managed, err := s.begin(ctx, uow.TxOptions{})
	if err != nil {
		return 0, err
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
		return 0, err
	}

	marked, err := unit.Conversations().MarkRead(ctx, conversation.ID, callerID)
	if err != nil {
		return 0, err
	}

	if managed {
		if err := unit.Commit(ctx); err != nil {
			return 0, err
		}
		committed = true
	}
	return marked, nil
}
