package chat

import (
	"context"
	"log/slog"
	"time"

	"tradepost/internal/app/dto"
	"tradepost/internal/app/uow"
	domainchat "tradepost/internal/domain/chat"
	domainuser "tradepost/internal/domain/user"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Service implements buyer/seller conversation messaging: conversation
// resolution, message appends, inbox listing, read-state transitions and
// conversation deletion. Every operation runs inside one unit of work.
type Service struct {
	UoWFactory uow.UoWFactory
	Logger     *slog.Logger
	Clock      func() time.Time
}

// begin reuses an ambient unit of work when one is already bound to the
// context, otherwise it starts its own. The caller commits and rolls
// back only units it started itself (managed == true).
func (s *Service) begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, context.Context, bool, error) {
	if unit, ok := uow.FromContext(ctx); ok {
		return unit, ctx, false, nil
	}
	if s.UoWFactory == nil {
		return nil, ctx, false, uow.ErrUnitOfWorkMissing
	}
	unit, err := s.UoWFactory.Begin(ctx, opts)
	if err != nil {
		return nil, ctx, false, err
	}
	return unit, uow.ContextWithUnitOfWork(ctx, unit), true, nil
}

// loadConversation is the single authorization path for conversation
// scoped operations: it loads the row and asserts the caller is a
// participant, or carries a moderator role when roles are supplied.
func (s *Service) loadConversation(
	ctx context.Context,
	unit uow.UnitOfWork,
	id domainchat.ConversationID,
	callerID domainuser.ID,
	roles []domainuser.Role,
) (*domainchat.Conversation, error) {
	conversation, err := unit.Conversations().ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if conversation.Participant(callerID) {
		return conversation, nil
	}
	if len(roles) > 0 && domainuser.Moderator(roles) {
		return conversation, nil
	}
	return nil, domainchat.ErrNotParticipant
}

func (s *Service) now() time.Time {
	if s.Clock != nil {
		return s.Clock().UTC()
	}
	return time.Now().UTC()
}

func (s *Service) log() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 || limit > maxPageSize {
		limit = defaultPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func conversationDTO(c *domainchat.Conversation) dto.Conversation {
	return dto.Conversation{
		ID:             string(c.ID),
		ListingID:      string(c.ListingID),
		BuyerID:        string(c.BuyerID),
		SellerID:       string(c.SellerID),
		CreatedAt:      c.CreatedAt,
		LastActivityAt: c.LastActivityAt,
	}
}

func messageDTO(m *domainchat.Message) dto.ChatMessage {
	return dto.ChatMessage{
		ID:             string(m.ID),
		ConversationID: string(m.ConversationID),
		SenderID:       string(m.SenderID),
		Text:           m.Body,
		Read:           m.Read,
		SentAt:         m.SentAt,
	}
}
