package chat

import (
	"context"

	"tradepost/internal/app/dto"
	"tradepost/internal/app/uow"
	domainuser "tradepost/internal/domain/user"
)

// ListConversations returns the user's inbox: every conversation they
// take part in, enriched with the listing card, counterpart profile,
// last message preview and unread count, newest activity first.
// Viewing the inbox does not change any read state.
func (s *Service) ListConversations(ctx context.Context, userID domainuser.ID, limit, offset int) (dto.ConversationList, error) {
	limit, offset = clampPage(limit, offset)

	unit, ctx, managed, err := s.begin(ctx, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return dto.ConversationList{}, err
	}
	committed := false
	if managed {
		defer func() {
			if !committed {
				_ = unit.Rollback(ctx)
			}
		}()
	}

	rows, total, err := unit.Conversations().ListForUser(ctx, userID, limit, offset)
	if err != nil {
		return dto.ConversationList{}, err
	}

	list := dto.ConversationList{
		Items: make([]dto.ConversationSummary, 0, len(rows)),
		Pagination: dto.Pagination{
			Limit:   limit,
			Offset:  offset,
			Total:   total,
			HasMore: int64(offset+len(rows)) < total,
		},
	}
	for i := range rows {
		row := &rows[i]
		list.Items = append(list.Items, dto.ConversationSummary{
			Conversation: conversationDTO(&row.Conversation),
			Listing: dto.ListingCard{
				ID:           string(row.Conversation.ListingID),
				Title:        row.ListingTitle,
				PriceCents:   row.ListingPrice,
				ThumbnailURL: row.ListingThumbnail,
			},
			With: dto.Profile{
				ID:        string(row.Counterpart.ID),
				Name:      row.Counterpart.Name,
				AvatarURL: row.Counterpart.AvatarURL,
			},
			LastMessage: row.LastMessage,
			UnreadCount: row.Unread,
		})
	}

	if managed {
		if err := unit.Commit(ctx); err != nil {
			return dto.ConversationList{}, err
		}
		committed = true
	}
	return list, nil
}

// UnreadCount totals unread messages addressed to the user across all
// their conversations. It always equals the sum of the per-conversation
// unread counts the inbox reports.
func (s *Service) UnreadCount(ctx context.Context, userID domainuser.ID) (int64, error) {
	unit, ctx, managed, err := s.begin(ctx, uow.TxOptions{ReadOnly: true})
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

	total, err := unit.Conversations().UnreadTotal(ctx, userID)
	if err != nil {
		return 0, err
	}

	if managed {
		if err := unit.Commit(ctx); err != nil {
			return 0, err
		}
		committed = true
	}
	return total, nil
}
