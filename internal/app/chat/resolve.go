package chat

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"tradepost/internal/app/dto"
	"tradepost/internal/app/outbox"
	"tradepost/internal/app/uow"
	domainchat "tradepost/internal/domain/chat"
	domainlistings "tradepost/internal/domain/listings"
	domainuser "tradepost/internal/domain/user"
)

const eventConversationCreated = "chat.conversation_created"

type conversationCreatedEvent struct {
	ConversationID string `json:"conversation_id"`
	ListingID      string `json:"listing_id"`
	BuyerID        string `json:"buyer_id"`
	SellerID       string `json:"seller_id"`
}

// ResolveConversation finds or creates the unique conversation between
// the buyer and the listing's seller. The pre-check and the insert run
// in one transaction; a concurrent first contact that slips past the
// pre-check trips the unique constraint and is resolved by re-reading.
func (s *Service) ResolveConversation(ctx context.Context, listingID string, buyerID domainuser.ID) (dto.Conversation, bool, error) {
	unit, ctx, managed, err := s.begin(ctx, uow.TxOptions{})
	if err != nil {
		return dto.Conversation{}, false, err
	}
	committed := false
	if managed {
		defer func() {
			if !committed {
				_ = unit.Rollback(ctx)
			}
		}()
	}

	listing, err := unit.Listings().ByID(ctx, domainlistings.ListingID(listingID))
	if err != nil {
		return dto.Conversation{}, false, err
	}
	if listing.Seller == buyerID {
		return dto.Conversation{}, false, domainchat.ErrSelfConversation
	}

	existing, err := unit.Conversations().ByTriple(ctx, listingID, buyerID, listing.Seller)
	if err == nil {
		if managed {
			if err := unit.Commit(ctx); err != nil {
				return dto.Conversation{}, false, err
			}
			committed = true
		}
		return conversationDTO(existing), false, nil
	}
	if !errors.Is(err, domainchat.ErrConversationNotFound) {
		return dto.Conversation{}, false, err
	}

	now := s.now()
	conversation, err := domainchat.NewConversation(domainchat.CreateConversationParams{
		ID:        domainchat.ConversationID(uuid.NewString()),
		ListingID: listing.ID,
		BuyerID:   buyerID,
		SellerID:  listing.Seller,
		Now:       now,
	})
	if err != nil {
		return dto.Conversation{}, false, err
	}
	conversation.Touch(now)

	if err := unit.Conversations().Insert(ctx, conversation); err != nil {
		if errors.Is(err, domainchat.ErrDuplicateConversation) {
			// Lost the first-contact race; the winner's row is the
			// conversation.
			winner, rerr := unit.Conversations().ByTriple(ctx, listingID, buyerID, listing.Seller)
			if rerr != nil {
				return dto.Conversation{}, false, rerr
			}
			if managed {
				if cerr := unit.Commit(ctx); cerr != nil {
					return dto.Conversation{}, false, cerr
				}
				committed = true
			}
			return conversationDTO(winner), false, nil
		}
		return dto.Conversation{}, false, err
	}

	record, err := outbox.NewRecord(eventConversationCreated, string(conversation.ID), conversationCreatedEvent{
		ConversationID: string(conversation.ID),
		ListingID:      string(conversation.ListingID),
		BuyerID:        string(conversation.BuyerID),
		SellerID:       string(conversation.SellerID),
	}, now)
	if err != nil {
		return dto.Conversation{}, false, err
	}
	if box := unit.Outbox(); box != nil {
		if err := box.Add(ctx, record); err != nil {
			return dto.Conversation{}, false, err
		}
	}

	if managed {
		if err := unit.Commit(ctx); err != nil {
			return dto.Conversation{}, false, err
		}
		committed = true
	}
	s.log().Info("conversation created",
		"conversation_id", conversation.ID,
		"listing_id", conversation.ListingID,
		"buyer_id", conversation.BuyerID,
	)
	return conversationDTO(conversation), true, nil
}
