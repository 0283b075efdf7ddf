package chat

import (
	"errors"
	"strings"
	"time"

	"tradepost/internal/domain/listings"
	"tradepost/internal/domain/user"
)

var (
	ErrConversationNotFound  = errors.New("chat: conversation not found")
	ErrDuplicateConversation = errors.New("chat: conversation already exists")
	ErrSelfConversation      = errors.New("chat: cannot message your own listing")
	ErrNotParticipant        = errors.New("chat: not a conversation participant")
	ErrIDRequired            = errors.New("chat: id is required")
	ErrListingRequired       = errors.New("chat: listing is required")
	ErrBuyerRequired         = errors.New("chat: buyer is required")
	ErrSellerRequired        = errors.New("chat: seller is required")
)

type ConversationID string

// Conversation is the unique message thread between one buyer and one
// seller about one listing. LastActivityAt stays nil until the first
// message lands and orders the owner's inbox afterwards.
type Conversation struct {
	ID             ConversationID
	ListingID      listings.ListingID
	BuyerID        user.ID
	SellerID       user.ID
	LastActivityAt *time.Time
	CreatedAt      time.Time
}

type CreateConversationParams struct {
	ID        ConversationID
	ListingID listings.ListingID
	BuyerID   user.ID
	SellerID  user.ID
	Now       time.Time
}

func NewConversation(params CreateConversationParams) (*Conversation, error) {
	if strings.TrimSpace(string(params.ID)) == "" {
		return nil, ErrIDRequired
	}
	if strings.TrimSpace(string(params.ListingID)) == "" {
		return nil, ErrListingRequired
	}
	if strings.TrimSpace(string(params.BuyerID)) == "" {
		return nil, ErrBuyerRequired
	}
	if strings.TrimSpace(string(params.SellerID)) == "" {
		return nil, ErrSellerRequired
	}
	if params.BuyerID == params.SellerID {
		return nil, ErrSelfConversation
	}
	now := params.Now
	if now.IsZero() {
		now = time.Now()
	}
	return &Conversation{
		ID:        params.ID,
		ListingID: params.ListingID,
		BuyerID:   params.BuyerID,
		SellerID:  params.SellerID,
		CreatedAt: now.UTC(),
	}, nil
}

// Participant reports whether the user is the buyer or the seller.
func (c *Conversation) Participant(id user.ID) bool {
	return id == c.BuyerID || id == c.SellerID
}

// Counterpart returns the other participant relative to the given user.
func (c *Conversation) Counterpart(id user.ID) user.ID {
	if id == c.BuyerID {
		return c.SellerID
	}
	return c.BuyerID
}

// Touch advances the inbox ordering key. Last writer wins; the field is
// advisory and only used for sorting.
func (c *Conversation) Touch(at time.Time) {
	at = at.UTC()
	c.LastActivityAt = &at
}
