package listings

import (
	"context"
	"errors"
	"strings"
	"time"

	"tradepost/internal/domain/user"
)

var (
	ErrNotFound      = errors.New("listings: not found")
	ErrIDRequired    = errors.New("listings: id is required")
	ErrTitleRequired = errors.New("listings: title is required")
	ErrSellerMissing = errors.New("listings: seller is required")
	ErrNegativePrice = errors.New("listings: price must be non-negative")
)

type ListingID string

type ListingState string

const (
	ListingActive    ListingState = "ACTIVE"
	ListingSuspended ListingState = "SUSPENDED"
	ListingSold      ListingState = "SOLD"
)

// Listing is the marketplace item a conversation is attached to. The
// messaging core only reads listings; their lifecycle is owned elsewhere.
type Listing struct {
	ID           ListingID
	Seller       user.ID
	Title        string
	PriceCents   int64
	ThumbnailURL string
	State        ListingState
	CreatedAt    time.Time
}

// Reader is the lookup collaborator the messaging core depends on.
type Reader interface {
	ByID(ctx context.Context, id ListingID) (*Listing, error)
}

// Repository extends Reader with persistence used by fixture imports.
type Repository interface {
	Reader
	Save(ctx context.Context, listing *Listing) error
}

type CreateParams struct {
	ID           ListingID
	Seller       user.ID
	Title        string
	PriceCents   int64
	ThumbnailURL string
	CreatedAt    time.Time
}

func NewListing(params CreateParams) (*Listing, error) {
	id := strings.TrimSpace(string(params.ID))
	if id == "" {
		return nil, ErrIDRequired
	}
	if strings.TrimSpace(string(params.Seller)) == "" {
		return nil, ErrSellerMissing
	}
	title := strings.TrimSpace(params.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}
	if params.PriceCents < 0 {
		return nil, ErrNegativePrice
	}
	now := params.CreatedAt
	if now.IsZero() {
		now = time.Now()
	}
	return &Listing{
		ID:           ListingID(id),
		Seller:       params.Seller,
		Title:        title,
		PriceCents:   params.PriceCents,
		ThumbnailURL: strings.TrimSpace(params.ThumbnailURL),
		State:        ListingActive,
		CreatedAt:    now.UTC(),
	}, nil
}
