package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	domainlistings "tradepost/internal/domain/listings"
	domainuser "tradepost/internal/domain/user"
)

// ListingRepository reads listings for the messaging core and stores
// fixture imports. Listing lifecycle is owned outside this service.
type ListingRepository struct {
	q querier
}

// NewListingRepository returns a pool-backed repository for callers
// outside a unit of work, such as the fixture importer.
func NewListingRepository(pool *pgxpool.Pool) *ListingRepository {
	return &ListingRepository{q: pool}
}

func (r *ListingRepository) ByID(ctx context.Context, id domainlistings.ListingID) (*domainlistings.Listing, error) {
	var (
		l        domainlistings.Listing
		listing  string
		seller   string
		state    string
	)
	err := r.q.QueryRow(ctx, `
		SELECT id, seller_id, title, price_cents, thumbnail_url, state, created_at
		FROM listings
		WHERE id = $1
	`, string(id)).Scan(&listing, &seller, &l.Title, &l.PriceCents, &l.ThumbnailURL, &state, &l.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domainlistings.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	l.ID = domainlistings.ListingID(listing)
	l.Seller = domainuser.ID(seller)
	l.State = domainlistings.ListingState(state)
	return &l, nil
}

func (r *ListingRepository) Save(ctx context.Context, l *domainlistings.Listing) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO listings (id, seller_id, title, price_cents, thumbnail_url, state, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			price_cents = EXCLUDED.price_cents,
			thumbnail_url = EXCLUDED.thumbnail_url,
			state = EXCLUDED.state
	`, string(l.ID), string(l.Seller), l.Title, l.PriceCents, l.ThumbnailURL, string(l.State), l.CreatedAt)
	return err
}

var _ domainlistings.Repository = (*ListingRepository)(nil)
