package memory

import (
	"context"
	"sync"

	domainlistings "tradepost/internal/domain/listings"
)

type ListingRepository struct {
	mu       sync.RWMutex
	listings map[domainlistings.ListingID]*domainlistings.Listing
}

func NewListingRepository() *ListingRepository {
	return &ListingRepository{listings: map[domainlistings.ListingID]*domainlistings.Listing{}}
}

func (r *ListingRepository) ByID(_ context.Context, id domainlistings.ListingID) (*domainlistings.Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.listings[id]
	if !ok {
		return nil, domainlistings.ErrNotFound
	}
	copied := *l
	return &copied, nil
}

func (r *ListingRepository) Save(_ context.Context, l *domainlistings.Listing) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *l
	r.listings[l.ID] = &copied
	return nil
}

var _ domainlistings.Repository = (*ListingRepository)(nil)
