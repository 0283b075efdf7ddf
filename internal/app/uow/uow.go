package uow

import (
	"context"

	appoutbox "tradepost/internal/app/outbox"
	domainchat "tradepost/internal/domain/chat"
	domainlistings "tradepost/internal/domain/listings"
	domainuser "tradepost/internal/domain/user"
)

// UnitOfWork coordinates repositories inside one transaction boundary.
// Every repository obtained from a unit operates on the same underlying
// transaction; Commit publishes all of it, Rollback none of it.
type UnitOfWork interface {
	Conversations() domainchat.Repository
	Listings() domainlistings.Reader
	Users() domainuser.Repository
	Outbox() appoutbox.Store

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// UoWFactory starts unit of work instances.
type UoWFactory interface {
	Begin(ctx context.Context, opts TxOptions) (UnitOfWork, error)
}

// TxOptions configure transaction boundaries.
type TxOptions struct {
	ReadOnly bool
}
