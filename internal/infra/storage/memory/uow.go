package memory

import (
	"context"
	"errors"

	appoutbox "tradepost/internal/app/outbox"
	"tradepost/internal/app/uow"
	domainchat "tradepost/internal/domain/chat"
	domainlistings "tradepost/internal/domain/listings"
	domainuser "tradepost/internal/domain/user"
)

// ErrFactoryMisconfigured indicates missing repositories.
var ErrFactoryMisconfigured = errors.New("memory: unit of work factory misconfigured")

// Factory wires in-memory repositories into a unit-of-work boundary.
type Factory struct {
	ChatRepo     *ChatRepository
	ListingsRepo *ListingRepository
	UsersRepo    *UserRepository
	OutboxStore  *Outbox
}

// NewFactory builds a fully-wired in-memory backend.
func NewFactory() Factory {
	listings := NewListingRepository()
	users := NewUserRepository()
	return Factory{
		ChatRepo:     NewChatRepository(listings, users),
		ListingsRepo: listings,
		UsersRepo:    users,
		OutboxStore:  NewOutbox(),
	}
}

// Begin starts a lightweight transaction boundary. No isolation is
// provided but the abstraction matches the application ports.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.ChatRepo == nil || f.ListingsRepo == nil || f.UsersRepo == nil {
		return nil, ErrFactoryMisconfigured
	}
	return &Unit{factory: f}, nil
}

// Unit is a lightweight uow.UnitOfWork backed by in-memory stores.
type Unit struct {
	factory Factory
}

func (u *Unit) Conversations() domainchat.Repository {
	return u.factory.ChatRepo
}

func (u *Unit) Listings() domainlistings.Reader {
	return u.factory.ListingsRepo
}

func (u *Unit) Users() domainuser.Repository {
	return u.factory.UsersRepo
}

func (u *Unit) Outbox() appoutbox.Store {
	if u.factory.OutboxStore == nil {
		return nil
	}
	return u.factory.OutboxStore
}

func (u *Unit) Commit(ctx context.Context) error {
	return nil
}

func (u *Unit) Rollback(ctx context.Context) error {
	return nil
}
