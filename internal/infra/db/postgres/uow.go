package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	appoutbox "tradepost/internal/app/outbox"
	"tradepost/internal/app/uow"
	domainchat "tradepost/internal/domain/chat"
	domainlistings "tradepost/internal/domain/listings"
	domainuser "tradepost/internal/domain/user"
)

var ErrUnitOfWorkNotConfigured = errors.New("postgres: unit of work factory missing pool")

// Factory wires pgx transactions into the generic UnitOfWork interface.
type Factory struct {
	Pool *pgxpool.Pool
}

// Begin starts a transaction; every repository handed out by the unit
// runs on it, so Commit/Rollback covers all of their work.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.Pool == nil {
		return nil, ErrUnitOfWorkNotConfigured
	}
	txOpts := pgx.TxOptions{}
	if opts.ReadOnly {
		txOpts.AccessMode = pgx.ReadOnly
	}
	tx, err := f.Pool.BeginTx(ctx, txOpts)
	if err != nil {
		return nil, err
	}
	return &Unit{tx: tx}, nil
}

type Unit struct {
	tx pgx.Tx
}

func (u *Unit) Conversations() domainchat.Repository {
	return &ConversationRepository{q: u.tx}
}

func (u *Unit) Listings() domainlistings.Reader {
	return &ListingRepository{q: u.tx}
}

func (u *Unit) Users() domainuser.Repository {
	return &UserRepository{q: u.tx}
}

func (u *Unit) Outbox() appoutbox.Store {
	return &OutboxStore{q: u.tx}
}

func (u *Unit) Commit(ctx context.Context) error {
	return u.tx.Commit(ctx)
}

func (u *Unit) Rollback(ctx context.Context) error {
	err := u.tx.Rollback(ctx)
	if errors.Is(err, pgx.ErrTxClosed) {
		return nil
	}
	return err
}

// querier is satisfied by pgx.Tx and *pgxpool.Pool alike, so the same
// repositories serve transactional and standalone callers.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}
