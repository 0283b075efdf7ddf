package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	domainuser "tradepost/internal/domain/user"
)

const uniqueViolation = "23505"

type UserRepository struct {
	q querier
}

// NewUserRepository returns a pool-backed repository. The auth service
// uses it directly; transactional callers go through the unit of work.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{q: pool}
}

func (r *UserRepository) ByID(ctx context.Context, id domainuser.ID) (*domainuser.User, error) {
	return r.scanOne(r.q.QueryRow(ctx, `
		SELECT id, email, name, password_hash, avatar_url, roles, created_at, updated_at
		FROM users
		WHERE id = $1
	`, string(id)))
}

func (r *UserRepository) ByEmail(ctx context.Context, email string) (*domainuser.User, error) {
	return r.scanOne(r.q.QueryRow(ctx, `
		SELECT id, email, name, password_hash, avatar_url, roles, created_at, updated_at
		FROM users
		WHERE email = $1
	`, domainuser.NormalizeEmail(email)))
}

func (r *UserRepository) Save(ctx context.Context, u *domainuser.User) error {
	roles := make([]string, 0, len(u.Roles))
	for _, role := range u.Roles {
		roles = append(roles, string(role))
	}
	_, err := r.q.Exec(ctx, `
		INSERT INTO users (id, email, name, password_hash, avatar_url, roles, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			password_hash = EXCLUDED.password_hash,
			avatar_url = EXCLUDED.avatar_url,
			roles = EXCLUDED.roles,
			updated_at = EXCLUDED.updated_at
	`, string(u.ID), u.Email, u.Name, u.PasswordHash, u.AvatarURL, roles, u.CreatedAt, u.UpdatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return domainuser.ErrEmailAlreadyUsed
	}
	return err
}

func (r *UserRepository) scanOne(row pgx.Row) (*domainuser.User, error) {
	var (
		u     domainuser.User
		id    string
		roles []string
	)
	err := row.Scan(&id, &u.Email, &u.Name, &u.PasswordHash, &u.AvatarURL, &roles, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domainuser.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	u.ID = domainuser.ID(id)
	for _, role := range roles {
		u.Roles = append(u.Roles, domainuser.Role(role))
	}
	return &u, nil
}

var _ domainuser.Repository = (*UserRepository)(nil)
