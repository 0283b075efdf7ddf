package user

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	ErrIDRequired          = errors.New("user: id is required")
	ErrEmailRequired       = errors.New("user: email is required")
	ErrPasswordHashMissing = errors.New("user: password hash is required")
	ErrNameRequired        = errors.New("user: name is required")
	ErrInvalidRole         = errors.New("user: invalid role")
	ErrEmailAlreadyUsed    = errors.New("user: email already used")
	ErrNotFound            = errors.New("user: not found")
)

type ID string

type Role string

const (
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

// KnownRoles lists every role the system understands.
var KnownRoles = []Role{RoleUser, RoleModerator, RoleAdmin}

type User struct {
	ID           ID
	Email        string
	Name         string
	PasswordHash string
	AvatarURL    string
	Roles        []Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Repository interface {
	ByID(ctx context.Context, id ID) (*User, error)
	ByEmail(ctx context.Context, email string) (*User, error)
	Save(ctx context.Context, user *User) error
}

type CreateParams struct {
	ID           ID
	Email        string
	Name         string
	PasswordHash string
	AvatarURL    string
	Roles        []Role
	CreatedAt    time.Time
}

func NewUser(params CreateParams) (*User, error) {
	id := strings.TrimSpace(string(params.ID))
	if id == "" {
		return nil, ErrIDRequired
	}
	email := NormalizeEmail(params.Email)
	if email == "" {
		return nil, ErrEmailRequired
	}
	if strings.TrimSpace(params.PasswordHash) == "" {
		return nil, ErrPasswordHashMissing
	}
	name := strings.TrimSpace(params.Name)
	if name == "" {
		return nil, ErrNameRequired
	}

	now := params.CreatedAt
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()

	roles, err := NormalizeRoles(params.Roles)
	if err != nil {
		return nil, err
	}

	return &User{
		ID:           ID(id),
		Email:        email,
		Name:         name,
		PasswordHash: params.PasswordHash,
		AvatarURL:    strings.TrimSpace(params.AvatarURL),
		Roles:        roles,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// Moderator reports whether the role set carries administrative override
// rights over conversations the user does not participate in.
func Moderator(roles []Role) bool {
	for _, r := range roles {
		if r == RoleModerator || r == RoleAdmin {
			return true
		}
	}
	return false
}

func NormalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}

// NormalizeRoles lowercases, validates and deduplicates roles, always
// keeping the base user role present.
func NormalizeRoles(roles []Role) ([]Role, error) {
	seen := map[Role]bool{}
	result := []Role{RoleUser}
	seen[RoleUser] = true
	for _, raw := range roles {
		role := Role(strings.ToLower(strings.TrimSpace(string(raw))))
		if role == "" {
			continue
		}
		if !knownRole(role) {
			return nil, ErrInvalidRole
		}
		if seen[role] {
			continue
		}
		seen[role] = true
		result = append(result, role)
	}
	return result, nil
}

func knownRole(role Role) bool {
	for _, known := range KnownRoles {
		if role == known {
			return true
		}
	}
	return false
}

// PublicProfile is the subset of a user shown to counterparts in
// conversations and listings.
type PublicProfile struct {
	ID        ID
	Name      string
	AvatarURL string
}

func (u *User) Profile() PublicProfile {
	return PublicProfile{ID: u.ID, Name: u.Name, AvatarURL: u.AvatarURL}
}
