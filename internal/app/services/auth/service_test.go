package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	domainauth "tradepost/internal/domain/auth"
	domainuser "tradepost/internal/domain/user"
	"tradepost/internal/infra/sessions"
	"tradepost/internal/infra/storage/memory"
)

type plainHasher struct{}

func (plainHasher) Hash(password string) (string, error) { return "hash:" + password, nil }

func (plainHasher) Compare(hash, password string) error {
	if hash != "hash:"+password {
		return errors.New("mismatch")
	}
	return nil
}

type seqTokens struct {
	n int
}

func (g *seqTokens) NewToken() (string, error) {
	g.n++
	return "token-" + string(rune('a'+g.n-1)), nil
}

func newService() *Service {
	return &Service{
		Users:      memory.NewUserRepository(),
		Sessions:   sessions.NewMemoryStore(),
		Passwords:  plainHasher{},
		Tokens:     &seqTokens{},
		SessionTTL: time.Hour,
	}
}

func TestRegisterAndResolve(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	result, err := svc.Register(ctx, RegisterParams{
		Email:    " Alice@Example.COM ",
		Name:     "Alice",
		Password: "longenough",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if result.User.Email != "alice@example.com" {
		t.Fatalf("email not normalized: %s", result.User.Email)
	}
	if result.Token == "" {
		t.Fatal("register must issue a session token")
	}

	resolved, err := svc.ResolveToken(ctx, result.Token)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.User.ID != result.User.ID {
		t.Fatalf("resolved wrong user: %s", resolved.User.ID)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	if _, err := svc.Register(ctx, RegisterParams{Email: "a@b.c", Name: "A", Password: "short"}); !errors.Is(err, ErrPasswordTooShort) {
		t.Fatalf("expected ErrPasswordTooShort, got %v", err)
	}
	if _, err := svc.Register(ctx, RegisterParams{Name: "A", Password: "longenough"}); !errors.Is(err, domainuser.ErrEmailRequired) {
		t.Fatalf("expected ErrEmailRequired, got %v", err)
	}

	if _, err := svc.Register(ctx, RegisterParams{Email: "a@b.c", Name: "A", Password: "longenough"}); err != nil {
		t.Fatalf("first register: %v", err)
	}
	_, err := svc.Register(ctx, RegisterParams{Email: "a@b.c", Name: "B", Password: "longenough"})
	if !errors.Is(err, domainuser.ErrEmailAlreadyUsed) {
		t.Fatalf("expected ErrEmailAlreadyUsed, got %v", err)
	}
}

func TestLogin(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	if _, err := svc.Register(ctx, RegisterParams{Email: "a@b.c", Name: "A", Password: "longenough"}); err != nil {
		t.Fatalf("register: %v", err)
	}

	result, err := svc.Login(ctx, LoginParams{Email: "A@B.C", Password: "longenough"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if result.Token == "" {
		t.Fatal("login must issue a token")
	}

	if _, err := svc.Login(ctx, LoginParams{Email: "a@b.c", Password: "wrong"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password: expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Login(ctx, LoginParams{Email: "nobody@b.c", Password: "longenough"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown email: expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLogoutInvalidatesToken(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	result, err := svc.Register(ctx, RegisterParams{Email: "a@b.c", Name: "A", Password: "longenough"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := svc.Logout(ctx, result.Token); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := svc.ResolveToken(ctx, result.Token); !errors.Is(err, domainauth.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound after logout, got %v", err)
	}
}

func TestResolveExpiredSession(t *testing.T) {
	svc := newService()
	svc.SessionTTL = time.Nanosecond
	ctx := context.Background()

	result, err := svc.Register(ctx, RegisterParams{Email: "a@b.c", Name: "A", Password: "longenough"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	time.Sleep(time.Millisecond)
	if _, err := svc.ResolveToken(ctx, result.Token); !errors.Is(err, domainauth.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound for expired session, got %v", err)
	}
}
