package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"

	domainauth "tradepost/internal/domain/auth"
	domainuser "tradepost/internal/domain/user"
)

const keyPrefix = "session:"

// RedisStore keeps sessions in Redis with a TTL matching the session
// expiry, so stale tokens vanish without a reaper.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to the given address and verifies the
// connection with a ping.
func NewRedisStore(ctx context.Context, addr string) (*RedisStore, error) {
	if addr == "" {
		return nil, errors.New("sessions: redis address is required")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("sessions: redis ping: %w", err)
	}
	return &RedisStore{client: client}, nil
}

type sessionRecord struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	Roles     []string  `json:"roles"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (s *RedisStore) Save(ctx context.Context, session *domainauth.Session) error {
	record := sessionRecord{
		Token:     string(session.Token),
		UserID:    string(session.UserID),
		CreatedAt: session.CreatedAt,
		ExpiresAt: session.ExpiresAt,
	}
	for _, r := range session.Roles {
		record.Roles = append(record.Roles, string(r))
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return err
	}
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return domainauth.ErrTTLInvalid
	}
	return s.client.Set(ctx, keyPrefix+string(session.Token), payload, ttl).Err()
}

func (s *RedisStore) Get(ctx context.Context, token domainauth.Token) (*domainauth.Session, error) {
	payload, err := s.client.Get(ctx, keyPrefix+string(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domainauth.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	var record sessionRecord
	if err := json.Unmarshal(payload, &record); err != nil {
		return nil, err
	}
	session := &domainauth.Session{
		Token:     domainauth.Token(record.Token),
		UserID:    domainuser.ID(record.UserID),
		CreatedAt: record.CreatedAt,
		ExpiresAt: record.ExpiresAt,
	}
	for _, r := range record.Roles {
		session.Roles = append(session.Roles, domainuser.Role(r))
	}
	return session, nil
}

func (s *RedisStore) Delete(ctx context.Context, token domainauth.Token) error {
	return s.client.Del(ctx, keyPrefix+string(token)).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

var _ domainauth.SessionStore = (*RedisStore)(nil)
