package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	chatapp "tradepost/internal/app/chat"
	authsvc "tradepost/internal/app/services/auth"
	"tradepost/internal/app/uow"
	domainauth "tradepost/internal/domain/auth"
	domainlistings "tradepost/internal/domain/listings"
	domainuser "tradepost/internal/domain/user"
	"tradepost/internal/infra/broker/kafka"
	"tradepost/internal/infra/config"
	"tradepost/internal/infra/db/postgres"
	ginserver "tradepost/internal/infra/http/gin"
	"tradepost/internal/infra/obs"
	infraoutbox "tradepost/internal/infra/outbox"
	"tradepost/internal/infra/security"
	"tradepost/internal/infra/sessions"
	"tradepost/internal/infra/storage/memory"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env := getenv("APP_ENV", "dev")
	logger := obs.NewLogger(env)

	cfg, err := config.Load()
	if err != nil {
		logger.Warn("using fallback configuration", "error", err)
		cfg.Env = env
		cfg.HTTPAddr = getenv("HTTP_ADDR", ":8080")
	}
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}

	app, err := buildApplication(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer app.close(logger)

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{
		Ready: app.ready,
	}, app.handlers)

	fixturesPath := cfg.FixturesPath
	if fixturesPath == "" {
		fixturesPath = defaultFixturesPath()
	}
	if err := app.loadFixtures(ctx, fixturesPath, logger); err != nil {
		logger.Warn("fixtures load failed", "error", err, "path", fixturesPath)
	}

	if app.outboxWorker != nil {
		go func() {
			if err := app.outboxWorker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("outbox worker stopped", "error", err)
			}
		}()
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("HTTP server stopped")
}

type application struct {
	handlers     ginserver.Handlers
	users        domainuser.Repository
	listings     domainlistings.Repository
	passwords    authsvc.PasswordHasher
	ready        func() error
	outboxWorker *infraoutbox.Worker
	cleanups     []func() error
}

func buildApplication(ctx context.Context, cfg config.Config, logger *slog.Logger) (*application, error) {
	app := &application{ready: func() error { return nil }}

	var (
		uowFactory uow.UoWFactory
		claims     infraoutbox.ClaimStore
	)
	if cfg.DatabaseURL != "" {
		pool, err := postgres.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		app.cleanups = append(app.cleanups, func() error { pool.Close(); return nil })
		if err := postgres.Bootstrap(ctx, pool); err != nil {
			return nil, err
		}
		uowFactory = postgres.Factory{Pool: pool}
		app.users = postgres.NewUserRepository(pool)
		app.listings = postgres.NewListingRepository(pool)
		claims = &postgres.OutboxClaimStore{Pool: pool}
		app.ready = func() error {
			pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return pool.Ping(pingCtx)
		}
		logger.Info("postgres storage ready")
	} else {
		mem := memory.NewFactory()
		uowFactory = mem
		app.users = mem.UsersRepo
		app.listings = mem.ListingsRepo
		claims = mem.OutboxStore
		logger.Info("using in-memory storage")
	}

	var sessionStore domainauth.SessionStore
	if cfg.RedisAddr != "" {
		store, err := sessions.NewRedisStore(ctx, cfg.RedisAddr)
		if err != nil {
			return nil, err
		}
		sessionStore = store
		logger.Info("redis sessions ready", "addr", cfg.RedisAddr)
	} else {
		sessionStore = sessions.NewMemoryStore()
		logger.Info("using in-memory sessions")
	}

	app.passwords = security.BcryptHasher{}
	authService := &authsvc.Service{
		Users:      app.users,
		Sessions:   sessionStore,
		Passwords:  app.passwords,
		Tokens:     security.RandomTokenGenerator{},
		SessionTTL: cfg.SessionTTL,
		Logger:     logger,
	}
	chatService := &chatapp.Service{
		UoWFactory: uowFactory,
		Logger:     logger,
	}

	if len(cfg.KafkaBrokers) > 0 {
		producer, err := kafka.NewProducer(cfg.KafkaBrokers, nil)
		if err != nil {
			return nil, err
		}
		app.cleanups = append(app.cleanups, producer.Close)
		app.outboxWorker = &infraoutbox.Worker{
			Store:       claims,
			Producer:    producer,
			Interval:    cfg.OutboxPollInterval,
			TopicPrefix: cfg.KafkaTopicPrefix,
			Backoff:     cfg.RetryBackoff,
		}
		logger.Info("outbox delivery enabled", "brokers", cfg.KafkaBrokers)
	} else {
		logger.Info("outbox delivery disabled, events stay queued")
	}

	app.handlers = ginserver.Handlers{
		Chat:           ginserver.ChatHandler{Service: chatService, Logger: logger},
		Auth:           ginserver.AuthHandler{Service: authService, Logger: logger},
		AuthMiddleware: ginserver.AuthMiddleware{Service: authService, Logger: logger}.Handle,
	}
	return app, nil
}

func (a *application) close(logger *slog.Logger) {
	for i := len(a.cleanups) - 1; i >= 0; i-- {
		if err := a.cleanups[i](); err != nil {
			logger.Error("cleanup failed", "error", err)
		}
	}
}

type fixtureFile struct {
	Users    []userFixture    `json:"users"`
	Listings []listingFixture `json:"listings"`
}

type userFixture struct {
	ID        string   `json:"id"`
	Email     string   `json:"email"`
	Name      string   `json:"name"`
	Password  string   `json:"password"`
	AvatarURL string   `json:"avatar_url"`
	Roles     []string `json:"roles"`
}

type listingFixture struct {
	ID           string `json:"id"`
	Seller       string `json:"seller"`
	Title        string `json:"title"`
	PriceCents   int64  `json:"price_cents"`
	ThumbnailURL string `json:"thumbnail_url"`
}

// loadFixtures seeds demo accounts and listings so a fresh process can
// serve conversations immediately. Missing file is not an error.
func (a *application) loadFixtures(ctx context.Context, path string, logger *slog.Logger) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Info("fixtures file not found, skipping", "path", path)
			return nil
		}
		return fmt.Errorf("read fixtures: %w", err)
	}
	if len(data) == 0 {
		logger.Warn("fixtures file empty", "path", path)
		return nil
	}

	var fixtures fixtureFile
	if err := json.Unmarshal(data, &fixtures); err != nil {
		return fmt.Errorf("decode fixtures: %w", err)
	}

	now := time.Now()
	for _, fx := range fixtures.Users {
		hash, err := a.passwords.Hash(fx.Password)
		if err != nil {
			logger.Error("fixture password hash failed", "user_id", fx.ID, "error", err)
			continue
		}
		roles := make([]domainuser.Role, 0, len(fx.Roles))
		for _, r := range fx.Roles {
			roles = append(roles, domainuser.Role(r))
		}
		account, err := domainuser.NewUser(domainuser.CreateParams{
			ID:           domainuser.ID(fx.ID),
			Email:        fx.Email,
			Name:         fx.Name,
			PasswordHash: hash,
			AvatarURL:    fx.AvatarURL,
			Roles:        roles,
			CreatedAt:    now,
		})
		if err != nil {
			logger.Error("fixture user invalid", "user_id", fx.ID, "error", err)
			continue
		}
		if err := a.users.Save(ctx, account); err != nil {
			logger.Error("cannot store fixture user", "user_id", fx.ID, "error", err)
			continue
		}
		logger.Info("user fixture imported", "user_id", account.ID)
	}

	for _, fx := range fixtures.Listings {
		listing, err := domainlistings.NewListing(domainlistings.CreateParams{
			ID:           domainlistings.ListingID(fx.ID),
			Seller:       domainuser.ID(fx.Seller),
			Title:        fx.Title,
			PriceCents:   fx.PriceCents,
			ThumbnailURL: fx.ThumbnailURL,
			CreatedAt:    now,
		})
		if err != nil {
			logger.Error("fixture listing invalid", "listing_id", fx.ID, "error", err)
			continue
		}
		if err := a.listings.Save(ctx, listing); err != nil {
			logger.Error("cannot store fixture listing", "listing_id", fx.ID, "error", err)
			continue
		}
		logger.Info("listing fixture imported", "listing_id", listing.ID)
	}
	return nil
}

func defaultFixturesPath() string {
	candidates := []string{
		filepath.Join("data", "fixtures.json"),
		filepath.Join("..", "data", "fixtures.json"),
	}
	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return candidates[0]
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
