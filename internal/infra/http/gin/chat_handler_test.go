package ginserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	chatapp "tradepost/internal/app/chat"
	authsvc "tradepost/internal/app/services/auth"
	domainlistings "tradepost/internal/domain/listings"
	domainuser "tradepost/internal/domain/user"
	"tradepost/internal/infra/config"
	"tradepost/internal/infra/obs"
	"tradepost/internal/infra/security"
	"tradepost/internal/infra/sessions"
	"tradepost/internal/infra/storage/memory"
)

type testEnv struct {
	router  http.Handler
	auth    *authsvc.Service
	factory memory.Factory
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	factory := memory.NewFactory()

	authService := &authsvc.Service{
		Users:      factory.UsersRepo,
		Sessions:   sessions.NewMemoryStore(),
		Passwords:  security.BcryptHasher{Cost: 4},
		Tokens:     security.RandomTokenGenerator{},
		SessionTTL: time.Hour,
	}
	chatService := &chatapp.Service{UoWFactory: factory}

	server := NewServer(config.Config{Env: "test", HTTPAddr: ":0"}, obs.Middleware{}, obs.HealthHandlers{}, Handlers{
		Chat:           ChatHandler{Service: chatService},
		Auth:           AuthHandler{Service: authService},
		AuthMiddleware: AuthMiddleware{Service: authService}.Handle,
	})
	return &testEnv{router: server.Handler, auth: authService, factory: factory}
}

func (e *testEnv) registerUser(t *testing.T, email, name string) string {
	t.Helper()
	result, err := e.auth.Register(context.Background(), authsvc.RegisterParams{
		Email:    email,
		Name:     name,
		Password: "longenough",
	})
	if err != nil {
		t.Fatalf("register %s: %v", email, err)
	}
	return result.Token
}

func (e *testEnv) seedListing(t *testing.T, id string, seller domainuser.ID) {
	t.Helper()
	listing, err := domainlistings.NewListing(domainlistings.CreateParams{
		ID:         domainlistings.ListingID(id),
		Seller:     seller,
		Title:      "Bike",
		PriceCents: 10000,
	})
	if err != nil {
		t.Fatalf("listing: %v", err)
	}
	if err := e.factory.ListingsRepo.Save(context.Background(), listing); err != nil {
		t.Fatalf("save listing: %v", err)
	}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var payload *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		payload = bytes.NewBuffer(data)
	} else {
		payload = bytes.NewBuffer(nil)
	}
	req := httptest.NewRequest(method, path, payload)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return body
}

func TestConversationFlowOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	buyerToken := env.registerUser(t, "buyer@example.com", "Buyer")
	sellerToken := env.registerUser(t, "seller@example.com", "Seller")

	seller, err := env.factory.UsersRepo.ByEmail(context.Background(), "seller@example.com")
	if err != nil {
		t.Fatalf("load seller: %v", err)
	}
	env.seedListing(t, "l-1", seller.ID)

	// First contact creates the thread.
	rec := env.do(t, http.MethodPost, "/api/v1/listings/l-1/conversations", buyerToken, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("resolve: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decode(t, rec)
	if isNew := body["is_new"].(bool); !isNew {
		t.Fatal("first resolve must report is_new")
	}
	conversation := body["conversation"].(map[string]any)
	convID := conversation["id"].(string)

	// Second resolve finds the same thread.
	rec = env.do(t, http.MethodPost, "/api/v1/listings/l-1/conversations", buyerToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("second resolve: expected 200, got %d", rec.Code)
	}
	body = decode(t, rec)
	if isNew := body["is_new"].(bool); isNew {
		t.Fatal("second resolve must not report is_new")
	}
	if got := body["conversation"].(map[string]any)["id"].(string); got != convID {
		t.Fatalf("expected same conversation, got %s vs %s", got, convID)
	}

	// Post and read back a message.
	rec = env.do(t, http.MethodPost, "/api/v1/conversations/"+convID+"/messages", buyerToken, map[string]string{"text": "hello"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("post: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodGet, "/api/v1/conversations/"+convID+"/messages", sellerToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list messages: expected 200, got %d", rec.Code)
	}
	messages := decode(t, rec)["messages"].([]any)
	if len(messages) != 1 {
		t.Fatalf("expected one message, got %d", len(messages))
	}

	// Seller sees the unread, then clears it.
	rec = env.do(t, http.MethodGet, "/api/v1/conversations/unread-count", sellerToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("unread: expected 200, got %d", rec.Code)
	}
	if got := decode(t, rec)["unread_count"].(float64); got != 1 {
		t.Fatalf("expected 1 unread, got %v", got)
	}

	rec = env.do(t, http.MethodPost, "/api/v1/conversations/"+convID+"/read", sellerToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("mark read: expected 200, got %d", rec.Code)
	}
	if got := decode(t, rec)["marked_count"].(float64); got != 1 {
		t.Fatalf("expected 1 marked, got %v", got)
	}

	// Inbox shows the thread for the seller.
	rec = env.do(t, http.MethodGet, "/api/v1/conversations", sellerToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("inbox: expected 200, got %d", rec.Code)
	}
	items := decode(t, rec)["conversations"].([]any)
	if len(items) != 1 {
		t.Fatalf("expected one inbox row, got %d", len(items))
	}

	// Participant deletes the thread.
	rec = env.do(t, http.MethodDelete, "/api/v1/conversations/"+convID, buyerToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d", rec.Code)
	}
	rec = env.do(t, http.MethodDelete, "/api/v1/conversations/"+convID, buyerToken, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("double delete: expected 404, got %d", rec.Code)
	}
}

func TestChatEndpointsRejectAnonymous(t *testing.T) {
	env := newTestEnv(t)

	for _, route := range []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/v1/listings/l-1/conversations"},
		{http.MethodGet, "/api/v1/conversations"},
		{http.MethodGet, "/api/v1/conversations/unread-count"},
		{http.MethodPost, "/api/v1/conversations/c-1/messages"},
		{http.MethodDelete, "/api/v1/conversations/c-1"},
	} {
		rec := env.do(t, route.method, route.path, "", nil)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s: expected 401, got %d", route.method, route.path, rec.Code)
		}
	}
}

func TestChatErrorMapping(t *testing.T) {
	env := newTestEnv(t)
	buyerToken := env.registerUser(t, "buyer@example.com", "Buyer")
	strangerToken := env.registerUser(t, "stranger@example.com", "Stranger")
	sellerToken := env.registerUser(t, "seller@example.com", "Seller")

	seller, err := env.factory.UsersRepo.ByEmail(context.Background(), "seller@example.com")
	if err != nil {
		t.Fatalf("load seller: %v", err)
	}
	env.seedListing(t, "l-1", seller.ID)

	// Unknown listing.
	rec := env.do(t, http.MethodPost, "/api/v1/listings/l-missing/conversations", buyerToken, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown listing: expected 404, got %d", rec.Code)
	}

	// Seller contacting their own listing.
	rec = env.do(t, http.MethodPost, "/api/v1/listings/l-1/conversations", sellerToken, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("self contact: expected 400, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/api/v1/listings/l-1/conversations", buyerToken, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("resolve: expected 201, got %d", rec.Code)
	}
	convID := decode(t, rec)["conversation"].(map[string]any)["id"].(string)

	// Empty message body.
	rec = env.do(t, http.MethodPost, "/api/v1/conversations/"+convID+"/messages", buyerToken, map[string]string{"text": "   "})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("empty message: expected 400, got %d", rec.Code)
	}

	// A third account cannot touch the thread.
	rec = env.do(t, http.MethodGet, "/api/v1/conversations/"+convID+"/messages", strangerToken, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("stranger read: expected 403, got %d", rec.Code)
	}
	rec = env.do(t, http.MethodDelete, "/api/v1/conversations/"+convID, strangerToken, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("stranger delete: expected 403, got %d", rec.Code)
	}
}

func TestAuthEndpoints(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email":    "alice@example.com",
		"name":     "Alice",
		"password": "longenough",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	token := decode(t, rec)["token"].(string)

	rec = env.do(t, http.MethodGet, "/api/v1/auth/me", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("me: expected 200, got %d", rec.Code)
	}
	account := decode(t, rec)["user"].(map[string]any)
	if account["email"] != "alice@example.com" {
		t.Fatalf("wrong account: %v", account)
	}

	rec = env.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    "alice@example.com",
		"password": "wrong-password",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad login: expected 401, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/api/v1/auth/logout", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("logout: expected 200, got %d", rec.Code)
	}
	rec = env.do(t, http.MethodGet, "/api/v1/auth/me", token, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("me after logout: expected 401, got %d", rec.Code)
	}
}
