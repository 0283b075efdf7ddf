package ginserver

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	gin "github.com/gin-gonic/gin"

	authsvc "tradepost/internal/app/services/auth"
	domainauth "tradepost/internal/domain/auth"
	domainuser "tradepost/internal/domain/user"
)

const principalContextKey = "tradepost.principal"

type principal struct {
	ID        string
	Email     string
	Name      string
	AvatarURL string
	Roles     []string
	Token     string
	CreatedAt time.Time
}

func (p principal) HasRole(role string) bool {
	role = strings.ToLower(strings.TrimSpace(role))
	if role == "" {
		return false
	}
	for _, r := range p.Roles {
		if strings.ToLower(r) == role {
			return true
		}
	}
	return false
}

func (p principal) DomainRoles() []domainuser.Role {
	roles := make([]domainuser.Role, 0, len(p.Roles))
	for _, r := range p.Roles {
		roles = append(roles, domainuser.Role(r))
	}
	return roles
}

// AuthMiddleware resolves bearer tokens into a request principal. An
// absent or invalid token leaves the request anonymous; handlers decide
// whether that is acceptable.
type AuthMiddleware struct {
	Service *authsvc.Service
	Logger  *slog.Logger
}

func (m AuthMiddleware) Handle(c *gin.Context) {
	token := extractBearerToken(c.GetHeader("Authorization"))
	if token == "" || m.Service == nil {
		c.Next()
		return
	}
	resolved, err := m.Service.ResolveToken(c.Request.Context(), token)
	if err != nil {
		if !errors.Is(err, domainauth.ErrSessionNotFound) && m.Logger != nil {
			m.Logger.Debug("token validation failed", "error", err)
		}
		c.Next()
		return
	}
	account := resolved.User
	setPrincipal(c, principal{
		ID:        string(account.ID),
		Email:     account.Email,
		Name:      account.Name,
		AvatarURL: account.AvatarURL,
		Roles:     mapRoles(account.Roles),
		Token:     token,
		CreatedAt: account.CreatedAt,
	})
	c.Next()
}

func mapRoles(roles []domainuser.Role) []string {
	result := make([]string, 0, len(roles))
	for _, r := range roles {
		result = append(result, string(r))
	}
	return result
}

func setPrincipal(c *gin.Context, p principal) {
	c.Set(principalContextKey, p)
}

func currentPrincipal(c *gin.Context) (principal, bool) {
	val, exists := c.Get(principalContextKey)
	if !exists {
		return principal{}, false
	}
	p, ok := val.(principal)
	return p, ok
}

func requireAuth(c *gin.Context) (principal, bool) {
	p, ok := currentPrincipal(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "auth required")
		return principal{}, false
	}
	return p, true
}

func extractBearerToken(header string) string {
	if header == "" {
		return ""
	}
	if !strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
