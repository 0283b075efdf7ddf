package ginserver

import (
	"errors"
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"tradepost/internal/app/dto"
	authsvc "tradepost/internal/app/services/auth"
	domainuser "tradepost/internal/domain/user"
)

// AuthHandler exposes registration, login and session endpoints.
type AuthHandler struct {
	Service *authsvc.Service
	Logger  *slog.Logger
}

type registerRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	result, err := h.Service.Register(c.Request.Context(), authsvc.RegisterParams{
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
	})
	if err != nil {
		h.respondAuthError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, gin.H{"token": result.Token, "user": userDTO(result.User)})
}

func (h AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	result, err := h.Service.Login(c.Request.Context(), authsvc.LoginParams{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.respondAuthError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"token": result.Token, "user": userDTO(result.User)})
}

func (h AuthHandler) Logout(c *gin.Context) {
	caller, ok := requireAuth(c)
	if !ok {
		return
	}
	if err := h.Service.Logout(c.Request.Context(), caller.Token); err != nil {
		h.respondAuthError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{})
}

func (h AuthHandler) Me(c *gin.Context) {
	caller, ok := requireAuth(c)
	if !ok {
		return
	}
	respondOK(c, http.StatusOK, gin.H{"user": dto.User{
		ID:        caller.ID,
		Email:     caller.Email,
		Name:      caller.Name,
		AvatarURL: caller.AvatarURL,
		Roles:     caller.Roles,
		CreatedAt: caller.CreatedAt,
	}})
}

func (h AuthHandler) respondAuthError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, authsvc.ErrInvalidCredentials):
		respondError(c, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, authsvc.ErrPasswordTooShort),
		errors.Is(err, domainuser.ErrEmailRequired),
		errors.Is(err, domainuser.ErrNameRequired):
		respondError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, domainuser.ErrEmailAlreadyUsed):
		respondError(c, http.StatusConflict, "email already registered")
	default:
		if h.Logger != nil {
			h.Logger.Error("auth operation failed", "error", err, "path", c.FullPath())
		}
		respondError(c, http.StatusInternalServerError, "internal error")
	}
}

func userDTO(account *domainuser.User) dto.User {
	return dto.User{
		ID:        string(account.ID),
		Email:     account.Email,
		Name:      account.Name,
		AvatarURL: account.AvatarURL,
		Roles:     mapRoles(account.Roles),
		CreatedAt: account.CreatedAt,
	}
}
