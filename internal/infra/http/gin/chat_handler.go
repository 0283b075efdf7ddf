package ginserver

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	gin "github.com/gin-gonic/gin"

	chatapp "tradepost/internal/app/chat"
	domainchat "tradepost/internal/domain/chat"
	domainlistings "tradepost/internal/domain/listings"
	domainuser "tradepost/internal/domain/user"
)

// ChatHandler exposes conversation messaging over HTTP.
type ChatHandler struct {
	Service *chatapp.Service
	Logger  *slog.Logger
}

type postMessageRequest struct {
	Text string `json:"text"`
}

// ResolveConversation handles POST /listings/:id/conversations. It
// returns 201 when a new thread was created, 200 when the caller's
// existing thread was found.
func (h ChatHandler) ResolveConversation(c *gin.Context) {
	caller, ok := requireAuth(c)
	if !ok {
		return
	}
	listingID := c.Param("id")
	conversation, created, err := h.Service.ResolveConversation(c.Request.Context(), listingID, domainuser.ID(caller.ID))
	if err != nil {
		h.respondChatError(c, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	respondOK(c, status, gin.H{"conversation": conversation, "is_new": created})
}

// PostMessage handles POST /conversations/:id/messages.
func (h ChatHandler) PostMessage(c *gin.Context) {
	caller, ok := requireAuth(c)
	if !ok {
		return
	}
	var req postMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	message, err := h.Service.PostMessage(c.Request.Context(), c.Param("id"), domainuser.ID(caller.ID), req.Text)
	if err != nil {
		h.respondChatError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, gin.H{"message": message})
}

// ListConversations handles GET /conversations.
func (h ChatHandler) ListConversations(c *gin.Context) {
	caller, ok := requireAuth(c)
	if !ok {
		return
	}
	limit, offset := pageParams(c)
	list, err := h.Service.ListConversations(c.Request.Context(), domainuser.ID(caller.ID), limit, offset)
	if err != nil {
		h.respondChatError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"conversations": list.Items, "pagination": list.Pagination})
}

// ListMessages handles GET /conversations/:id/messages.
func (h ChatHandler) ListMessages(c *gin.Context) {
	caller, ok := requireAuth(c)
	if !ok {
		return
	}
	limit, offset := pageParams(c)
	list, conversation, err := h.Service.ListMessages(c.Request.Context(), c.Param("id"), domainuser.ID(caller.ID), limit, offset)
	if err != nil {
		h.respondChatError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{
		"conversation": conversation,
		"messages":     list.Items,
		"pagination":   list.Pagination,
	})
}

// MarkRead handles POST /conversations/:id/read.
func (h ChatHandler) MarkRead(c *gin.Context) {
	caller, ok := requireAuth(c)
	if !ok {
		return
	}
	marked, err := h.Service.MarkRead(c.Request.Context(), c.Param("id"), domainuser.ID(caller.ID))
	if err != nil {
		h.respondChatError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"marked_count": marked})
}

// UnreadCount handles GET /conversations/unread-count.
func (h ChatHandler) UnreadCount(c *gin.Context) {
	caller, ok := requireAuth(c)
	if !ok {
		return
	}
	total, err := h.Service.UnreadCount(c.Request.Context(), domainuser.ID(caller.ID))
	if err != nil {
		h.respondChatError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"unread_count": total})
}

// DeleteConversation handles DELETE /conversations/:id.
func (h ChatHandler) DeleteConversation(c *gin.Context) {
	caller, ok := requireAuth(c)
	if !ok {
		return
	}
	err := h.Service.DeleteConversation(c.Request.Context(), c.Param("id"), domainuser.ID(caller.ID), caller.DomainRoles())
	if err != nil {
		h.respondChatError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"deleted": true})
}

func (h ChatHandler) respondChatError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domainchat.ErrConversationNotFound),
		errors.Is(err, domainlistings.ErrNotFound):
		respondError(c, http.StatusNotFound, "not found")
	case errors.Is(err, domainchat.ErrNotParticipant):
		respondError(c, http.StatusForbidden, "not a participant")
	case errors.Is(err, domainchat.ErrSelfConversation):
		respondError(c, http.StatusBadRequest, "cannot message yourself about your own listing")
	case errors.Is(err, domainchat.ErrEmptyMessage):
		respondError(c, http.StatusBadRequest, "message text required")
	default:
		if h.Logger != nil {
			h.Logger.Error("chat operation failed", "error", err, "path", c.FullPath())
		}
		respondError(c, http.StatusInternalServerError, "internal error")
	}
}

func pageParams(c *gin.Context) (int, int) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	return limit, offset
}
