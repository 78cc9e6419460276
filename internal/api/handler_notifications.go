package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"asset-tracker-backend/internal/mw"
)

// currentUserID must only be used behind mw.RequireUser.
func currentUserID(c *gin.Context) string {
	id, _ := mw.Actor(c).UserID()
	return id
}

// ListNotifications returns the caller's newest notifications.
func (h *Handler) ListNotifications(c *gin.Context) {
	rows, err := h.inbox.List(c.Request.Context(), currentUserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *Handler) UnreadCount(c *gin.Context) {
	n, err := h.inbox.UnreadCount(c.Request.Context(), currentUserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": n})
}

// MarkRead flips one notification. Someone else's id answers like an
// already-read one.
func (h *Handler) MarkRead(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		badRequest(c, "invalid notification id")
		return
	}
	n, err := h.inbox.MarkRead(c.Request.Context(), id, currentUserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": n})
}

func (h *Handler) MarkAllRead(c *gin.Context) {
	n, err := h.inbox.MarkAllRead(c.Request.Context(), currentUserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": n})
}
