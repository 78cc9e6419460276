package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"asset-tracker-backend/internal/model"
)

type putSubscriptionRequest struct {
	Endpoint string `json:"endpoint" binding:"required"`
	P256DH   string `json:"p256dh" binding:"required"`
	Auth     string `json:"auth" binding:"required"`
}

// PutSubscription registers or replaces the caller's browser push endpoint.
func (h *Handler) PutSubscription(c *gin.Context) {
	var req putSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	subscription := model.PushSubscription{
		Endpoint: req.Endpoint,
		P256DH:   req.P256DH,
		Auth:     req.Auth,
		UserID:   currentUserID(c),
	}
	if err := h.store.SaveSubscription(c.Request.Context(), &subscription); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusCreated)
}

type deleteSubscriptionRequest struct {
	Endpoint string `json:"endpoint"`
}

// DeleteSubscription unregisters a push endpoint. The endpoint comes from the
// JSON body or the raw query string. A known caller may only remove endpoints
// registered to them.
func (h *Handler) DeleteSubscription(c *gin.Context) {
	var req deleteSubscriptionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
	}
	if req.Endpoint == "" {
		req.Endpoint, _ = rawQueryParam(c.Request.URL.RawQuery, "endpoint")
	}
	if req.Endpoint == "" {
		badRequest(c, "endpoint is required")
		return
	}

	ctx := c.Request.Context()
	if userID := currentUserID(c); userID != "" {
		sub, err := h.store.GetSubscription(ctx, req.Endpoint)
		if err != nil {
			h.respondError(c, err)
			return
		}
		if sub.UserID != userID {
			c.JSON(http.StatusForbidden, gin.H{"message": "subscription belongs to another user"})
			return
		}
	}
	if err := h.store.DeleteSubscription(ctx, req.Endpoint); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// rawQueryParam reads a query value without URL decoding. Push endpoints
// carry percent-encoded tokens that must round-trip byte for byte.
func rawQueryParam(rawQuery, key string) (string, bool) {
	for _, kv := range strings.Split(rawQuery, "&") {
		if strings.HasPrefix(kv, key+"=") {
			return kv[len(key)+1:], true
		}
	}
	return "", false
}

// GetSubscription reports who a push endpoint is registered to.
func (h *Handler) GetSubscription(c *gin.Context) {
	raw, ok := rawQueryParam(c.Request.URL.RawQuery, "endpoint")
	if !ok || raw == "" {
		badRequest(c, "endpoint is required")
		return
	}

	sub, err := h.store.GetSubscription(c.Request.Context(), raw)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"endpoint": sub.Endpoint, "userId": sub.UserID})
}
