package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type pushConfigResponse struct {
	PublicKey string `json:"publicKey"`
	// Subscribed is set when the current user has at least one registered
	// endpoint. Anonymous callers always get false.
	Subscribed bool `json:"subscribed"`
}

// GetVAPIDPublicKey returns the key browsers need to subscribe, along with
// whether the caller already receives push notifications.
func (h *Handler) GetVAPIDPublicKey(c *gin.Context) {
	if h.webpush == nil || h.webpush.VAPIDPublicKey == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"message": "web push is disabled"})
		return
	}

	resp := pushConfigResponse{PublicKey: h.webpush.VAPIDPublicKey}
	if userID := currentUserID(c); userID != "" {
		subs, err := h.store.SubscriptionsForUser(c.Request.Context(), userID)
		if err != nil {
			h.log.Warn("Subscription lookup failed", zap.String("user_id", userID), zap.Error(err))
		}
		resp.Subscribed = len(subs) > 0
	}
	c.JSON(http.StatusOK, resp)
}
