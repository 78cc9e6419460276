package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"asset-tracker-backend/internal/mw"
	"asset-tracker-backend/internal/realtime"
)

// ServeWS upgrades to the live notification channel. A caller whose identity
// is already known joins its channel right away; others send a join message.
func (h *Handler) ServeWS(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("Websocket upgrade failed", zap.Error(err))
		return
	}

	userID, _ := mw.Actor(c).UserID()
	realtime.NewClient(conn, h.registry, h.log).Serve(userID)
}
