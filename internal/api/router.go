package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"asset-tracker-backend/config"
	"asset-tracker-backend/internal/mw"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(h *Handler, cfg *config.Config, limiter *mw.IPRateLimiter, log *zap.Logger) *gin.Engine {
	r := gin.New()
	if cfg.Uploads.MaxFormMemory > 0 {
		r.MaxMultipartMemory = cfg.Uploads.MaxFormMemory
	}
	r.Use(
		gin.Recovery(),
		mw.BodyLimit(cfg.Uploads.MaxBytes),
		mw.CurrentUser(cfg.Server.UserHeader),
		mw.RequestLogger(log),
	)

	ttl := time.Duration(cfg.Server.CacheTTLSeconds) * time.Second
	responses := mw.NewResponseCache(ttl)
	caching := mw.Cache(responses, ttl)

	r.GET("/healthz", h.Healthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.Static(h.photos.URLPrefix(), h.photos.Dir())

	api := r.Group("/api")
	api.Use(mw.RateLimiter(limiter), mw.Invalidate(responses))
	{
		api.GET("/items", caching, h.ListItems)
		api.GET("/items/:id", caching, h.GetItem)
		api.POST("/items", h.CreateItem)
		api.PUT("/items/:id", h.UpdateItem)
		api.DELETE("/items/:id", h.DeleteItem)
		api.POST("/items/:id/maintenance", h.AddMaintenance)
		api.PUT("/items/:id/maintenance", h.ReplaceMaintenance)
		api.POST("/items/:id/loans", h.AddLoan)
		api.PUT("/items/:id/loans", h.ReplaceLoans)

		api.GET("/users", caching, h.ListUsers)
		api.POST("/users", h.CreateUser)

		inbox := api.Group("/notifications", mw.RequireUser())
		inbox.GET("", h.ListNotifications)
		inbox.GET("/unread-count", h.UnreadCount)
		inbox.PUT("/read-all", h.MarkAllRead)
		inbox.PUT("/:id/read", h.MarkRead)

		api.GET("/subscriptions", h.GetSubscription)
		api.PUT("/subscriptions", mw.RequireUser(), h.PutSubscription)
		api.DELETE("/subscriptions", h.DeleteSubscription)
		api.GET("/vapid_public_key", h.GetVAPIDPublicKey)

		api.GET("/ws", h.ServeWS)
	}

	return r
}
