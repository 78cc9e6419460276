package api

import (
	"errors"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"asset-tracker-backend/internal/item"
	"asset-tracker-backend/internal/notification"
	"asset-tracker-backend/internal/parse"
	"asset-tracker-backend/internal/photo"
	"asset-tracker-backend/internal/realtime"
	"asset-tracker-backend/internal/store"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store    store.Store
	items    *item.Service
	inbox    *notification.ReadState
	photos   *photo.Storage
	registry *realtime.Registry
	webpush  *webpush.Options
	upgrader websocket.Upgrader
	log      *zap.Logger
}

// Deps lists what NewHandler wires together. Webpush may be nil.
type Deps struct {
	Store    store.Store
	Items    *item.Service
	Inbox    *notification.ReadState
	Photos   *photo.Storage
	Registry *realtime.Registry
	Webpush  *webpush.Options
	Log      *zap.Logger
}

// NewHandler creates a new API handler.
func NewHandler(d Deps) *Handler {
	return &Handler{
		store:    d.Store,
		items:    d.Items,
		inbox:    d.Inbox,
		photos:   d.Photos,
		registry: d.Registry,
		webpush:  d.Webpush,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		log: d.Log,
	}
}

// respondError maps service errors onto status codes. Unknown errors are
// logged and reported as a generic failure.
func (h *Handler) respondError(c *gin.Context, err error) {
	var (
		verr *store.ValidationError
		perr *parse.ParseError
	)
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": "not found"})
	case errors.As(err, &verr), errors.As(err, &perr), errors.Is(err, photo.ErrUnsupportedFormat):
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
	default:
		c.Error(err)
		h.log.Error("Request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "internal server error"})
	}
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"message": msg})
}

// Healthz reports whether the database answers.
func (h *Handler) Healthz(c *gin.Context) {
	if err := h.store.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
