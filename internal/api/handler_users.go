package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"asset-tracker-backend/internal/model"
)

type createUserRequest struct {
	ID   string `json:"id"`
	Name string `json:"name" binding:"required"`
	Role string `json:"role"`
}

func (h *Handler) ListUsers(c *gin.Context) {
	users, err := h.store.ListUsers(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

// CreateUser adds a member to the directory used for fan-out.
func (h *Handler) CreateUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	user := model.User{
		ID:   strings.TrimSpace(req.ID),
		Name: strings.TrimSpace(req.Name),
		Role: req.Role,
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if err := h.store.CreateUser(c.Request.Context(), &user); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}
