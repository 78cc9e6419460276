package mw

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"asset-tracker-backend/internal/model"
)

const actorKey = "actor"

// CurrentUser resolves the acting user from the header, then the userId query
// parameter, then a userId form field. A request without any of them is
// anonymous, not rejected.
func CurrentUser(header string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(header))
		if id == "" {
			id = strings.TrimSpace(c.Query("userId"))
		}
		if id == "" && isForm(c.ContentType()) {
			id = strings.TrimSpace(c.PostForm("userId"))
		}
		c.Set(actorKey, model.ActingUser(id))
		c.Next()
	}
}

func isForm(contentType string) bool {
	return contentType == gin.MIMEMultipartPOSTForm || contentType == gin.MIMEPOSTForm
}

// Actor returns the actor resolved by CurrentUser.
func Actor(c *gin.Context) model.Actor {
	if v, ok := c.Get(actorKey); ok {
		if actor, ok := v.(model.Actor); ok {
			return actor
		}
	}
	return model.Anonymous()
}

// RequireUser rejects anonymous requests with 401.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := Actor(c).UserID(); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "user identity required"})
			return
		}
		c.Next()
	}
}
