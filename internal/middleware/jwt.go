package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/stemsi/qbank-console/internal/model"
	"github.com/stemsi/qbank-console/internal/remote"
	"github.com/stemsi/qbank-console/internal/response"
)

const (
	// ContextKeyToken is the Gin context key for the caller's bearer token.
	ContextKeyToken = "bearer_token"
	// ContextKeyCreator is the Gin context key for the identity read from the token.
	ContextKeyCreator = "creator"
)

// CreatorResolver reads the caller's identity from a bearer token.
type CreatorResolver interface {
	CreatorFromToken(token string) (model.Creator, error)
}

// RequireBearer requires a bearer token in the Authorization header, or in
// ?token=... for WebSocket upgrades which cannot send headers. The token is
// not verified here; the question service rejects it on the next call.
func RequireBearer(auth CreatorResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}

		creator, err := auth.CreatorFromToken(token)
		if err != nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenInvalid)
			return
		}

		c.Set(ContextKeyToken, token)
		c.Set(ContextKeyCreator, creator)
		c.Next()
	}
}

// GetCreator retrieves the caller's identity from the Gin context.
func GetCreator(c *gin.Context) model.Creator {
	val, exists := c.Get(ContextKeyCreator)
	if !exists {
		return model.Creator{}
	}
	creator, _ := val.(model.Creator)
	return creator
}

// UpstreamContext returns the request context carrying the caller's token
// for calls to the question service.
func UpstreamContext(c *gin.Context) context.Context {
	return remote.ContextWithToken(c.Request.Context(), c.GetString(ContextKeyToken))
}

func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	return strings.TrimSpace(c.Query("token"))
}
