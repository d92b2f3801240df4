package middleware

import (
	"strings"

	"stagepass/internal/core/domain"
	"stagepass/internal/core/ports"
	"stagepass/internal/core/services"
	"stagepass/pkg/errors"
	"stagepass/pkg/logger"

	"github.com/gin-gonic/gin"
)

// UserIDKey is the gin context key holding the authenticated caller.
const UserIDKey = "stagepass.user_id"

// UserID returns the authenticated caller, or "" for anonymous requests.
func UserID(c *gin.Context) domain.UserID {
	if v, ok := c.Get(UserIDKey); ok {
		if id, ok := v.(domain.UserID); ok {
			return id
		}
	}
	return ""
}

func bearerToken(c *gin.Context) (string, bool) {
	scheme, token, found := strings.Cut(c.GetHeader("Authorization"), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", false
	}
	return token, true
}

func setCaller(c *gin.Context, id domain.UserID) {
	c.Set(UserIDKey, id)
	c.Request = c.Request.WithContext(logger.WithUserID(c.Request.Context(), string(id)))
}

func AuthMiddleware(authService services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			_ = c.Error(errors.NewUnauthenticatedError("authorization header required"))
			c.Abort()
			return
		}

		token, ok := bearerToken(c)
		if !ok {
			_ = c.Error(errors.NewUnauthenticatedError("invalid authorization header format"))
			c.Abort()
			return
		}

		claims, err := authService.ValidateToken(token)
		if err != nil {
			_ = c.Error(errors.NewUnauthenticatedError(err.Error()))
			c.Abort()
			return
		}

		setCaller(c, claims.UserID)
		c.Next()
	}
}

// OptionalAuthMiddleware identifies the caller when a valid bearer token is
// present and lets the request through anonymously otherwise.
func OptionalAuthMiddleware(authService services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, ok := bearerToken(c); ok {
			if claims, err := authService.ValidateToken(token); err == nil {
				setCaller(c, claims.UserID)
			}
		}
		c.Next()
	}
}

// AdminMiddleware requires the caller to hold the administrator flag.
func AdminMiddleware(accessService ports.AccessService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := accessService.RequireAdmin(c.Request.Context(), UserID(c)); err != nil {
			_ = c.Error(err)
			c.Abort()
			return
		}
		c.Next()
	}
}
