package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	model "auction-house/internal/models"
	accounthandler "auction-house/services/account/handler"
	"auction-house/services/auction/helpers"
	"auction-house/utils"
)

// SessionResolver turns a session cookie value into its user
type SessionResolver interface {
	UserFromSession(sessionID string) (model.User, error)
}

// RequestLoggerMiddleware logs incoming requests with timing
func RequestLoggerMiddleware(c *gin.Context) {
	start := time.Now()

	c.Next() // process request

	utils.Info("HTTP Request", map[string]any{
		"method":  c.Request.Method,
		"path":    c.Request.URL.Path,
		"status":  c.Writer.Status(),
		"latency": time.Since(start).String(),
	})
}

// SessionMiddleware resolves the session cookie, if present, and injects the
// user into the request context. Anonymous requests pass through.
func SessionMiddleware(resolver SessionResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		if sid, err := c.Cookie(accounthandler.SessionCookieName); err == nil && sid != "" {
			if user, err := resolver.UserFromSession(sid); err == nil {
				c.Set(helpers.ContextUserKey, user)
			}
		}
		c.Next()
	}
}

// RequireAuth redirects unauthenticated callers to the login page
func RequireAuth(c *gin.Context) {
	if _, ok := helpers.CurrentUser(c); !ok {
		c.Redirect(http.StatusSeeOther, "/login")
		c.Abort()
		return
	}
	c.Next()
}
