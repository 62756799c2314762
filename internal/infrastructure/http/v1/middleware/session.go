// Package middleware carries gin middleware for the v1 API.
package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ishiev/rtiles/internal/repository/access"
	"github.com/ishiev/rtiles/pkg/config"
)

const sessionContextKey = "session"

// Session extracts the caller's session cookie. A request without the
// cookie still gets a zero session, so handlers respond uniformly.
func Session(cfg config.Access) gin.HandlerFunc {
	return func(c *gin.Context) {
		var session access.Session
		if cookie, err := c.Cookie(cfg.CookieName); err == nil && cookie != "" {
			now := time.Now()
			session = access.Session{
				ID:        cookie,
				IssuedAt:  now,
				ExpiresAt: now.Add(cfg.SessionTTL),
			}
		}
		c.Set(sessionContextKey, session)
		c.Next()
	}
}

func SessionFromContext(c *gin.Context) access.Session {
	v, ok := c.Get(sessionContextKey)
	if !ok {
		return access.Session{}
	}
	return v.(access.Session)
}
