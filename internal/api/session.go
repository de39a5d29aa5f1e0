package api

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	sessionCookie = "storefront_session"
	sessionCtxKey = "session_id"
)

// SessionMiddleware identifies the browsing session. A missing or invalid
// cookie gets a fresh UUID; the cookie has no Max-Age so it lives for the
// browser session, matching the cart's lifetime.
func SessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		sid, err := c.Cookie(sessionCookie)
		if err != nil || !validSessionID(sid) {
			sid = uuid.New().String()
			c.SetCookie(sessionCookie, sid, 0, "/", "", false, true)
		}
		c.Set(sessionCtxKey, sid)
		c.Next()
	}
}

func validSessionID(sid string) bool {
	_, err := uuid.Parse(sid)
	return err == nil
}

func sessionID(c *gin.Context) string {
	return c.GetString(sessionCtxKey)
}
