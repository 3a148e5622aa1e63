package api

import (
	"net/http"

	"sheet-broadcast/internal/session"

	"github.com/gin-gonic/gin"
)

const (
	sessionCookie = "sb_session"
	sessionKey    = "session"
)

func (h *Handler) loadSession(c *gin.Context) {
	if id, err := c.Cookie(sessionCookie); err == nil {
		if s, ok := h.Sessions.Get(id); ok {
			c.Set(sessionKey, s)
		}
	}
	c.Next()
}

func (h *Handler) requireSession(c *gin.Context) {
	if _, ok := c.Get(sessionKey); !ok {
		c.Redirect(http.StatusFound, "/login")
		c.Abort()
		return
	}
	c.Next()
}

func currentSession(c *gin.Context) *session.Session {
	v, ok := c.Get(sessionKey)
	if !ok {
		return nil
	}
	s, _ := v.(*session.Session)
	return s
}

func setSessionCookie(c *gin.Context, id string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookie, id, maxAge, "/", "", c.Request.TLS != nil, true)
}
