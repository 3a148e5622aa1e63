package api

import (
	"errors"
	"net/http"

	"sheet-broadcast/internal/auth"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

func (h *Handler) LoginPage(c *gin.Context) {
	if currentSession(c) != nil {
		c.Redirect(http.StatusFound, "/")
		return
	}
	c.HTML(http.StatusOK, "login.html", h.page(""))
}

func (h *Handler) Login(c *gin.Context) {
	if err := h.Gate.Check(c.PostForm("password")); err != nil {
		if errors.Is(err, auth.ErrInvalidPassword) {
			log.Warn().Str("client_ip", c.ClientIP()).Msg("failed login attempt")
		}
		c.HTML(http.StatusUnauthorized, "login.html", h.page("Incorrect password"))
		return
	}

	s := h.Sessions.Create()
	setSessionCookie(c, s.ID, 0)
	log.Info().Str("session_id", s.ID).Msg("operator logged in")

	c.Redirect(http.StatusSeeOther, "/")
}

func (h *Handler) Logout(c *gin.Context) {
	if s := currentSession(c); s != nil {
		h.Sessions.Delete(s.ID)
		log.Info().Str("session_id", s.ID).Msg("operator logged out")
	}
	setSessionCookie(c, "", -1)
	c.Redirect(http.StatusSeeOther, "/login")
}
