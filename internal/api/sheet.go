package api

import (
	"errors"
	"net/http"

	"sheet-broadcast/internal/sheets"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

func (h *Handler) Dashboard(c *gin.Context) {
	h.renderDashboard(c, http.StatusOK, "", "")
}

// FetchSheet loads the contact table into the session, sending the operator
// through Google consent first when no usable token is cached.
func (h *Handler) FetchSheet(c *gin.Context) {
	if h.fetchInto(c) {
		c.Redirect(http.StatusSeeOther, "/")
	}
}

func (h *Handler) GoogleStart(c *gin.Context) {
	state := currentSession(c).NewOAuthState()
	c.Redirect(http.StatusFound, h.Google.AuthCodeURL(state))
}

func (h *Handler) GoogleCallback(c *gin.Context) {
	s := currentSession(c)

	if reason := c.Query("error"); reason != "" {
		log.Warn().Str("reason", reason).Msg("google consent declined")
		h.renderDashboard(c, http.StatusBadRequest, "Google authorization was not granted: "+reason, "")
		return
	}
	if !s.ConsumeOAuthState(c.Query("state")) {
		h.renderDashboard(c, http.StatusBadRequest, "Google authorization expired, please try again.", "")
		return
	}

	if err := h.Google.Exchange(c.Request.Context(), c.Query("code")); err != nil {
		log.Error().Err(err).Msg("google token exchange failed")
		h.renderDashboard(c, http.StatusBadGateway, "Google authorization failed: "+err.Error(), "")
		return
	}

	if h.fetchInto(c) {
		c.Redirect(http.StatusSeeOther, "/")
	}
}

// fetchInto stores a fresh table in the session. It writes the response and
// returns false when the fetch did not succeed.
func (h *Handler) fetchInto(c *gin.Context) bool {
	s := currentSession(c)

	table, err := h.Source.Fetch(c.Request.Context())
	switch {
	case err == nil:
		s.SetTable(table)
		return true
	case errors.Is(err, sheets.ErrNoToken):
		c.Redirect(http.StatusSeeOther, "/auth/google")
	case errors.Is(err, sheets.ErrEmptyTable):
		h.renderDashboard(c, http.StatusUnprocessableEntity, "No data found in the sheet.", "")
	case errors.Is(err, sheets.ErrMissingColumn), errors.Is(err, sheets.ErrInvalidRange):
		h.renderDashboard(c, http.StatusUnprocessableEntity, err.Error(), "")
	default:
		log.Error().Err(err).Str("session_id", s.ID).Msg("sheet fetch failed")
		h.renderDashboard(c, http.StatusBadGateway, "Failed to fetch data: "+err.Error(), "")
	}
	return false
}
