package api

import (
	"os"

	"sheet-broadcast/internal/broadcast"
	"sheet-broadcast/internal/models"
	"sheet-broadcast/internal/session"
	"sheet-broadcast/internal/sheets"

	"github.com/gin-gonic/gin"
)

type pageData struct {
	Title   string
	HasLogo bool
	Error   string
	Info    string

	GoogleAuthorized bool
	Table            *sheets.Table
	FetchedAt        string
	Eligible         int

	AccountSID     string
	FromNumber     string
	HasCredentials bool
	Running        bool

	Run     *session.Run
	Summary broadcast.Summary

	Runs []models.BroadcastRun
}

func (h *Handler) page(errMsg string) pageData {
	return pageData{
		Title:   h.Config.PortalTitle,
		HasLogo: fileExists(h.Config.LogoPath),
		Error:   errMsg,
	}
}

// renderDashboard draws the four-step form from the session's current state.
func (h *Handler) renderDashboard(c *gin.Context, status int, errMsg, info string) {
	s := currentSession(c)

	data := h.page(errMsg)
	data.Info = info
	data.GoogleAuthorized = h.Google.Authorized()

	if table, fetchedAt, ok := s.Table(); ok {
		data.Table = table
		data.FetchedAt = formatTime(fetchedAt)
		data.Eligible = broadcast.CountEligible(table.Contacts)
	}

	if creds, ok := s.Credentials(); ok {
		data.AccountSID = creds.AccountSID
		data.FromNumber = creds.FromNumber
		data.HasCredentials = true
	}
	data.Running = s.Running()

	if run, ok := s.LastRun(); ok {
		data.Run = run
		data.Summary = broadcast.Summarize(run.Entries)
	}

	c.HTML(status, "index.html", data)
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
