package api

import (
	"net/http"
	"strings"

	"sheet-broadcast/internal/sms"

	"github.com/gin-gonic/gin"
)

func (h *Handler) SaveCredentials(c *gin.Context) {
	var creds sms.Credentials
	if err := c.ShouldBind(&creds); err != nil {
		h.renderDashboard(c, http.StatusBadRequest, err.Error(), "")
		return
	}
	creds.AccountSID = strings.TrimSpace(creds.AccountSID)
	creds.AuthToken = strings.TrimSpace(creds.AuthToken)
	creds.FromNumber = strings.TrimSpace(creds.FromNumber)

	if err := creds.Validate(); err != nil {
		h.renderDashboard(c, http.StatusBadRequest, "Please fill in all Twilio credentials to proceed.", "")
		return
	}

	currentSession(c).SetCredentials(creds)
	h.Webhook.RegisterAccount(creds.AccountSID, creds.AuthToken)

	c.Redirect(http.StatusSeeOther, "/")
}
