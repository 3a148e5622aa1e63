package webhook

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	twilioclient "github.com/twilio/twilio-go/client"
)

const StatusPath = "/webhook/twilio/status"

type StatusUpdater interface {
	UpdateDeliveryStatus(ctx context.Context, messageSID, status string) (int64, error)
}

type StatusNotifier interface {
	NotifyDeliveryStatus(messageSID, status string)
}

// Handler receives Twilio message status callbacks. Callbacks are only
// accepted for accounts whose auth token was entered in this process, since
// the token is needed to check the request signature.
type Handler struct {
	publicURL string
	updater   StatusUpdater
	notifier  StatusNotifier

	mu     sync.RWMutex
	tokens map[string]string
}

func NewHandler(publicURL string, updater StatusUpdater, notifier StatusNotifier) *Handler {
	return &Handler{
		publicURL: strings.TrimRight(publicURL, "/"),
		updater:   updater,
		notifier:  notifier,
		tokens:    make(map[string]string),
	}
}

// CallbackURL is the StatusCallback to attach to outgoing messages, or empty
// when no public URL is configured.
func (h *Handler) CallbackURL() string {
	if h.publicURL == "" {
		return ""
	}
	return h.publicURL + StatusPath
}

func (h *Handler) RegisterAccount(accountSID, authToken string) {
	h.mu.Lock()
	h.tokens[accountSID] = authToken
	h.mu.Unlock()
}

func (h *Handler) token(accountSID string) (string, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	t, ok := h.tokens[accountSID]
	return t, ok
}

func (h *Handler) TwilioStatus(c *gin.Context) {
	if err := c.Request.ParseForm(); err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	params := make(map[string]string, len(c.Request.PostForm))
	for k, v := range c.Request.PostForm {
		if len(v) > 0 {
			params[k] = v[0]
		}
	}

	authToken, ok := h.token(params["AccountSid"])
	if !ok || h.CallbackURL() == "" {
		c.Status(http.StatusForbidden)
		return
	}

	validator := twilioclient.NewRequestValidator(authToken)
	if !validator.Validate(h.CallbackURL(), params, c.GetHeader("X-Twilio-Signature")) {
		log.Warn().Str("account_sid", params["AccountSid"]).Msg("rejected twilio callback with bad signature")
		c.Status(http.StatusForbidden)
		return
	}

	sid, status := params["MessageSid"], params["MessageStatus"]
	if sid == "" || status == "" {
		c.Status(http.StatusBadRequest)
		return
	}

	n, err := h.updater.UpdateDeliveryStatus(c.Request.Context(), sid, status)
	if err != nil {
		log.Error().Err(err).Str("message_sid", sid).Msg("failed to record delivery status")
		c.Status(http.StatusInternalServerError)
		return
	}

	log.Info().
		Str("message_sid", sid).
		Str("status", status).
		Str("error_code", params["ErrorCode"]).
		Int64("matched", n).
		Msg("delivery status received")

	if h.notifier != nil {
		h.notifier.NotifyDeliveryStatus(sid, status)
	}

	c.Status(http.StatusNoContent)
}
