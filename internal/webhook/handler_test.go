package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockUpdater struct {
	mock.Mock
}

func (m *mockUpdater) UpdateDeliveryStatus(ctx context.Context, sid, status string) (int64, error) {
	args := m.Called(ctx, sid, status)
	return args.Get(0).(int64), args.Error(1)
}

type recordingNotifier struct {
	events [][2]string
}

func (r *recordingNotifier) NotifyDeliveryStatus(sid, status string) {
	r.events = append(r.events, [2]string{sid, status})
}

func sign(token, fullURL string, form url.Values) string {
	keys := make([]string, 0, len(form))
	for k := range form {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString(fullURL)
	for _, k := range keys {
		sb.WriteString(k)
		sb.WriteString(form.Get(k))
	}

	mac := hmac.New(sha1.New, []byte(token))
	mac.Write([]byte(sb.String()))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func newRouter(h *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST(StatusPath, h.TwilioStatus)
	return r
}

func post(r *gin.Engine, form url.Values, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, StatusPath, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if signature != "" {
		req.Header.Set("X-Twilio-Signature", signature)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func statusForm() url.Values {
	return url.Values{
		"AccountSid":    {"AC123"},
		"MessageSid":    {"SM1"},
		"MessageStatus": {"delivered"},
		"To":            {"+15551230001"},
	}
}

func TestHandler_CallbackURL(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "", NewHandler("", nil, nil).CallbackURL())
	assert.Equal(t, "https://portal.example.com/webhook/twilio/status", NewHandler("https://portal.example.com/", nil, nil).CallbackURL())
}

func TestHandler_TwilioStatus_Valid(t *testing.T) {
	t.Parallel()

	updater := new(mockUpdater)
	notifier := &recordingNotifier{}
	h := NewHandler("https://portal.example.com", updater, notifier)
	h.RegisterAccount("AC123", "secret-token")

	updater.On("UpdateDeliveryStatus", mock.Anything, "SM1", "delivered").Return(int64(1), nil).Once()

	form := statusForm()
	w := post(newRouter(h), form, sign("secret-token", h.CallbackURL(), form))

	assert.Equal(t, http.StatusNoContent, w.Code)
	updater.AssertExpectations(t)
	assert.Equal(t, [][2]string{{"SM1", "delivered"}}, notifier.events)
}

func TestHandler_TwilioStatus_BadSignature(t *testing.T) {
	t.Parallel()

	updater := new(mockUpdater)
	h := NewHandler("https://portal.example.com", updater, nil)
	h.RegisterAccount("AC123", "secret-token")

	form := statusForm()
	w := post(newRouter(h), form, sign("other-token", h.CallbackURL(), form))

	assert.Equal(t, http.StatusForbidden, w.Code)
	updater.AssertNotCalled(t, "UpdateDeliveryStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandler_TwilioStatus_UnknownAccount(t *testing.T) {
	t.Parallel()

	updater := new(mockUpdater)
	h := NewHandler("https://portal.example.com", updater, nil)

	form := statusForm()
	w := post(newRouter(h), form, sign("secret-token", h.CallbackURL(), form))

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestHandler_TwilioStatus_MissingFields(t *testing.T) {
	t.Parallel()

	updater := new(mockUpdater)
	h := NewHandler("https://portal.example.com", updater, nil)
	h.RegisterAccount("AC123", "secret-token")

	form := url.Values{"AccountSid": {"AC123"}, "MessageStatus": {"sent"}}
	w := post(newRouter(h), form, sign("secret-token", h.CallbackURL(), form))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
