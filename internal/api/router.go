package api

import (
	"context"
	"html/template"
	"net/http"
	"time"

	"sheet-broadcast/internal/auth"
	"sheet-broadcast/internal/broadcast"
	"sheet-broadcast/internal/config"
	"sheet-broadcast/internal/logexport"
	"sheet-broadcast/internal/models"
	"sheet-broadcast/internal/session"
	"sheet-broadcast/internal/sheets"
	"sheet-broadcast/internal/sms"
	"sheet-broadcast/internal/webhook"
	"sheet-broadcast/web"

	"github.com/gin-gonic/gin"
)

// GoogleAuth drives the interactive consent flow for the Sheets token.
type GoogleAuth interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) error
	Authorized() bool
}

// ContactSource reads the contact table and hands out status writers for it.
type ContactSource interface {
	Fetch(ctx context.Context) (*sheets.Table, error)
	Marker(ctx context.Context, table *sheets.Table) (broadcast.StatusMarker, error)
}

// SenderFactory builds a sender from operator-entered credentials.
type SenderFactory func(creds sms.Credentials, statusCallback string) (broadcast.Sender, error)

type RunStore interface {
	SaveRun(ctx context.Context, run *models.BroadcastRun) error
	ListRuns(ctx context.Context, limit int) ([]models.BroadcastRun, error)
	GetRun(ctx context.Context, id string) (*models.BroadcastRun, error)
}

// Progress receives live run events and serves the browser stream.
type Progress interface {
	NotifyRunStarted(runID string, eligible int)
	NotifyEntry(entry broadcast.Entry)
	NotifyRunFinished(runID string, summary broadcast.Summary)
	ServeWs(w http.ResponseWriter, r *http.Request)
}

type Deps struct {
	Config    *config.Config
	Gate      *auth.Gate
	Sessions  *session.Store
	Google    GoogleAuth
	Source    ContactSource
	NewSender SenderFactory
	Message   broadcast.MessageFunc
	Runs      RunStore
	Progress  Progress
	Webhook   *webhook.Handler
}

type Handler struct {
	Deps
}

func NewSenderFactory() SenderFactory {
	return func(creds sms.Credentials, statusCallback string) (broadcast.Sender, error) {
		client, err := sms.NewClient(creds, statusCallback)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
}

func NewRouter(deps Deps) *gin.Engine {
	h := &Handler{Deps: deps}

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.SetHTMLTemplate(template.Must(
		template.New("pages").Funcs(template.FuncMap{"formatTime": formatTime}).ParseFS(web.Templates, "templates/*.html"),
	))

	r.GET("/healthz", h.Health)
	r.GET("/logo", h.Logo)
	r.POST(webhook.StatusPath, h.Webhook.TwilioStatus)

	r.Use(h.loadSession)

	r.GET("/login", h.LoginPage)
	r.POST("/login", h.Login)

	authed := r.Group("/", h.requireSession)
	{
		authed.POST("/logout", h.Logout)
		authed.GET("/", h.Dashboard)

		authed.POST("/sheet/fetch", h.FetchSheet)
		authed.GET("/auth/google", h.GoogleStart)
		authed.GET("/auth/google/callback", h.GoogleCallback)

		authed.POST("/credentials", h.SaveCredentials)

		authed.POST("/broadcast", h.Broadcast)
		authed.GET("/broadcast/logs.csv", h.DownloadLogs)

		authed.GET("/history", h.History)
		authed.GET("/history/:id/logs.csv", h.DownloadRunLogs)

		authed.GET("/ws", h.Stream)
	}

	return r
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) Logo(c *gin.Context) {
	if !fileExists(h.Config.LogoPath) {
		c.Status(http.StatusNotFound)
		return
	}
	c.File(h.Config.LogoPath)
}

func (h *Handler) Stream(c *gin.Context) {
	h.Progress.ServeWs(c.Writer, c.Request)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(logexport.TimeLayout)
}
