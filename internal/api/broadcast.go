package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"sheet-broadcast/internal/broadcast"
	"sheet-broadcast/internal/history"
	"sheet-broadcast/internal/logexport"
	"sheet-broadcast/internal/session"
	"sheet-broadcast/internal/sheets"
	"sheet-broadcast/internal/sms"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Broadcast runs the reconciler over the session's table and renders the
// resulting log. The run is detached from the request so a closed browser
// tab does not stop it halfway.
func (h *Handler) Broadcast(c *gin.Context) {
	s := currentSession(c)

	table, _, ok := s.Table()
	if !ok {
		h.renderDashboard(c, http.StatusBadRequest, "Fetch the Google Sheet before sending.", "")
		return
	}
	creds, ok := s.Credentials()
	if !ok {
		h.renderDashboard(c, http.StatusBadRequest, "Please fill in all Twilio credentials to proceed.", "")
		return
	}

	if err := s.BeginRun(); err != nil {
		h.renderDashboard(c, http.StatusConflict, err.Error(), "")
		return
	}

	ctx := context.WithoutCancel(c.Request.Context())
	run, err := h.runBroadcast(ctx, s, table, creds)
	s.FinishRun(run)
	if err != nil {
		log.Error().Err(err).Str("session_id", s.ID).Msg("broadcast could not start")
		h.renderDashboard(c, http.StatusBadGateway, err.Error(), "")
		return
	}

	s.ReplaceTable(table, table.WithSent(processedRows(run.Entries)...))
	h.renderDashboard(c, http.StatusOK, "", "")
}

func (h *Handler) runBroadcast(ctx context.Context, s *session.Session, table *sheets.Table, creds sms.Credentials) (*session.Run, error) {
	sender, err := h.NewSender(creds, h.Webhook.CallbackURL())
	if err != nil {
		return nil, fmt.Errorf("failed to set up messaging: %w", err)
	}
	marker, err := h.Source.Marker(ctx, table)
	if err != nil {
		if errors.Is(err, sheets.ErrNoToken) {
			return nil, errors.New("google authorization expired, fetch the sheet again")
		}
		return nil, fmt.Errorf("failed to open sheet for writing: %w", err)
	}

	run := &session.Run{ID: uuid.NewString(), StartedAt: time.Now()}
	eligible := broadcast.CountEligible(table.Contacts)

	log.Info().
		Str("run_id", run.ID).
		Str("session_id", s.ID).
		Int("eligible", eligible).
		Msg("broadcast started")
	h.Progress.NotifyRunStarted(run.ID, eligible)

	reconciler := broadcast.NewReconciler(sender, marker, h.Message, broadcast.WithObserver(h.Progress.NotifyEntry))
	run.Entries = reconciler.Run(ctx, table.Contacts)
	run.FinishedAt = time.Now()

	summary := broadcast.Summarize(run.Entries)
	h.Progress.NotifyRunFinished(run.ID, summary)

	log.Info().
		Str("run_id", run.ID).
		Int("sent", summary.Sent).
		Int("failed", summary.Failed).
		Int("unmarked", summary.Unmarked).
		Dur("took", run.FinishedAt.Sub(run.StartedAt)).
		Msg("broadcast finished")

	if h.Config.LogsFile != "" {
		if err := logexport.WriteFile(h.Config.LogsFile, run.Entries); err != nil {
			log.Error().Err(err).Str("path", h.Config.LogsFile).Msg("failed to write log file")
		}
	}

	if h.Runs != nil {
		record := history.NewRun(history.RunMeta{
			ID:            run.ID,
			SessionID:     s.ID,
			SpreadsheetID: h.Config.GoogleSheetID,
			SheetRange:    h.Config.SheetRange,
			FromNumber:    creds.FromNumber,
			ContactCount:  len(table.Contacts),
		}, run.Entries, run.StartedAt, run.FinishedAt)
		if err := h.Runs.SaveRun(ctx, record); err != nil {
			log.Error().Err(err).Str("run_id", run.ID).Msg("failed to save run history")
		}
	}

	return run, nil
}

// processedRows lists rows that were messaged, including those whose sheet
// status could not be saved.
func processedRows(entries []broadcast.Entry) []int {
	var rows []int
	for _, e := range entries {
		if e.Outcome == broadcast.OutcomeSent || e.Outcome == broadcast.OutcomeSentUnmarked {
			rows = append(rows, e.Row)
		}
	}
	return rows
}

func (h *Handler) DownloadLogs(c *gin.Context) {
	run, ok := currentSession(c).LastRun()
	if !ok {
		c.String(http.StatusNotFound, "no broadcast has been run in this session")
		return
	}
	h.sendCSV(c, logexport.DownloadName, run.Entries)
}

func (h *Handler) sendCSV(c *gin.Context, filename string, entries []broadcast.Entry) {
	body, err := logexport.Render(entries)
	if err != nil {
		log.Error().Err(err).Msg("failed to render log csv")
		c.String(http.StatusInternalServerError, "failed to render logs")
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, logexport.ContentType, body)
}
