package api

import (
	"errors"
	"net/http"

	"sheet-broadcast/internal/history"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const historyLimit = 50

func (h *Handler) History(c *gin.Context) {
	data := h.page("")
	if h.Runs == nil {
		data.Error = "Run history is not enabled."
		c.HTML(http.StatusOK, "history.html", data)
		return
	}

	runs, err := h.Runs.ListRuns(c.Request.Context(), historyLimit)
	if err != nil {
		log.Error().Err(err).Msg("failed to list runs")
		data.Error = "Failed to load run history."
		c.HTML(http.StatusInternalServerError, "history.html", data)
		return
	}
	data.Runs = runs
	c.HTML(http.StatusOK, "history.html", data)
}

func (h *Handler) DownloadRunLogs(c *gin.Context) {
	if h.Runs == nil {
		c.String(http.StatusNotFound, "run history is not enabled")
		return
	}

	run, err := h.Runs.GetRun(c.Request.Context(), c.Param("id"))
	if errors.Is(err, history.ErrRunNotFound) {
		c.String(http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		log.Error().Err(err).Str("run_id", c.Param("id")).Msg("failed to load run")
		c.String(http.StatusInternalServerError, "failed to load run")
		return
	}

	h.sendCSV(c, "sms_logs_"+run.ID+".csv", history.Entries(run))
}
