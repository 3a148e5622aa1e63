package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sheet-broadcast/internal/broadcast"
	"sheet-broadcast/internal/models"

	"gorm.io/gorm"
)

var ErrRunNotFound = errors.New("broadcast run not found")

// Repository stores finished broadcast runs and their delivery logs.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// SaveRun inserts the run together with its logs.
func (r *Repository) SaveRun(ctx context.Context, run *models.BroadcastRun) error {
	if err := r.db.WithContext(ctx).Create(run).Error; err != nil {
		return fmt.Errorf("failed to save run %s: %w", run.ID, err)
	}
	return nil
}

// ListRuns returns the most recent runs without their logs.
func (r *Repository) ListRuns(ctx context.Context, limit int) ([]models.BroadcastRun, error) {
	var runs []models.BroadcastRun
	err := r.db.WithContext(ctx).
		Order("started_at DESC").
		Limit(limit).
		Find(&runs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

func (r *Repository) GetRun(ctx context.Context, id string) (*models.BroadcastRun, error) {
	var run models.BroadcastRun
	err := r.db.WithContext(ctx).
		Preload("Logs", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("id = ?", id).
		First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load run %s: %w", id, err)
	}
	return &run, nil
}

// UpdateDeliveryStatus records a provider callback for a message SID and
// returns how many log rows matched.
func (r *Repository) UpdateDeliveryStatus(ctx context.Context, messageSID, status string) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.DeliveryLog{}).
		Where("message_sid = ?", messageSID).
		Update("delivery_status", status)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to update delivery status: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// RunMeta describes where a run was sent from.
type RunMeta struct {
	ID            string
	SessionID     string
	SpreadsheetID string
	SheetRange    string
	FromNumber    string
	ContactCount  int
}

// NewRun builds the persisted form of a finished run.
func NewRun(meta RunMeta, entries []broadcast.Entry, startedAt, finishedAt time.Time) *models.BroadcastRun {
	summary := broadcast.Summarize(entries)

	run := &models.BroadcastRun{
		ID:            meta.ID,
		SessionID:     meta.SessionID,
		SpreadsheetID: meta.SpreadsheetID,
		SheetRange:    meta.SheetRange,
		FromNumber:    meta.FromNumber,
		ContactCount:  meta.ContactCount,
		EligibleCount: summary.Total,
		SentCount:     summary.Sent,
		FailedCount:   summary.Failed,
		UnmarkedCount: summary.Unmarked,
		StartedAt:     startedAt,
		FinishedAt:    finishedAt,
	}

	for i, e := range entries {
		run.Logs = append(run.Logs, models.DeliveryLog{
			RunID:       meta.ID,
			Position:    i,
			SheetRow:    e.Row,
			Name:        e.Name,
			Phone:       e.Phone,
			Status:      e.Status,
			Outcome:     string(e.Outcome),
			MessageSID:  e.MessageID,
			AttemptedAt: e.Time,
		})
	}
	return run
}

// Entries converts stored logs back into delivery log entries.
func Entries(run *models.BroadcastRun) []broadcast.Entry {
	entries := make([]broadcast.Entry, 0, len(run.Logs))
	for _, l := range run.Logs {
		entries = append(entries, broadcast.Entry{
			Row:       l.SheetRow,
			Name:      l.Name,
			Phone:     l.Phone,
			Status:    l.Status,
			Time:      l.AttemptedAt,
			MessageID: l.MessageSID,
			Outcome:   broadcast.Outcome(l.Outcome),
		})
	}
	return entries
}
