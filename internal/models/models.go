package models

import (
	"time"
)

// BroadcastRun is one press of the send button
type BroadcastRun struct {
	ID            string        `gorm:"primaryKey;type:varchar(36)" json:"id"`
	SessionID     string        `gorm:"type:varchar(36);index" json:"session_id"`
	SpreadsheetID string        `gorm:"type:varchar(255)" json:"spreadsheet_id"`
	SheetRange    string        `gorm:"type:varchar(255)" json:"sheet_range"`
	FromNumber    string        `gorm:"type:varchar(50)" json:"from_number"`
	ContactCount  int           `json:"contact_count"`
	EligibleCount int           `json:"eligible_count"`
	SentCount     int           `json:"sent_count"`
	FailedCount   int           `json:"failed_count"`
	UnmarkedCount int           `json:"unmarked_count"`
	StartedAt     time.Time     `gorm:"index" json:"started_at"`
	FinishedAt    time.Time     `json:"finished_at"`
	Logs          []DeliveryLog `gorm:"foreignKey:RunID;constraint:OnDelete:CASCADE;" json:"logs,omitempty"`
	CreatedAt     time.Time     `gorm:"autoCreateTime" json:"created_at"`
}

func (BroadcastRun) TableName() string {
	return "broadcast_runs"
}

// DeliveryLog is one attempted contact within a run
type DeliveryLog struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	RunID          string    `gorm:"type:varchar(36);index;not null" json:"run_id"`
	Position       int       `json:"position"`
	SheetRow       int       `json:"sheet_row"`
	Name           string    `gorm:"type:varchar(255)" json:"name"`
	Phone          string    `gorm:"type:varchar(50)" json:"phone"`
	Status         string    `gorm:"type:text" json:"status"`
	Outcome        string    `gorm:"type:varchar(20)" json:"outcome"`
	MessageSID     string    `gorm:"column:message_sid;type:varchar(64);index" json:"message_sid"`
	DeliveryStatus string    `gorm:"type:varchar(20)" json:"delivery_status"` // from Twilio status callbacks
	AttemptedAt    time.Time `json:"attempted_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (DeliveryLog) TableName() string {
	return "delivery_logs"
}
