package broadcast

import (
	"strings"
	"time"
)

// SentMarker is the exact status value that marks a contact as already
// messaged. Matching is case-sensitive.
const SentMarker = "Yes"

// Contact is one data row of the contact sheet. Row is the 1-based sheet row
// number and is the only identity a contact has.
type Contact struct {
	Row        int    `json:"row"`
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	SentStatus string `json:"sent_status"`
}

// Eligible reports whether the contact should be messaged in this run.
func (c Contact) Eligible() bool {
	if strings.TrimSpace(c.Name) == "" || strings.TrimSpace(c.Phone) == "" {
		return false
	}
	return c.SentStatus != SentMarker
}

type Outcome string

const (
	OutcomeSent         Outcome = "sent"
	OutcomeSendFailed   Outcome = "send_failed"
	OutcomeSentUnmarked Outcome = "sent_unmarked"
)

const StatusSent = "Sent"

// Entry is a single delivery log line. Entries are created once and never
// modified.
type Entry struct {
	Row       int       `json:"row"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Status    string    `json:"status"`
	Time      time.Time `json:"time"`
	MessageID string    `json:"message_id,omitempty"`
	Outcome   Outcome   `json:"outcome"`
}

// Summary counts entries per outcome.
type Summary struct {
	Total    int `json:"total"`
	Sent     int `json:"sent"`
	Failed   int `json:"failed"`
	Unmarked int `json:"unmarked"`
}

func Summarize(entries []Entry) Summary {
	s := Summary{Total: len(entries)}
	for _, e := range entries {
		switch e.Outcome {
		case OutcomeSent:
			s.Sent++
		case OutcomeSendFailed:
			s.Failed++
		case OutcomeSentUnmarked:
			s.Unmarked++
		}
	}
	return s
}

// CountEligible returns how many contacts a run would attempt.
func CountEligible(contacts []Contact) int {
	n := 0
	for _, c := range contacts {
		if c.Eligible() {
			n++
		}
	}
	return n
}
