package broadcast

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// Sender delivers one message and returns the provider message id.
type Sender interface {
	Send(ctx context.Context, to, body string) (string, error)
}

// StatusMarker persists the sent flag for a contact after a successful send.
type StatusMarker interface {
	MarkSent(ctx context.Context, contact Contact) error
}

// Observer is told about every entry as soon as it is appended.
type Observer func(Entry)

type Option func(*Reconciler)

func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) { r.now = now }
}

func WithObserver(obs Observer) Option {
	return func(r *Reconciler) { r.observer = obs }
}

// Reconciler walks a contact table once, messages every eligible contact and
// records one log entry per attempt.
type Reconciler struct {
	sender   Sender
	marker   StatusMarker
	message  MessageFunc
	now      func() time.Time
	observer Observer
}

func NewReconciler(sender Sender, marker StatusMarker, message MessageFunc, opts ...Option) *Reconciler {
	r := &Reconciler{
		sender:  sender,
		marker:  marker,
		message: message,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run processes contacts strictly in order. Per-contact failures are turned
// into log entries; Run itself never fails.
func (r *Reconciler) Run(ctx context.Context, contacts []Contact) []Entry {
	entries := make([]Entry, 0, CountEligible(contacts))

	for _, contact := range contacts {
		if !contact.Eligible() {
			continue
		}

		entry := r.process(ctx, contact)
		entries = append(entries, entry)

		if r.observer != nil {
			r.observer(entry)
		}
	}

	return entries
}

func (r *Reconciler) process(ctx context.Context, contact Contact) Entry {
	logger := log.With().Int("row", contact.Row).Str("phone", contact.Phone).Logger()

	entry := Entry{
		Row:   contact.Row,
		Name:  contact.Name,
		Phone: contact.Phone,
	}

	body, err := r.message(contact.Name)
	if err != nil {
		entry.Time = r.now()
		return failed(entry, err)
	}

	messageID, err := r.sender.Send(ctx, contact.Phone, body)
	entry.Time = r.now()
	if err != nil {
		logger.Warn().Err(err).Msg("send failed")
		return failed(entry, err)
	}
	entry.MessageID = messageID

	if err := r.marker.MarkSent(ctx, contact); err != nil {
		logger.Warn().Err(err).Str("message_id", messageID).Msg("message sent but status write failed")
		entry.Outcome = OutcomeSentUnmarked
		entry.Status = fmt.Sprintf("%s (status not saved: %v)", StatusSent, err)
		return entry
	}

	logger.Debug().Str("message_id", messageID).Msg("message sent")
	entry.Outcome = OutcomeSent
	entry.Status = StatusSent
	return entry
}

func failed(entry Entry, err error) Entry {
	entry.Outcome = OutcomeSendFailed
	entry.Status = "Failed: " + err.Error()
	return entry
}
