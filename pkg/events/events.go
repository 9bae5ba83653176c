// Package events mempublikasikan event domain (appointment disetujui, invoice dibuat, token dipanggil)
// ke message broker agar service lain (notifikasi, laporan) bisa bereaksi.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	AppointmentApproved  = "appointment.approved"
	AppointmentRejected  = "appointment.rejected"
	AppointmentCancelled = "appointment.cancelled"
	AppointmentCompleted = "appointment.completed"
	InvoiceCreated       = "invoice.created"
	InvoicePaid          = "invoice.paid"
	TokenCalled          = "token.called"
	TokenDone            = "token.done"
)

type Event struct {
	ID          string      `json:"id"`
	Type        string      `json:"type"`
	AggregateID int64       `json:"aggregate_id"`
	OccurredAt  time.Time   `json:"occurred_at"`
	Payload     interface{} `json:"payload,omitempty"`
}

func New(eventType string, aggregateID int64, payload interface{}) Event {
	return Event{
		ID:          uuid.NewString(),
		Type:        eventType,
		AggregateID: aggregateID,
		OccurredAt:  time.Now().UTC(),
		Payload:     payload,
	}
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// Noop dipakai bila KAFKA_BROKER tidak diset.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }
func (Noop) Close() error                         { return nil }

// Emit mengirim event sekali tanpa retry. Kegagalan hanya dicatat, tidak menggagalkan request.
func Emit(p Publisher, log logrus.FieldLogger, e Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := p.Publish(ctx, e); err != nil {
		log.WithFields(logrus.Fields{
			"event":        e.Type,
			"aggregate_id": e.AggregateID,
		}).WithError(err).Warn("failed to publish event")
	}
}
