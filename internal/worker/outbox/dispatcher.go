// Package outbox delivers pending lifecycle events from the outbox table to
// the broker. Delivery is at-least-once: a record is marked dispatched only
// after the broker confirms it, and failed records stay pending for the next
// tick. Consumers deduplicate by the idempotency key carried as MessageId.
package outbox

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dmarkov/user-microservice/internal/application"
	"github.com/dmarkov/user-microservice/internal/domain/event"
	repo "github.com/dmarkov/user-microservice/internal/domain/repository"
)

type Dispatcher struct {
	Outbox       repo.OutboxRepository
	Producer     application.Producer
	PollInterval time.Duration
	BatchSize    int
	Logger       *logrus.Logger
}

func NewDispatcher(outbox repo.OutboxRepository, producer application.Producer, pollInterval time.Duration, batchSize int, logger *logrus.Logger) *Dispatcher {
	return &Dispatcher{
		Outbox:       outbox,
		Producer:     producer,
		PollInterval: pollInterval,
		BatchSize:    batchSize,
		Logger:       logger,
	}
}

// Run polls until ctx is canceled.
func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := d.Tick(ctx); err != nil && d.Logger != nil {
				d.Logger.WithError(err).Error("outbox tick failed")
			}
		}
	}
}

// Tick drains one batch of pending records in insertion order.
func (d *Dispatcher) Tick(ctx context.Context) error {
	recs, err := d.Outbox.Pending(ctx, d.BatchSize)
	if err != nil {
		return err
	}

	for _, rec := range recs {
		evt := event.UserEvent{Type: rec.EventType, Name: rec.Name, Email: rec.Email}
		receipt, err := d.Producer.Publish(ctx, rec.Key, evt)
		if err != nil {
			if d.Logger != nil {
				d.Logger.WithError(err).WithFields(logrus.Fields{
					"outbox_id": rec.ID,
					"key":       rec.Key,
					"attempts":  rec.Attempts + 1,
				}).Warn("event publish failed, will retry")
			}
			if mErr := d.Outbox.MarkFailed(ctx, rec.ID); mErr != nil {
				return mErr
			}
			continue
		}
		if err := d.Outbox.MarkDispatched(ctx, rec.ID); err != nil {
			return err
		}
		if d.Logger != nil {
			d.Logger.WithFields(logrus.Fields{
				"outbox_id":    rec.ID,
				"key":          rec.Key,
				"queue":        receipt.Queue,
				"delivery_tag": receipt.DeliveryTag,
			}).Info("event dispatched")
		}
	}
	return nil
}
