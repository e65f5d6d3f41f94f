package application

import (
	"context"
	"time"

	"github.com/dmarkov/user-microservice/internal/domain/event"
)

// Receipt is the broker's confirmation that a published record was durably
// accepted by all replicas.
type Receipt struct {
	Queue       string
	DeliveryTag uint64
	Timestamp   time.Time
}

// Producer publishes a user lifecycle event and blocks until the broker
// acknowledges it or a terminal failure occurs. key partitions events by the
// subject's identifier so per-user emission order is preserved. A failed
// publish is never retried by the producer itself; that is the caller's
// (here: the outbox dispatcher's) responsibility.
type Producer interface {
	Publish(ctx context.Context, key string, evt event.UserEvent) (*Receipt, error)
}
