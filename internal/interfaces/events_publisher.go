package interfaces

import (
	"context"

	"github.com/bankops/ledger-service/internal/models"
)

// EventPublisher receives every committed event for side effects.
// Delivery is best-effort: a publish failure never rolls back the
// mutation that produced the event.
type EventPublisher interface {
	Publish(ctx context.Context, event models.Event) error
}
