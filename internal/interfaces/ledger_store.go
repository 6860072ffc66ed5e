package interfaces

import (
	"github.com/bankops/ledger-service/internal/models"
)

// AccountStore owns the mapping from account id to its current state.
// Absence on Get is reported through the bool, not an error.
type AccountStore interface {
	Get(accountId string) (models.Account, bool)
	Upsert(account models.Account)
	Clear()
}

// EventLog owns the append-only history of committed operations.
// Append assigns the next sequence number (starting at 1 after each Clear),
// an id and a timestamp, and returns the stored copy.
type EventLog interface {
	Append(event models.Event) models.Event
	ByAccount(accountId string) []models.Event
	ByType(eventType models.EventType) []models.Event
	All() []models.Event
	Clear()
}
