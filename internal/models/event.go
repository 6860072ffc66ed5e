package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// EventType identifies the operation an event records.
type EventType string

const (
	EventDeposit  EventType = "deposit"
	EventWithdraw EventType = "withdraw"
	EventTransfer EventType = "transfer"
	EventReset    EventType = "reset"
)

// Event is a single immutable record of a committed operation.
// It is a flat record covering all operation shapes: deposits and
// withdrawals fill AccountID/Balance, transfers fill FromAccount/ToAccount
// and both resulting balances. Sequence is assigned at append time and is
// strictly increasing within one log generation.
type Event struct {
	ID          string          `json:"id"`
	Sequence    uint64          `json:"sequence"`
	Type        EventType       `json:"type"`
	AccountID   string          `json:"account_id,omitempty"`
	FromAccount string          `json:"from_account,omitempty"`
	ToAccount   string          `json:"to_account,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Balance     decimal.Decimal `json:"balance"`
	FromBalance decimal.Decimal `json:"from_balance"`
	ToBalance   decimal.Decimal `json:"to_balance"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Touches reports whether the account participates in this event
// in any role: depositor, withdrawer, transfer source or destination.
func (e Event) Touches(accountId string) bool {
	return e.AccountID == accountId ||
		e.FromAccount == accountId ||
		e.ToAccount == accountId
}
