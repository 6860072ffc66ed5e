package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account represents the current state of a single account.
// Balance is kept as a decimal so fractional amounts stay exact.
type Account struct {
	ID        string          `json:"id"`
	Balance   decimal.Decimal `json:"balance"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// AccountView is the caller-facing snapshot of one account after an operation.
type AccountView struct {
	ID      string          `json:"id"`
	Balance decimal.Decimal `json:"balance"`
}

// OperationResult is returned by every mutating operation.
// Deposits fill Destination, withdrawals fill Origin, transfers fill both.
type OperationResult struct {
	Origin      *AccountView `json:"origin,omitempty"`
	Destination *AccountView `json:"destination,omitempty"`
}
