package ledger

import "errors"

var (
	// ErrAccountNotFound is returned when an operation requires an
	// account that does not exist.
	ErrAccountNotFound = errors.New("account not found")

	// ErrInsufficientFunds is returned when a debit exceeds the current
	// balance. The check happens strictly before any write.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrAmountNotPositive is returned for zero or negative amounts.
	// Validation is the transport's job, but the engine still refuses
	// them so a bad caller can never corrupt a balance.
	ErrAmountNotPositive = errors.New("amount must be positive")

	// ErrSameAccount is returned when a transfer names the same account
	// as both origin and destination.
	ErrSameAccount = errors.New("origin and destination accounts must be different")
)
