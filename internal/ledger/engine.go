package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/bankops/ledger-service/internal/interfaces"
	"github.com/bankops/ledger-service/internal/models"
)

// Engine is the ledger mutation engine. It is the sole writer of the
// account store and the event log, and it guarantees serializability per
// account: operations naming the same account are linearized through a
// per-account mutex, while operations on disjoint accounts run in
// parallel.
type Engine struct {
	accounts  interfaces.AccountStore
	events    interfaces.EventLog
	publisher interfaces.EventPublisher
	logger    *zap.Logger

	muMap map[string]*sync.Mutex // per-account mutexes
	mapMu sync.Mutex             // protects the muMap itself

	// resetMu orders Reset after every in-flight mutation: operations
	// hold it in read mode, Reset takes it in write mode.
	resetMu sync.RWMutex
}

// NewEngine creates a ledger engine on top of the given stores.
// The publisher may be nil when no notification sink is wired.
func NewEngine(accounts interfaces.AccountStore, events interfaces.EventLog, publisher interfaces.EventPublisher, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		accounts:  accounts,
		events:    events,
		publisher: publisher,
		logger:    logger,
		muMap:     make(map[string]*sync.Mutex),
	}
}

func (e *Engine) accountLock(accountId string) *sync.Mutex {
	e.mapMu.Lock()
	defer e.mapMu.Unlock()

	if _, exists := e.muMap[accountId]; !exists {
		e.muMap[accountId] = &sync.Mutex{}
	}
	return e.muMap[accountId]
}

// GetBalance returns the current balance of an existing account.
func (e *Engine) GetBalance(ctx context.Context, accountId string) (decimal.Decimal, error) {
	e.resetMu.RLock()
	defer e.resetMu.RUnlock()

	mu := e.accountLock(accountId)
	mu.Lock()
	defer mu.Unlock()

	account, ok := e.accounts.Get(accountId)
	if !ok {
		return decimal.Zero, ErrAccountNotFound
	}
	return account.Balance, nil
}

// Deposit credits an account, creating it with a zero balance first if it
// does not exist yet.
func (e *Engine) Deposit(ctx context.Context, accountId string, amount decimal.Decimal) (models.OperationResult, error) {
	if !amount.IsPositive() {
		return models.OperationResult{}, ErrAmountNotPositive
	}

	e.resetMu.RLock()
	defer e.resetMu.RUnlock()

	mu := e.accountLock(accountId)
	mu.Lock()
	defer mu.Unlock()

	account, ok := e.accounts.Get(accountId)
	if !ok {
		account = models.Account{ID: accountId, Balance: decimal.Zero}
	}

	account.Balance = account.Balance.Add(amount)
	account.UpdatedAt = time.Now().UTC()
	e.accounts.Upsert(account)

	event := e.events.Append(models.Event{
		Type:      models.EventDeposit,
		AccountID: accountId,
		Amount:    amount,
		Balance:   account.Balance,
	})
	e.notify(ctx, event)

	return models.OperationResult{
		Destination: &models.AccountView{ID: accountId, Balance: account.Balance},
	}, nil
}

// Withdraw debits an existing account. The balance check happens before
// any write, so a failed withdrawal leaves both the balance and the event
// log untouched.
func (e *Engine) Withdraw(ctx context.Context, accountId string, amount decimal.Decimal) (models.OperationResult, error) {
	if !amount.IsPositive() {
		return models.OperationResult{}, ErrAmountNotPositive
	}

	e.resetMu.RLock()
	defer e.resetMu.RUnlock()

	mu := e.accountLock(accountId)
	mu.Lock()
	defer mu.Unlock()

	account, ok := e.accounts.Get(accountId)
	if !ok {
		return models.OperationResult{}, ErrAccountNotFound
	}
	if account.Balance.Cmp(amount) < 0 {
		return models.OperationResult{}, ErrInsufficientFunds
	}

	account.Balance = account.Balance.Sub(amount)
	account.UpdatedAt = time.Now().UTC()
	e.accounts.Upsert(account)

	event := e.events.Append(models.Event{
		Type:      models.EventWithdraw,
		AccountID: accountId,
		Amount:    amount,
		Balance:   account.Balance,
	})
	e.notify(ctx, event)

	return models.OperationResult{
		Origin: &models.AccountView{ID: accountId, Balance: account.Balance},
	}, nil
}

// Transfer atomically debits the origin and credits the destination,
// recording a single transfer event. The destination is auto-provisioned;
// an absent origin or an insufficient balance rejects the transfer with
// no state change.
func (e *Engine) Transfer(ctx context.Context, fromId, toId string, amount decimal.Decimal) (models.OperationResult, error) {
	if !amount.IsPositive() {
		return models.OperationResult{}, ErrAmountNotPositive
	}
	if fromId == toId {
		return models.OperationResult{}, ErrSameAccount
	}

	e.resetMu.RLock()
	defer e.resetMu.RUnlock()

	debitMutex := e.accountLock(fromId)
	creditMutex := e.accountLock(toId)

	// Lock in lexicographic order to avoid deadlocks.
	if fromId < toId {
		debitMutex.Lock()
		creditMutex.Lock()
	} else {
		creditMutex.Lock()
		debitMutex.Lock()
	}
	defer debitMutex.Unlock()
	defer creditMutex.Unlock()

	from, ok := e.accounts.Get(fromId)
	if !ok {
		return models.OperationResult{}, ErrAccountNotFound
	}
	if from.Balance.Cmp(amount) < 0 {
		return models.OperationResult{}, ErrInsufficientFunds
	}

	to, ok := e.accounts.Get(toId)
	if !ok {
		to = models.Account{ID: toId, Balance: decimal.Zero}
	}

	now := time.Now().UTC()
	from.Balance = from.Balance.Sub(amount)
	from.UpdatedAt = now
	to.Balance = to.Balance.Add(amount)
	to.UpdatedAt = now
	e.accounts.Upsert(from)
	e.accounts.Upsert(to)

	event := e.events.Append(models.Event{
		Type:        models.EventTransfer,
		FromAccount: fromId,
		ToAccount:   toId,
		Amount:      amount,
		FromBalance: from.Balance,
		ToBalance:   to.Balance,
	})
	e.notify(ctx, event)

	return models.OperationResult{
		Origin:      &models.AccountView{ID: fromId, Balance: from.Balance},
		Destination: &models.AccountView{ID: toId, Balance: to.Balance},
	}, nil
}

// Reset clears all accounts and wipes the event log. It waits for every
// in-flight mutation to drain first, so a reset never races a
// half-committed operation. The reset itself is not appended to the log
// (the log is empty afterwards); it is only observable through the
// notification sink.
func (e *Engine) Reset(ctx context.Context) error {
	e.resetMu.Lock()
	defer e.resetMu.Unlock()

	e.accounts.Clear()
	e.events.Clear()

	// No mutation is in flight while the write lock is held, so the
	// per-account mutexes can be dropped along with the accounts.
	e.mapMu.Lock()
	e.muMap = make(map[string]*sync.Mutex)
	e.mapMu.Unlock()

	e.notify(ctx, models.Event{
		ID:        uuid.New().String(),
		Type:      models.EventReset,
		CreatedAt: time.Now().UTC(),
	})
	return nil
}

// Events returns the full event history in append order.
func (e *Engine) Events() []models.Event {
	e.resetMu.RLock()
	defer e.resetMu.RUnlock()
	return e.events.All()
}

// EventsByAccount returns the events the account participates in.
func (e *Engine) EventsByAccount(accountId string) []models.Event {
	e.resetMu.RLock()
	defer e.resetMu.RUnlock()
	return e.events.ByAccount(accountId)
}

// EventsByType returns the events of one type.
func (e *Engine) EventsByType(eventType models.EventType) []models.Event {
	e.resetMu.RLock()
	defer e.resetMu.RUnlock()
	return e.events.ByType(eventType)
}

// notify delivers a committed event to the publisher. Failures are logged
// and swallowed: the mutation has already committed and is never rolled
// back for a notification problem.
func (e *Engine) notify(ctx context.Context, event models.Event) {
	if e.publisher == nil {
		return
	}
	if err := e.publisher.Publish(ctx, event); err != nil {
		e.logger.Warn("event notification failed",
			zap.String("type", string(event.Type)),
			zap.Uint64("sequence", event.Sequence),
			zap.Error(err),
		)
	}
}
