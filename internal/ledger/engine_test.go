package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/bankops/ledger-service/internal/models"
	"github.com/bankops/ledger-service/internal/storage/memory"
)

// capturePublisher records every published event and can be told to fail.
type capturePublisher struct {
	mu     sync.Mutex
	events []models.Event
	err    error
}

func (p *capturePublisher) Publish(ctx context.Context, event models.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *capturePublisher) published() []models.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]models.Event, len(p.events))
	copy(out, p.events)
	return out
}

func newTestEngine(t *testing.T) (*Engine, *memory.EventLog, *capturePublisher) {
	t.Helper()
	log := memory.NewEventLog()
	pub := &capturePublisher{}
	return NewEngine(memory.NewAccountStore(), log, pub, nil), log, pub
}

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal %q: %v", s, err)
	}
	return d
}

func mustBalance(t *testing.T, e *Engine, accountId, want string) {
	t.Helper()
	got, err := e.GetBalance(context.Background(), accountId)
	if err != nil {
		t.Fatalf("GetBalance(%q): %v", accountId, err)
	}
	if !got.Equal(dec(t, want)) {
		t.Fatalf("balance of %q = %s, want %s", accountId, got, want)
	}
}

func TestDepositCreatesAccounts(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()

	result, err := e.Deposit(ctx, "1001", dec(t, "100"))
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if result.Destination == nil || result.Destination.ID != "1001" || !result.Destination.Balance.Equal(dec(t, "100")) {
		t.Fatalf("unexpected result: %+v", result)
	}

	if _, err := e.Deposit(ctx, "1002", dec(t, "20")); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	mustBalance(t, e, "1001", "100")
	mustBalance(t, e, "1002", "20")
}

func TestWithdraw(t *testing.T) {
	e, log, _ := newTestEngine(t)
	ctx := context.Background()

	if _, err := e.Deposit(ctx, "1001", dec(t, "100")); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	result, err := e.Withdraw(ctx, "1001", dec(t, "30"))
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if result.Origin == nil || !result.Origin.Balance.Equal(dec(t, "70")) {
		t.Fatalf("unexpected result: %+v", result)
	}

	eventsBefore := len(log.All())

	if _, err := e.Withdraw(ctx, "1001", dec(t, "9999")); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("want ErrInsufficientFunds, got %v", err)
	}

	// A rejected withdrawal leaves both the balance and the log untouched.
	mustBalance(t, e, "1001", "70")
	if got := len(log.All()); got != eventsBefore {
		t.Fatalf("event log grew on failed withdrawal: %d -> %d", eventsBefore, got)
	}
}

func TestWithdrawUnknownAccount(t *testing.T) {
	e, _, _ := newTestEngine(t)

	if _, err := e.Withdraw(context.Background(), "nobody", dec(t, "10")); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("want ErrAccountNotFound, got %v", err)
	}
}

func TestTransfer(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()

	if _, err := e.Deposit(ctx, "1001", dec(t, "70")); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if _, err := e.Deposit(ctx, "1002", dec(t, "20")); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	result, err := e.Transfer(ctx, "1001", "1002", dec(t, "50"))
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if !result.Origin.Balance.Equal(dec(t, "20")) {
		t.Fatalf("origin balance = %s, want 20", result.Origin.Balance)
	}
	if !result.Destination.Balance.Equal(dec(t, "70")) {
		t.Fatalf("destination balance = %s, want 70", result.Destination.Balance)
	}
	mustBalance(t, e, "1001", "20")
	mustBalance(t, e, "1002", "70")
}

func TestTransferConservesTotal(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()

	e.Deposit(ctx, "a", dec(t, "123.45"))
	e.Deposit(ctx, "b", dec(t, "10.55"))

	before := dec(t, "134")

	if _, err := e.Transfer(ctx, "a", "b", dec(t, "99.99")); err != nil {
		t.Fatalf("transfer: %v", err)
	}

	ba, _ := e.GetBalance(ctx, "a")
	bb, _ := e.GetBalance(ctx, "b")
	if !ba.Add(bb).Equal(before) {
		t.Fatalf("total changed: %s + %s != %s", ba, bb, before)
	}
}

func TestTransferAutoProvisionsDestination(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()

	if _, err := e.Deposit(ctx, "2001", dec(t, "100")); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	result, err := e.Transfer(ctx, "2001", "2002", dec(t, "30"))
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if !result.Destination.Balance.Equal(dec(t, "30")) {
		t.Fatalf("destination balance = %s, want 30", result.Destination.Balance)
	}
	mustBalance(t, e, "2002", "30")
}

func TestTransferUnknownOrigin(t *testing.T) {
	e, log, _ := newTestEngine(t)

	if _, err := e.Transfer(context.Background(), "ghost", "2002", dec(t, "30")); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("want ErrAccountNotFound, got %v", err)
	}
	// The destination must not be provisioned by a rejected transfer.
	if _, err := e.GetBalance(context.Background(), "2002"); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("destination was created by a failed transfer: %v", err)
	}
	if got := len(log.All()); got != 0 {
		t.Fatalf("event log grew on failed transfer: %d", got)
	}
}

func TestTransferInsufficientFunds(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()

	e.Deposit(ctx, "a", dec(t, "10"))
	e.Deposit(ctx, "b", dec(t, "5"))

	if _, err := e.Transfer(ctx, "a", "b", dec(t, "10.01")); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("want ErrInsufficientFunds, got %v", err)
	}
	mustBalance(t, e, "a", "10")
	mustBalance(t, e, "b", "5")
}

func TestTransferSameAccount(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()

	e.Deposit(ctx, "a", dec(t, "10"))
	if _, err := e.Transfer(ctx, "a", "a", dec(t, "5")); !errors.Is(err, ErrSameAccount) {
		t.Fatalf("want ErrSameAccount, got %v", err)
	}
}

func TestNonPositiveAmountsRejected(t *testing.T) {
	e, log, _ := newTestEngine(t)
	ctx := context.Background()

	e.Deposit(ctx, "a", dec(t, "10"))

	for _, amount := range []string{"0", "-1", "-0.01"} {
		if _, err := e.Deposit(ctx, "a", dec(t, amount)); !errors.Is(err, ErrAmountNotPositive) {
			t.Errorf("Deposit(%s): want ErrAmountNotPositive, got %v", amount, err)
		}
		if _, err := e.Withdraw(ctx, "a", dec(t, amount)); !errors.Is(err, ErrAmountNotPositive) {
			t.Errorf("Withdraw(%s): want ErrAmountNotPositive, got %v", amount, err)
		}
		if _, err := e.Transfer(ctx, "a", "b", dec(t, amount)); !errors.Is(err, ErrAmountNotPositive) {
			t.Errorf("Transfer(%s): want ErrAmountNotPositive, got %v", amount, err)
		}
	}

	mustBalance(t, e, "a", "10")
	if got := len(log.All()); got != 1 {
		t.Fatalf("rejected amounts reached the log: %d events", got)
	}
}

func TestGetBalanceIdempotent(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()

	e.Deposit(ctx, "a", dec(t, "42.42"))

	first, err := e.GetBalance(ctx, "a")
	if err != nil {
		t.Fatalf("GetBalance: %v", err)
	}
	second, err := e.GetBalance(ctx, "a")
	if err != nil {
		t.Fatalf("GetBalance: %v", err)
	}
	if !first.Equal(second) {
		t.Fatalf("repeated reads differ: %s vs %s", first, second)
	}
}

func TestFractionalAmountsExact(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := e.Deposit(ctx, "a", dec(t, "0.1")); err != nil {
			t.Fatalf("deposit: %v", err)
		}
	}
	mustBalance(t, e, "a", "0.3")
}

func TestReset(t *testing.T) {
	e, log, pub := newTestEngine(t)
	ctx := context.Background()

	e.Deposit(ctx, "a", dec(t, "10"))
	e.Deposit(ctx, "b", dec(t, "20"))

	if err := e.Reset(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}

	if _, err := e.GetBalance(ctx, "a"); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("account survived reset: %v", err)
	}
	if got := len(log.All()); got != 0 {
		t.Fatalf("event log survived reset: %d events", got)
	}

	// The reset itself is not in the log, but the sink is told about it.
	published := pub.published()
	last := published[len(published)-1]
	if last.Type != models.EventReset {
		t.Fatalf("last published event = %s, want reset", last.Type)
	}

	// The sequence restarts at 1 for the first append after a reset.
	if _, err := e.Deposit(ctx, "c", dec(t, "5")); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	events := log.All()
	if len(events) != 1 || events[0].Sequence != 1 {
		t.Fatalf("sequence did not restart: %+v", events)
	}
}

func TestEventHistory(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()

	e.Deposit(ctx, "1001", dec(t, "100"))
	e.Withdraw(ctx, "1001", dec(t, "30"))
	e.Transfer(ctx, "1001", "1002", dec(t, "50"))

	all := e.Events()
	if len(all) != 3 {
		t.Fatalf("expected 3 events, got %d", len(all))
	}
	for i, want := range []models.EventType{models.EventDeposit, models.EventWithdraw, models.EventTransfer} {
		if all[i].Type != want {
			t.Errorf("event %d type = %s, want %s", i, all[i].Type, want)
		}
		if all[i].Sequence != uint64(i+1) {
			t.Errorf("event %d sequence = %d, want %d", i, all[i].Sequence, i+1)
		}
	}

	transfer := all[2]
	if transfer.FromAccount != "1001" || transfer.ToAccount != "1002" {
		t.Fatalf("transfer event accounts: %+v", transfer)
	}
	if !transfer.FromBalance.Equal(dec(t, "20")) || !transfer.ToBalance.Equal(dec(t, "50")) {
		t.Fatalf("transfer event balances: from=%s to=%s", transfer.FromBalance, transfer.ToBalance)
	}

	// 1002 only participates as a transfer destination.
	if got := e.EventsByAccount("1002"); len(got) != 1 || got[0].Type != models.EventTransfer {
		t.Fatalf("EventsByAccount(1002): %+v", got)
	}
	if got := e.EventsByAccount("1001"); len(got) != 3 {
		t.Fatalf("EventsByAccount(1001): expected 3, got %d", len(got))
	}
	if got := e.EventsByType(models.EventWithdraw); len(got) != 1 {
		t.Fatalf("EventsByType(withdraw): expected 1, got %d", len(got))
	}
}

func TestPublisherFailureDoesNotFailOperation(t *testing.T) {
	log := memory.NewEventLog()
	pub := &capturePublisher{err: errors.New("broker down")}
	e := NewEngine(memory.NewAccountStore(), log, pub, nil)
	ctx := context.Background()

	if _, err := e.Deposit(ctx, "a", dec(t, "10")); err != nil {
		t.Fatalf("deposit failed because of the publisher: %v", err)
	}
	mustBalance(t, e, "a", "10")
	if got := len(log.All()); got != 1 {
		t.Fatalf("event missing from log: %d", got)
	}
}

func TestConcurrentWithdrawals(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()

	if _, err := e.Deposit(ctx, "X", dec(t, "100")); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	amount := dec(t, "60")
	results := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.Withdraw(ctx, "X", amount)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var succeeded, insufficient int
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrInsufficientFunds):
			insufficient++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 || insufficient != 1 {
		t.Fatalf("want exactly one success and one rejection, got %d/%d", succeeded, insufficient)
	}
	mustBalance(t, e, "X", "40")
}

func TestConcurrentDepositsAndTransfers(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()

	e.Deposit(ctx, "src", dec(t, "1000"))

	one := dec(t, "1")
	two := dec(t, "2")

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := e.Transfer(ctx, "src", "dst", one); err != nil {
				t.Errorf("transfer: %v", err)
			}
		}()
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := e.Deposit(ctx, "dst", two); err != nil {
				t.Errorf("deposit: %v", err)
			}
		}()
	}
	wg.Wait()

	mustBalance(t, e, "src", "950")
	mustBalance(t, e, "dst", "150")
}
