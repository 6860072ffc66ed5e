package memory

import (
	"sync"

	"github.com/bankops/ledger-service/internal/interfaces"
	"github.com/bankops/ledger-service/internal/models"
)

// AccountStore is an in-memory implementation of interfaces.AccountStore.
// It stores accounts in a map keyed by exact string identity and is safe
// for concurrent use.
type AccountStore struct {
	mu       sync.RWMutex
	accounts map[string]models.Account
}

// NewAccountStore creates and returns an empty AccountStore instance.
func NewAccountStore() *AccountStore {
	return &AccountStore{
		accounts: make(map[string]models.Account),
	}
}

// Get returns the account for the given id, or false if it does not exist.
func (s *AccountStore) Get(accountId string) (models.Account, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	account, ok := s.accounts[accountId]
	return account, ok
}

// Upsert creates or overwrites the record for account.ID. Accounts are
// stored by value so callers cannot alias internal state.
func (s *AccountStore) Upsert(account models.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.accounts[account.ID] = account
}

// Clear removes all accounts.
func (s *AccountStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.accounts = make(map[string]models.Account)
}

// Compile-time check: ensure AccountStore implements the interface.
var _ interfaces.AccountStore = (*AccountStore)(nil)
