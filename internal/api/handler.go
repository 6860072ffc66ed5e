package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/bankops/ledger-service/internal/ledger"
	"github.com/bankops/ledger-service/internal/models"
)

// Ledger is the part of the engine the HTTP layer needs.
type Ledger interface {
	GetBalance(ctx context.Context, accountId string) (decimal.Decimal, error)
	Deposit(ctx context.Context, accountId string, amount decimal.Decimal) (models.OperationResult, error)
	Withdraw(ctx context.Context, accountId string, amount decimal.Decimal) (models.OperationResult, error)
	Transfer(ctx context.Context, fromId, toId string, amount decimal.Decimal) (models.OperationResult, error)
	Reset(ctx context.Context) error
	Events() []models.Event
	EventsByAccount(accountId string) []models.Event
	EventsByType(eventType models.EventType) []models.Event
}

// Handler maps HTTP requests onto ledger operations. All argument
// validation happens here; the engine receives already-validated
// primitives.
type Handler struct {
	ledger Ledger
	logger *zap.Logger
}

func NewHandler(l Ledger, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{ledger: l, logger: logger}
}

// Register installs all routes on the given mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.Health)
	mux.HandleFunc("/event", h.HandleEvent)
	mux.HandleFunc("/balance", h.GetBalance)
	mux.HandleFunc("/reset", h.Reset)
	mux.HandleFunc("/events", h.ListEvents)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type eventRequest struct {
	Type        string          `json:"type"`
	Origin      string          `json:"origin"`
	Destination string          `json:"destination"`
	Amount      decimal.Decimal `json:"amount"`
}

// HandleEvent processes deposit, withdraw and transfer requests.
func (h *Handler) HandleEvent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if !req.Amount.IsPositive() {
		http.Error(w, "amount must be a positive number", http.StatusBadRequest)
		return
	}

	var (
		result models.OperationResult
		err    error
	)

	switch models.EventType(req.Type) {
	case models.EventDeposit:
		if req.Destination == "" {
			http.Error(w, "destination account is required for deposits", http.StatusBadRequest)
			return
		}
		result, err = h.ledger.Deposit(r.Context(), req.Destination, req.Amount)

	case models.EventWithdraw:
		if req.Origin == "" {
			http.Error(w, "origin account is required for withdrawals", http.StatusBadRequest)
			return
		}
		result, err = h.ledger.Withdraw(r.Context(), req.Origin, req.Amount)

	case models.EventTransfer:
		if req.Origin == "" {
			http.Error(w, "origin account is required for transfers", http.StatusBadRequest)
			return
		}
		if req.Destination == "" {
			http.Error(w, "destination account is required for transfers", http.StatusBadRequest)
			return
		}
		if req.Origin == req.Destination {
			http.Error(w, "origin and destination accounts must be different", http.StatusBadRequest)
			return
		}
		result, err = h.ledger.Transfer(r.Context(), req.Origin, req.Destination, req.Amount)

	default:
		http.Error(w, "invalid event type", http.StatusBadRequest)
		return
	}

	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// GetBalance returns the current balance of one account.
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	accountId := r.URL.Query().Get("account_id")
	if accountId == "" {
		http.Error(w, "account_id is a mandatory field", http.StatusBadRequest)
		return
	}

	balance, err := h.ledger.GetBalance(r.Context(), accountId)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		AccountID string          `json:"account_id"`
		Balance   decimal.Decimal `json:"balance"`
	}{
		AccountID: accountId,
		Balance:   balance,
	})
}

// Reset clears all accounts and the event history.
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	if err := h.ledger.Reset(r.Context()); err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "OK"})
}

// ListEvents returns the event history, optionally filtered by account
// or by type.
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	if accountId := r.URL.Query().Get("account_id"); accountId != "" {
		writeJSON(w, http.StatusOK, h.ledger.EventsByAccount(accountId))
		return
	}

	if eventType := r.URL.Query().Get("type"); eventType != "" {
		switch t := models.EventType(eventType); t {
		case models.EventDeposit, models.EventWithdraw, models.EventTransfer, models.EventReset:
			writeJSON(w, http.StatusOK, h.ledger.EventsByType(t))
		default:
			http.Error(w, "invalid event type", http.StatusBadRequest)
		}
		return
	}

	writeJSON(w, http.StatusOK, h.ledger.Events())
}

// writeError maps engine errors onto stable status codes. Nothing beyond
// the error message ever reaches the caller.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrAccountNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ledger.ErrInsufficientFunds),
		errors.Is(err, ledger.ErrAmountNotPositive),
		errors.Is(err, ledger.ErrSameAccount):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		h.logger.Error("unexpected ledger error", zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
