package handlers

import (
	"context"
	"net/http"

	"github.com/Dosada05/arena-escrow/middleware"
	"github.com/Dosada05/arena-escrow/models"
	"github.com/Dosada05/arena-escrow/services"
	"github.com/shopspring/decimal"
)

// AdminHandler - служебные операции со счетами и массовая отмена матчей.
type AdminHandler struct {
	ledger services.LedgerService
	escrow services.EscrowService
}

func NewAdminHandler(ls services.LedgerService, es services.EscrowService) *AdminHandler {
	return &AdminHandler{ledger: ls, escrow: es}
}

type openAccountRequest struct {
	UserID int64 `json:"user_id"`
}

type amountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type ledgerMove func(ctx context.Context, userID int64, amount decimal.Decimal) (*models.LedgerEntry, error)

func (h *AdminHandler) OpenAccount(w http.ResponseWriter, r *http.Request) {
	var input openAccountRequest
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	account, err := h.ledger.OpenAccount(r.Context(), input.UserID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, jsonResponse{"account": account}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *AdminHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	h.move(w, r, h.ledger.Deposit)
}

func (h *AdminHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	h.move(w, r, h.ledger.Withdraw)
}

func (h *AdminHandler) move(w http.ResponseWriter, r *http.Request, op ledgerMove) {
	userID, err := getIDFromURL(r, "userID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	var input amountRequest
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	entry, err := op(r.Context(), userID, input.Amount)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"entry": entry}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// CancelOpenMatches отменяет все набирающиеся и идущие матчи с возвратом ставок.
func (h *AdminHandler) CancelOpenMatches(w http.ResponseWriter, r *http.Request) {
	actor, err := middleware.ActorFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}
	report, err := h.escrow.CancelAllOpen(r.Context(), actor)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"report": report}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
