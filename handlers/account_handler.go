package handlers

import (
	"net/http"

	"github.com/Dosada05/arena-escrow/middleware"
	"github.com/Dosada05/arena-escrow/services"
)

type AccountHandler struct {
	ledger services.LedgerService
}

func NewAccountHandler(ls services.LedgerService) *AccountHandler {
	return &AccountHandler{ledger: ls}
}

func (h *AccountHandler) MyAccount(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}
	account, err := h.ledger.GetAccount(r.Context(), currentUserID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"account": account}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *AccountHandler) MyLedger(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}
	limit, err := getLimit(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	entries, err := h.ledger.History(r.Context(), currentUserID, limit)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"entries": entries}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
