package handlers

import (
	"net/http"

	"github.com/Dosada05/arena-escrow/middleware"
	"github.com/Dosada05/arena-escrow/models"
	"github.com/Dosada05/arena-escrow/services"
)

// ReviewHandler - очередь ручной проверки результатов для арбитров.
type ReviewHandler struct {
	escrow   services.EscrowService
	registry services.MatchRegistry
}

func NewReviewHandler(es services.EscrowService, mr services.MatchRegistry) *ReviewHandler {
	return &ReviewHandler{escrow: es, registry: mr}
}

type approvePayoutRequest struct {
	WinnerSide models.Side `json:"winner_side"`
}

func (h *ReviewHandler) ListQueue(w http.ResponseWriter, r *http.Request) {
	matches, err := h.registry.ListMatchesInReview(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"matches": matches}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *ReviewHandler) ApprovePayout(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	var input approvePayoutRequest
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	reviewer, err := middleware.ActorFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	match, err := h.escrow.ApprovePayout(r.Context(), matchID, input.WinnerSide, reviewer)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
