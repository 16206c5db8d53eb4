package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/Dosada05/arena-escrow/middleware"
	"github.com/Dosada05/arena-escrow/models"
	"github.com/Dosada05/arena-escrow/services"
	"github.com/shopspring/decimal"
)

const maxProofSize = 10 << 20 // 10MB

type MatchHandler struct {
	escrow   services.EscrowService
	registry services.MatchRegistry
	proofs   services.ProofService
}

func NewMatchHandler(es services.EscrowService, mr services.MatchRegistry, ps services.ProofService) *MatchHandler {
	return &MatchHandler{escrow: es, registry: mr, proofs: ps}
}

type createMatchRequest struct {
	Mode     models.MatchMode `json:"mode"`
	Stake    decimal.Decimal  `json:"stake"`
	Password string           `json:"password,omitempty"`
}

type joinSlotRequest struct {
	Side     models.Side `json:"side"`
	Password string      `json:"password,omitempty"`
}

type submitProofRequest struct {
	ProofRef string `json:"proof_ref"`
}

// ListOpenMatches godoc
// @Summary Открытые матчи
// @Tags matches
// @Produce json
// @Param limit query int false "Максимум записей"
// @Success 200 {object} map[string]interface{}
// @Router /matches [get]
func (h *MatchHandler) ListOpenMatches(w http.ResponseWriter, r *http.Request) {
	limit, err := getLimit(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	matches, err := h.registry.ListOpenMatches(r.Context(), limit)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"matches": matches}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MatchHandler) GetMatch(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	view, err := h.registry.GetMatch(r.Context(), matchID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": view}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MatchHandler) ListMyMatches(w http.ResponseWriter, r *http.Request) {
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
	matches, err := h.registry.ListMatchesForUser(r.Context(), currentUserID, limit)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"matches": matches}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// CreateMatch godoc
// @Summary Создать матч со ставкой
// @Tags matches
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 201 {object} map[string]interface{}
// @Failure 402 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /matches [post]
func (h *MatchHandler) CreateMatch(w http.ResponseWriter, r *http.Request) {
	var input createMatchRequest
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	match, err := h.escrow.CreateMatch(r.Context(), currentUserID, services.CreateMatchInput{
		Mode:     input.Mode,
		Stake:    input.Stake,
		Password: input.Password,
	})
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MatchHandler) JoinSlot(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	var input joinSlotRequest
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	match, err := h.escrow.JoinSlot(r.Context(), matchID, currentUserID, services.JoinSlotInput{
		Side:     input.Side,
		Password: input.Password,
	})
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MatchHandler) SubmitProof(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	var input submitProofRequest
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	match, err := h.escrow.SubmitProof(r.Context(), matchID, currentUserID, input.ProofRef)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusAccepted, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// UploadProof принимает скриншот результата в поле "proof" multipart-формы.
func (h *MatchHandler) UploadProof(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxProofSize+(1<<20))
	if err := r.ParseMultipartForm(maxProofSize); err != nil {
		badRequestResponse(w, r, fmt.Errorf("failed to parse multipart form: %w", err))
		return
	}
	file, header, err := r.FormFile("proof")
	if err != nil {
		badRequestResponse(w, r, fmt.Errorf("failed to get proof file from form: %w", err))
		return
	}
	defer file.Close()

	if header.Size > maxProofSize {
		badRequestResponse(w, r, fmt.Errorf("proof must not be larger than %d bytes", maxProofSize))
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		sniff := make([]byte, 512)
		n, err := file.Read(sniff)
		if err != nil && !errors.Is(err, io.EOF) {
			badRequestResponse(w, r, fmt.Errorf("failed to read proof file: %w", err))
			return
		}
		contentType = http.DetectContentType(sniff[:n])
		if _, err := file.Seek(0, io.SeekStart); err != nil {
			serverErrorResponse(w, r, err)
			return
		}
	}

	match, err := h.proofs.UploadProof(r.Context(), matchID, currentUserID, file, contentType)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusAccepted, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MatchHandler) CancelMatch(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	actor, err := middleware.ActorFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	match, err := h.escrow.CancelMatch(r.Context(), matchID, actor)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
