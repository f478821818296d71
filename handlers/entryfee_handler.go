package handlers

import (
	"net/http"

	"github.com/Baku-1/kingdom-tournament-sub000/middleware"
	"github.com/Baku-1/kingdom-tournament-sub000/services"
)

type EntryFeeHandler struct {
	entryFeeService *services.EntryFeeService
}

func NewEntryFeeHandler(es *services.EntryFeeService) *EntryFeeHandler {
	return &EntryFeeHandler{entryFeeService: es}
}

// DistributeHandler handles POST /tournaments/{tournamentID}/fees/distribute.
// Permissionless by design; anyone may trigger the split once registration
// has closed.
func (h *EntryFeeHandler) DistributeHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.entryFeeService.DistributeEntryFees(r.Context(), id); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"distributed": true}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// RefundHandler handles POST /tournaments/{tournamentID}/fees/refund
func (h *EntryFeeHandler) RefundHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required to claim a refund")
		return
	}

	amount, err := h.entryFeeService.ClaimEntryFeeRefund(r.Context(), currentUserID, id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"refunded": true, "amount": amount}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
