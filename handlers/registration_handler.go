package handlers

import (
	"net/http"

	"github.com/Baku-1/kingdom-tournament-sub000/middleware"
	"github.com/Baku-1/kingdom-tournament-sub000/services"
)

type RegistrationHandler struct {
	registrationService *services.RegistrationService
}

func NewRegistrationHandler(rs *services.RegistrationService) *RegistrationHandler {
	return &RegistrationHandler{registrationService: rs}
}

// RegisterHandler handles POST /tournaments/{tournamentID}/register
func (h *RegistrationHandler) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required to register")
		return
	}

	if err := h.registrationService.RegisterNoFee(r.Context(), currentUserID, id); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"registered": true}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// RegisterWithFeeHandler handles POST /tournaments/{tournamentID}/register-paid.
// The body carries the native value sent along with the call; token fees are
// pulled from the caller's allowance instead.
func (h *RegistrationHandler) RegisterWithFeeHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required to register")
		return
	}

	var input struct {
		Value int64 `json:"value"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.registrationService.RegisterWithFee(r.Context(), currentUserID, id, input.Value); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"registered": true}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
