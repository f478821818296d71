package handlers

import (
	"net/http"

	"github.com/Baku-1/kingdom-tournament-sub000/middleware"
	"github.com/Baku-1/kingdom-tournament-sub000/services"
)

type RewardHandler struct {
	rewardService *services.RewardService
}

func NewRewardHandler(rs *services.RewardService) *RewardHandler {
	return &RewardHandler{rewardService: rs}
}

// DeclareWinnerHandler handles POST /tournaments/{tournamentID}/winners
func (h *RewardHandler) DeclareWinnerHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required to declare winners")
		return
	}

	var input struct {
		Position int `json:"position"`
		WinnerID int `json:"winner_id"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.rewardService.DeclareWinner(r.Context(), currentUserID, id, input.Position, input.WinnerID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"declared": true}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// DeclareWinnersHandler handles POST /tournaments/{tournamentID}/winners/batch.
// All entries apply atomically; one invalid pair fails the whole call.
func (h *RewardHandler) DeclareWinnersHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required to declare winners")
		return
	}

	var input struct {
		Positions []int `json:"positions"`
		WinnerIDs []int `json:"winner_ids"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.rewardService.DeclareWinners(r.Context(), currentUserID, id, input.Positions, input.WinnerIDs); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"declared": true}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ClaimRewardHandler handles POST /tournaments/{tournamentID}/positions/{position}/claim
func (h *RewardHandler) ClaimRewardHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	position, err := getPositionFromURL(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required to claim rewards")
		return
	}

	amount, err := h.rewardService.ClaimReward(r.Context(), currentUserID, id, position)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"claimed": true, "amount": amount}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
