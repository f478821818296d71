package handlers

import (
	"errors"
	"net/http"

	"github.com/Baku-1/kingdom-tournament-sub000/middleware"
	"github.com/Baku-1/kingdom-tournament-sub000/models"
	"github.com/Baku-1/kingdom-tournament-sub000/services"
	"github.com/go-chi/chi/v5"
)

type WalletHandler struct {
	walletService *services.WalletService
}

func NewWalletHandler(ws *services.WalletService) *WalletHandler {
	return &WalletHandler{walletService: ws}
}

type walletAmountInput struct {
	Asset  models.Asset `json:"asset"`
	Amount int64        `json:"amount"`
}

// DepositHandler handles POST /wallet/deposit
func (h *WalletHandler) DepositHandler(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	var input walletAmountInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.walletService.Deposit(r.Context(), currentUserID, input.Asset, input.Amount); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"deposited": true}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ApproveHandler handles POST /wallet/approve; the allowance lets the engine
// pull token value from the caller's balance during creation/registration.
func (h *WalletHandler) ApproveHandler(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	var input walletAmountInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.walletService.Approve(r.Context(), currentUserID, input.Asset, input.Amount); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"approved": true}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// AllowanceHandler handles GET /wallet/allowances/{asset}
func (h *WalletHandler) AllowanceHandler(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	asset := models.Asset(chi.URLParam(r, "asset"))
	if !asset.Valid() {
		badRequestResponse(w, r, errors.New("invalid asset URL parameter"))
		return
	}

	allowance, err := h.walletService.Allowance(r.Context(), currentUserID, asset)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"asset": asset, "allowance": allowance}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// BalancesHandler handles GET /wallet/balances
func (h *WalletHandler) BalancesHandler(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	balances, err := h.walletService.Balances(r.Context(), currentUserID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"balances": balances}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
