package wallet

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/solamate/fundpool/internal/keys"
	"github.com/solamate/fundpool/pkg/response"
)

// Handler handles HTTP requests for wallet operations
type Handler struct {
	service *Service
}

// NewHandler creates a new wallet handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the router for wallet endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/{identity}", h.Get)
	r.Post("/{identity}/deposit", h.Deposit)

	return r
}

// Get handles GET /wallets/{identity}
// @Summary      Get wallet account
// @Description  Get the balance of a wallet account
// @Tags         wallets
// @Produce      json
// @Param        identity path string true "Account identity (base58)"
// @Success      200 {object} response.APIResponse{data=AccountResponse}
// @Failure      404 {object} response.APIResponse
// @Router       /wallets/{identity} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	identity, err := keys.ParseIdentity(chi.URLParam(r, "identity"))
	if err != nil {
		response.BadRequest(w, "Invalid identity")
		return
	}

	account, err := h.service.Get(r.Context(), identity)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			response.NotFound(w, err.Error())
			return
		}
		response.InternalError(w, "Failed to get wallet account")
		return
	}

	response.JSON(w, http.StatusOK, account.ToResponse())
}

// Deposit handles POST /wallets/{identity}/deposit
// @Summary      Deposit into a wallet account
// @Description  Credit an account, creating it on first use (dev faucet)
// @Tags         wallets
// @Accept       json
// @Produce      json
// @Param        identity path string true "Account identity (base58)"
// @Param        request body DepositRequest true "Deposit request"
// @Success      200 {object} response.APIResponse{data=AccountResponse}
// @Failure      400 {object} response.APIResponse
// @Router       /wallets/{identity}/deposit [post]
func (h *Handler) Deposit(w http.ResponseWriter, r *http.Request) {
	identity, err := keys.ParseIdentity(chi.URLParam(r, "identity"))
	if err != nil {
		response.BadRequest(w, "Invalid identity")
		return
	}

	var req DepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	account, err := h.service.Deposit(r.Context(), identity, req.Amount)
	if err != nil {
		if errors.Is(err, ErrInvalidAmount) {
			response.BadRequest(w, err.Error())
			return
		}
		response.InternalError(w, "Failed to deposit")
		return
	}

	response.JSON(w, http.StatusOK, account.ToResponse())
}
