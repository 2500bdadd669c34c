package disbursement

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/solamate/fundpool/internal/application"
	"github.com/solamate/fundpool/internal/event"
	"github.com/solamate/fundpool/internal/keys"
	"github.com/solamate/fundpool/pkg/middleware"
	"github.com/solamate/fundpool/pkg/response"
)

// Handler handles HTTP requests for disbursement operations
type Handler struct {
	service *Service
}

// NewHandler creates a new disbursement handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the router for disbursement endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.Disburse)

	return r
}

// Disburse handles POST /disbursements
// @Summary      Disburse an approved application
// @Description  Pay the approved amount out of the event's custody into the applicant's wallet; callable by anyone once approved
// @Tags         disbursements
// @Accept       json
// @Produce      json
// @Param        request body DisburseRequest true "Disbursement request"
// @Success      200 {object} response.APIResponse{data=DisburseResponse}
// @Failure      404 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Router       /disbursements [post]
func (h *Handler) Disburse(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.GetCaller(r.Context())
	if !ok {
		response.Unauthorized(w, "Caller identity required")
		return
	}

	var req DisburseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	app, amount, err := h.service.Disburse(r.Context(), caller, &req)
	if err != nil {
		switch {
		case errors.Is(err, keys.ErrInvalidAddress), errors.Is(err, ErrMismatchedRecords):
			response.BadRequest(w, err.Error())
		case errors.Is(err, event.ErrEventNotFound), errors.Is(err, application.ErrApplicationNotFound):
			response.NotFound(w, err.Error())
		case errors.Is(err, ErrNotApproved):
			response.StaleState(w, err.Error())
		case errors.Is(err, event.ErrInsufficientFunds):
			response.InsufficientFunds(w, err.Error())
		default:
			response.InternalError(w, "Failed to disburse funds")
		}
		return
	}

	ev, err := h.service.events.GetByAddress(r.Context(), app.Event)
	remaining := int64(0)
	if err == nil && ev != nil {
		remaining = ev.RemainingAmount
	}

	response.JSON(w, http.StatusOK, &DisburseResponse{
		Application: app.ToResponse(),
		Amount:      amount,
		Remaining:   remaining,
	})
}
