package application

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/solamate/fundpool/internal/event"
	"github.com/solamate/fundpool/internal/keys"
	"github.com/solamate/fundpool/pkg/middleware"
	"github.com/solamate/fundpool/pkg/response"
)

// Handler handles HTTP requests for application operations
type Handler struct {
	service *Service
}

// NewHandler creates a new application handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the router for application endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.Apply)
	r.Get("/", h.ListByEvent)
	r.Get("/{address}", h.GetByAddress)
	r.Post("/{address}/approve", h.Approve)
	r.Post("/{address}/reject", h.Reject)

	return r
}

// Apply handles POST /applications
// @Summary      Apply for funding
// @Description  Submit a pending application against an active, unexpired event; one application per (event, applicant) pair
// @Tags         applications
// @Accept       json
// @Produce      json
// @Param        request body ApplyRequest true "Application request"
// @Success      201 {object} response.APIResponse{data=ApplicationResponse}
// @Failure      400 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Router       /applications [post]
func (h *Handler) Apply(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.GetCaller(r.Context())
	if !ok {
		response.Unauthorized(w, "Caller identity required")
		return
	}

	var req ApplyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	app, err := h.service.Apply(r.Context(), caller, &req)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidAmount), errors.Is(err, ErrInvalidMetadata), errors.Is(err, keys.ErrInvalidAddress):
			response.BadRequest(w, err.Error())
		case errors.Is(err, event.ErrEventNotFound):
			response.NotFound(w, err.Error())
		case errors.Is(err, ErrEventNotActive):
			response.StaleState(w, err.Error())
		case errors.Is(err, ErrEventExpired):
			response.Expired(w, err.Error())
		case errors.Is(err, ErrDuplicateApplication):
			response.Conflict(w, err.Error())
		default:
			response.InternalError(w, "Failed to submit application")
		}
		return
	}

	response.JSON(w, http.StatusCreated, app.ToResponse())
}

// GetByAddress handles GET /applications/{address}
// @Summary      Get application
// @Tags         applications
// @Produce      json
// @Param        address path string true "Application address (base58)"
// @Success      200 {object} response.APIResponse{data=ApplicationResponse}
// @Failure      404 {object} response.APIResponse
// @Router       /applications/{address} [get]
func (h *Handler) GetByAddress(w http.ResponseWriter, r *http.Request) {
	addr, err := keys.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		response.BadRequest(w, "Invalid application address")
		return
	}

	app, err := h.service.GetByAddress(r.Context(), addr)
	if err != nil {
		if errors.Is(err, ErrApplicationNotFound) {
			response.NotFound(w, err.Error())
			return
		}
		response.InternalError(w, "Failed to get application")
		return
	}

	response.JSON(w, http.StatusOK, app.ToResponse())
}

// ListByEvent handles GET /applications?event={address}
// @Summary      List applications for an event
// @Tags         applications
// @Produce      json
// @Param        event query string true "Event address (base58)"
// @Success      200 {object} response.APIResponse{data=[]ApplicationResponse}
// @Failure      404 {object} response.APIResponse
// @Router       /applications [get]
func (h *Handler) ListByEvent(w http.ResponseWriter, r *http.Request) {
	eventAddr, err := keys.ParseAddress(r.URL.Query().Get("event"))
	if err != nil {
		response.BadRequest(w, "Invalid or missing event address")
		return
	}

	apps, err := h.service.ListByEvent(r.Context(), eventAddr)
	if err != nil {
		if errors.Is(err, event.ErrEventNotFound) {
			response.NotFound(w, err.Error())
			return
		}
		response.InternalError(w, "Failed to list applications")
		return
	}

	appResponses := make([]*ApplicationResponse, len(apps))
	for i, app := range apps {
		appResponses[i] = app.ToResponse()
	}

	response.JSON(w, http.StatusOK, appResponses)
}

// Approve handles POST /applications/{address}/approve
// @Summary      Approve an application
// @Description  Grant a pending application an amount validated against the event's current remaining balance
// @Tags         applications
// @Accept       json
// @Produce      json
// @Param        address path string true "Application address (base58)"
// @Param        request body ApproveRequest true "Approval request"
// @Success      200 {object} response.APIResponse{data=ApplicationResponse}
// @Failure      403 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Router       /applications/{address}/approve [post]
func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.GetCaller(r.Context())
	if !ok {
		response.Unauthorized(w, "Caller identity required")
		return
	}

	addr, err := keys.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		response.BadRequest(w, "Invalid application address")
		return
	}

	var req ApproveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	app, err := h.service.Approve(r.Context(), caller, addr, &req)
	if err != nil {
		h.writeDecisionError(w, err, "Failed to approve application")
		return
	}

	response.JSON(w, http.StatusOK, app.ToResponse())
}

// Reject handles POST /applications/{address}/reject
// @Summary      Reject an application
// @Description  Decline a pending application; the (event, applicant) pair cannot re-apply
// @Tags         applications
// @Produce      json
// @Param        address path string true "Application address (base58)"
// @Success      200 {object} response.APIResponse{data=ApplicationResponse}
// @Failure      403 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Router       /applications/{address}/reject [post]
func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.GetCaller(r.Context())
	if !ok {
		response.Unauthorized(w, "Caller identity required")
		return
	}

	addr, err := keys.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		response.BadRequest(w, "Invalid application address")
		return
	}

	app, err := h.service.Reject(r.Context(), caller, addr)
	if err != nil {
		h.writeDecisionError(w, err, "Failed to reject application")
		return
	}

	response.JSON(w, http.StatusOK, app.ToResponse())
}

// writeDecisionError maps the errors shared by Approve and Reject
func (h *Handler) writeDecisionError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, ErrApplicationNotFound), errors.Is(err, event.ErrEventNotFound):
		response.NotFound(w, err.Error())
	case errors.Is(err, ErrNotAuthorized):
		response.Forbidden(w, err.Error())
	case errors.Is(err, ErrAlreadyProcessed):
		response.StaleState(w, err.Error())
	case errors.Is(err, event.ErrInsufficientFunds):
		response.InsufficientFunds(w, err.Error())
	default:
		response.InternalError(w, fallback)
	}
}
