package event

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/solamate/fundpool/internal/keys"
	"github.com/solamate/fundpool/internal/wallet"
	"github.com/solamate/fundpool/pkg/middleware"
	"github.com/solamate/fundpool/pkg/response"
)

// Handler handles HTTP requests for funding event operations
type Handler struct {
	service *Service
}

// NewHandler creates a new event handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the router for event endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{address}", h.GetByAddress)
	r.Post("/{address}/close", h.Close)

	return r
}

// Create handles POST /events
// @Summary      Create a funding event
// @Description  Open a pooled funding event; the full amount moves from the creator's wallet into the event's custody atomically
// @Tags         events
// @Accept       json
// @Produce      json
// @Param        request body CreateEventRequest true "Event creation request"
// @Success      201 {object} response.APIResponse{data=EventResponse}
// @Failure      400 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Router       /events [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.GetCaller(r.Context())
	if !ok {
		response.Unauthorized(w, "Caller identity required")
		return
	}

	var req CreateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	ev, err := h.service.Create(r.Context(), caller, &req)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidTitle), errors.Is(err, ErrInvalidAmount), errors.Is(err, ErrInvalidMetadata):
			response.BadRequest(w, err.Error())
		case errors.Is(err, wallet.ErrInsufficientBalance):
			response.InsufficientFunds(w, err.Error())
		case errors.Is(err, ErrDuplicateEvent):
			response.Conflict(w, err.Error())
		default:
			response.InternalError(w, "Failed to create funding event")
		}
		return
	}

	response.JSON(w, http.StatusCreated, ev.ToResponse())
}

// GetByAddress handles GET /events/{address}
// @Summary      Get funding event
// @Tags         events
// @Produce      json
// @Param        address path string true "Event address (base58)"
// @Success      200 {object} response.APIResponse{data=EventResponse}
// @Failure      404 {object} response.APIResponse
// @Router       /events/{address} [get]
func (h *Handler) GetByAddress(w http.ResponseWriter, r *http.Request) {
	addr, err := keys.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		response.BadRequest(w, "Invalid event address")
		return
	}

	ev, err := h.service.GetByAddress(r.Context(), addr)
	if err != nil {
		if errors.Is(err, ErrEventNotFound) {
			response.NotFound(w, err.Error())
			return
		}
		response.InternalError(w, "Failed to get funding event")
		return
	}

	response.JSON(w, http.StatusOK, ev.ToResponse())
}

// List handles GET /events
// @Summary      List funding events
// @Tags         events
// @Produce      json
// @Param        page query int false "Page number" default(1)
// @Param        per_page query int false "Items per page" default(20)
// @Success      200 {object} response.APIResponse{data=[]EventResponse}
// @Router       /events [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))

	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}

	events, total, err := h.service.List(r.Context(), page, perPage)
	if err != nil {
		response.InternalError(w, "Failed to list funding events")
		return
	}

	eventResponses := make([]*EventResponse, len(events))
	for i, ev := range events {
		eventResponses[i] = ev.ToResponse()
	}

	totalPages := (total + perPage - 1) / perPage
	meta := &response.Meta{
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: totalPages,
	}

	response.JSONWithMeta(w, http.StatusOK, eventResponses, meta)
}

// Close handles POST /events/{address}/close
// @Summary      Close a funding event
// @Description  Sweep the undisbursed remainder back to the creator and mark the event closed; safe to call on an already-closed event
// @Tags         events
// @Produce      json
// @Param        address path string true "Event address (base58)"
// @Success      200 {object} response.APIResponse{data=CloseEventResponse}
// @Failure      403 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /events/{address}/close [post]
func (h *Handler) Close(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.GetCaller(r.Context())
	if !ok {
		response.Unauthorized(w, "Caller identity required")
		return
	}

	addr, err := keys.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		response.BadRequest(w, "Invalid event address")
		return
	}

	ev, swept, err := h.service.Close(r.Context(), caller, addr)
	if err != nil {
		switch {
		case errors.Is(err, ErrEventNotFound):
			response.NotFound(w, err.Error())
		case errors.Is(err, ErrNotAuthorized):
			response.Forbidden(w, err.Error())
		default:
			response.InternalError(w, "Failed to close funding event")
		}
		return
	}

	response.JSON(w, http.StatusOK, &CloseEventResponse{
		Event:    ev.ToResponse(),
		Returned: swept,
	})
}
