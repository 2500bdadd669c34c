package split

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/solamate/fundpool/internal/keys"
	"github.com/solamate/fundpool/pkg/middleware"
	"github.com/solamate/fundpool/pkg/response"
)

// Handler handles HTTP requests for split operations
type Handler struct {
	service *Service
}

// NewHandler creates a new split handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the router for split endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.CreateSplit)
	r.Get("/", h.ListSplits)
	r.Get("/{address}", h.GetSplit)
	r.Post("/{address}/close", h.CloseSplit)
	r.Post("/{address}/members", h.AddMember)
	r.Get("/{address}/members", h.ListMembers)
	r.Post("/{address}/members/{member}/pay", h.MarkPaid)

	return r
}

// CreateSplit handles POST /splits
// @Summary      Create a group split
// @Description  Record a shared expense split evenly across a fixed member count; no funds are held
// @Tags         splits
// @Accept       json
// @Produce      json
// @Param        request body CreateSplitRequest true "Split data"
// @Success      201 {object} response.APIResponse{data=SplitResponse}
// @Failure      400 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Router       /splits [post]
func (h *Handler) CreateSplit(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.GetCaller(r.Context())
	if !ok {
		response.Unauthorized(w, "Caller identity required")
		return
	}

	var req CreateSplitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	split, err := h.service.Create(r.Context(), caller, &req)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidTitle), errors.Is(err, ErrInvalidAmount),
			errors.Is(err, ErrInvalidMemberCount), errors.Is(err, ErrInvalidMetadata):
			response.BadRequest(w, err.Error())
		case errors.Is(err, ErrDuplicateSplit):
			response.Conflict(w, err.Error())
		default:
			response.InternalError(w, "Failed to create split")
		}
		return
	}

	response.JSON(w, http.StatusCreated, split.ToResponse())
}

// ListSplits handles GET /splits
// @Summary      List the caller's splits
// @Tags         splits
// @Produce      json
// @Success      200 {object} response.APIResponse{data=[]SplitResponse}
// @Router       /splits [get]
func (h *Handler) ListSplits(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.GetCaller(r.Context())
	if !ok {
		response.Unauthorized(w, "Caller identity required")
		return
	}

	splits, err := h.service.ListByCreator(r.Context(), caller)
	if err != nil {
		response.InternalError(w, "Failed to list splits")
		return
	}

	resp := make([]*SplitResponse, 0, len(splits))
	for _, split := range splits {
		resp = append(resp, split.ToResponse())
	}

	response.JSON(w, http.StatusOK, resp)
}

// GetSplit handles GET /splits/{address}
// @Summary      Get a split with its members
// @Tags         splits
// @Produce      json
// @Param        address path string true "Split address"
// @Success      200 {object} response.APIResponse{data=SplitResponse}
// @Failure      404 {object} response.APIResponse
// @Router       /splits/{address} [get]
func (h *Handler) GetSplit(w http.ResponseWriter, r *http.Request) {
	addr, err := keys.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		response.BadRequest(w, "Invalid split address")
		return
	}

	split, err := h.service.Get(r.Context(), addr)
	if err != nil {
		if errors.Is(err, ErrSplitNotFound) {
			response.NotFound(w, err.Error())
			return
		}
		response.InternalError(w, "Failed to get split")
		return
	}

	members, err := h.service.ListMembers(r.Context(), addr)
	if err != nil {
		response.InternalError(w, "Failed to list members")
		return
	}

	resp := split.ToResponse()
	resp.Members = make([]*MemberResponse, 0, len(members))
	for _, member := range members {
		resp.Members = append(resp.Members, member.ToResponse())
	}

	response.JSON(w, http.StatusOK, resp)
}

// AddMember handles POST /splits/{address}/members
// @Summary      Add a member to a split
// @Description  Enroll an identity owing the fixed per-person share; creator only, active splits only
// @Tags         splits
// @Accept       json
// @Produce      json
// @Param        address path string true "Split address"
// @Param        request body AddMemberRequest true "Member data"
// @Success      201 {object} response.APIResponse{data=MemberResponse}
// @Failure      403 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Router       /splits/{address}/members [post]
func (h *Handler) AddMember(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.GetCaller(r.Context())
	if !ok {
		response.Unauthorized(w, "Caller identity required")
		return
	}

	addr, err := keys.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		response.BadRequest(w, "Invalid split address")
		return
	}

	var req AddMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	member, err := h.service.AddMember(r.Context(), caller, addr, &req)
	if err != nil {
		switch {
		case errors.Is(err, keys.ErrInvalidIdentity):
			response.BadRequest(w, err.Error())
		case errors.Is(err, ErrSplitNotFound):
			response.NotFound(w, err.Error())
		case errors.Is(err, ErrNotAuthorized):
			response.Forbidden(w, err.Error())
		case errors.Is(err, ErrSplitNotActive):
			response.StaleState(w, err.Error())
		case errors.Is(err, ErrDuplicateMember):
			response.Conflict(w, err.Error())
		default:
			response.InternalError(w, "Failed to add member")
		}
		return
	}

	response.JSON(w, http.StatusCreated, member.ToResponse())
}

// ListMembers handles GET /splits/{address}/members
// @Summary      List the members of a split
// @Tags         splits
// @Produce      json
// @Param        address path string true "Split address"
// @Success      200 {object} response.APIResponse{data=[]MemberResponse}
// @Failure      404 {object} response.APIResponse
// @Router       /splits/{address}/members [get]
func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	addr, err := keys.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		response.BadRequest(w, "Invalid split address")
		return
	}

	members, err := h.service.ListMembers(r.Context(), addr)
	if err != nil {
		if errors.Is(err, ErrSplitNotFound) {
			response.NotFound(w, err.Error())
			return
		}
		response.InternalError(w, "Failed to list members")
		return
	}

	resp := make([]*MemberResponse, 0, len(members))
	for _, member := range members {
		resp = append(resp, member.ToResponse())
	}

	response.JSON(w, http.StatusOK, resp)
}

// MarkPaid handles POST /splits/{address}/members/{member}/pay
// @Summary      Mark a member's share as paid
// @Description  Acknowledge an out-of-band payment; the split settles automatically when the last member pays
// @Tags         splits
// @Produce      json
// @Param        address path string true "Split address"
// @Param        member path string true "Member record address"
// @Success      200 {object} response.APIResponse{data=SplitResponse}
// @Failure      403 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Router       /splits/{address}/members/{member}/pay [post]
func (h *Handler) MarkPaid(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.GetCaller(r.Context())
	if !ok {
		response.Unauthorized(w, "Caller identity required")
		return
	}

	addr, err := keys.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		response.BadRequest(w, "Invalid split address")
		return
	}
	memberAddr, err := keys.ParseAddress(chi.URLParam(r, "member"))
	if err != nil {
		response.BadRequest(w, "Invalid member address")
		return
	}

	split, member, err := h.service.MarkPaid(r.Context(), caller, addr, memberAddr)
	if err != nil {
		switch {
		case errors.Is(err, ErrSplitNotFound), errors.Is(err, ErrMemberNotFound):
			response.NotFound(w, err.Error())
		case errors.Is(err, ErrNotAuthorized):
			response.Forbidden(w, err.Error())
		case errors.Is(err, ErrSplitNotActive), errors.Is(err, ErrAlreadyPaid):
			response.StaleState(w, err.Error())
		default:
			response.InternalError(w, "Failed to mark paid")
		}
		return
	}

	resp := split.ToResponse()
	resp.Members = []*MemberResponse{member.ToResponse()}

	response.JSON(w, http.StatusOK, resp)
}

// CloseSplit handles POST /splits/{address}/close
// @Summary      Close a split
// @Description  Archive a split from any state; creator only
// @Tags         splits
// @Produce      json
// @Param        address path string true "Split address"
// @Success      200 {object} response.APIResponse{data=SplitResponse}
// @Failure      403 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /splits/{address}/close [post]
func (h *Handler) CloseSplit(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.GetCaller(r.Context())
	if !ok {
		response.Unauthorized(w, "Caller identity required")
		return
	}

	addr, err := keys.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		response.BadRequest(w, "Invalid split address")
		return
	}

	split, err := h.service.Close(r.Context(), caller, addr)
	if err != nil {
		switch {
		case errors.Is(err, ErrSplitNotFound):
			response.NotFound(w, err.Error())
		case errors.Is(err, ErrNotAuthorized):
			response.Forbidden(w, err.Error())
		default:
			response.InternalError(w, "Failed to close split")
		}
		return
	}

	response.JSON(w, http.StatusOK, split.ToResponse())
}
