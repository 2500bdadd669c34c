package event

import "time"

// CreateEventRequest represents the request to create a funding event
type CreateEventRequest struct {
	Title       string `json:"title" validate:"required,max=64"`
	Amount      int64  `json:"amount" validate:"required,gt=0"`
	Deadline    int64  `json:"deadline" validate:"required"` // unix seconds
	MetadataRef string `json:"metadata_ref" validate:"required,max=64"`
}

// EventResponse represents the response for a funding event
type EventResponse struct {
	Address          string `json:"address"`
	Creator          string `json:"creator"`
	Title            string `json:"title"`
	TotalAmount      int64  `json:"total_amount"`
	RemainingAmount  int64  `json:"remaining_amount"`
	Deadline         string `json:"deadline"`
	MetadataRef      string `json:"metadata_ref"`
	Status           Status `json:"status"`
	ApplicationCount int    `json:"application_count"`
	ApprovedCount    int    `json:"approved_count"`
	CreatedAt        string `json:"created_at"`
}

// CloseEventResponse reports the sweep performed by CloseEvent
type CloseEventResponse struct {
	Event    *EventResponse `json:"event"`
	Returned int64          `json:"returned"`
}

// ToResponse converts a FundingEvent model to an EventResponse DTO
func (e *FundingEvent) ToResponse() *EventResponse {
	return &EventResponse{
		Address:          e.Address.String(),
		Creator:          e.Creator.String(),
		Title:            e.Title,
		TotalAmount:      e.TotalAmount,
		RemainingAmount:  e.RemainingAmount,
		Deadline:         e.Deadline.UTC().Format(time.RFC3339),
		MetadataRef:      e.MetadataRef,
		Status:           e.Status,
		ApplicationCount: e.ApplicationCount,
		ApprovedCount:    e.ApprovedCount,
		CreatedAt:        e.CreatedAt.UTC().Format(time.RFC3339),
	}
}
