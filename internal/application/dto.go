package application

import "time"

// ApplyRequest represents the request to apply for funding
type ApplyRequest struct {
	Event           string `json:"event" validate:"required"`
	RequestedAmount int64  `json:"requested_amount" validate:"required,gt=0"`
	MetadataRef     string `json:"metadata_ref" validate:"required,max=64"`
}

// ApproveRequest represents the sponsor's approval of an application
type ApproveRequest struct {
	ApprovedAmount int64 `json:"approved_amount" validate:"required,gt=0"`
}

// ApplicationResponse represents the response for an application
type ApplicationResponse struct {
	Address         string `json:"address"`
	Event           string `json:"event"`
	Applicant       string `json:"applicant"`
	RequestedAmount int64  `json:"requested_amount"`
	ApprovedAmount  int64  `json:"approved_amount"`
	MetadataRef     string `json:"metadata_ref"`
	Status          Status `json:"status"`
	AppliedAt       string `json:"applied_at"`
}

// ToResponse converts an Application model to an ApplicationResponse DTO
func (a *Application) ToResponse() *ApplicationResponse {
	return &ApplicationResponse{
		Address:         a.Address.String(),
		Event:           a.Event.String(),
		Applicant:       a.Applicant.String(),
		RequestedAmount: a.RequestedAmount,
		ApprovedAmount:  a.ApprovedAmount,
		MetadataRef:     a.MetadataRef,
		Status:          a.Status,
		AppliedAt:       a.AppliedAt.UTC().Format(time.RFC3339),
	}
}
