package disbursement

import "github.com/solamate/fundpool/internal/application"

// DisburseRequest names the event and approved application to pay out
type DisburseRequest struct {
	Event       string `json:"event" validate:"required"`
	Application string `json:"application" validate:"required"`
}

// DisburseResponse reports the transfer performed
type DisburseResponse struct {
	Application *application.ApplicationResponse `json:"application"`
	Amount      int64                            `json:"amount"`
	Remaining   int64                            `json:"remaining"`
}
