package split

import "time"

// CreateSplitRequest represents the request to create a group split
type CreateSplitRequest struct {
	Title       string `json:"title" validate:"required,max=64"`
	TotalAmount int64  `json:"total_amount" validate:"required,gt=0"`
	MemberCount int    `json:"member_count" validate:"required,min=1,max=20"`
	MetadataRef string `json:"metadata_ref" validate:"required,max=64"`
}

// AddMemberRequest represents the request to add a member to a split
type AddMemberRequest struct {
	Member string `json:"member" validate:"required"`
}

// SplitResponse represents the response for a group split
type SplitResponse struct {
	Address         string            `json:"address"`
	Creator         string            `json:"creator"`
	Title           string            `json:"title"`
	TotalAmount     int64             `json:"total_amount"`
	MemberCount     int               `json:"member_count"`
	AmountPerPerson int64             `json:"amount_per_person"`
	SettledCount    int               `json:"settled_count"`
	Status          Status            `json:"status"`
	MetadataRef     string            `json:"metadata_ref"`
	CreatedAt       string            `json:"created_at"`
	Members         []*MemberResponse `json:"members,omitempty"`
}

// MemberResponse represents a member in a split response
type MemberResponse struct {
	Address    string `json:"address"`
	Member     string `json:"member"`
	AmountOwed int64  `json:"amount_owed"`
	Paid       bool   `json:"paid"`
	PaidAt     string `json:"paid_at,omitempty"`
}

// ToResponse converts a GroupSplit model to a SplitResponse DTO
func (g *GroupSplit) ToResponse() *SplitResponse {
	return &SplitResponse{
		Address:         g.Address.String(),
		Creator:         g.Creator.String(),
		Title:           g.Title,
		TotalAmount:     g.TotalAmount,
		MemberCount:     g.MemberCount,
		AmountPerPerson: g.AmountPerPerson,
		SettledCount:    g.SettledCount,
		Status:          g.Status,
		MetadataRef:     g.MetadataRef,
		CreatedAt:       g.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// ToResponse converts a SplitMember model to a MemberResponse DTO
func (m *SplitMember) ToResponse() *MemberResponse {
	resp := &MemberResponse{
		Address:    m.Address.String(),
		Member:     m.Member.String(),
		AmountOwed: m.AmountOwed,
		Paid:       m.Paid,
	}
	if m.PaidAt != nil {
		resp.PaidAt = m.PaidAt.UTC().Format(time.RFC3339)
	}
	return resp
}
