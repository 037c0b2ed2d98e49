package domain

import "time"

// CreateHelpRequest carries the coordinate as pointers so an absent lat/lng is
// told apart from the equator or the prime meridian.
type CreateHelpRequest struct {
	Lat         *float64 `json:"lat" validate:"required,lat"`
	Lng         *float64 `json:"lng" validate:"required,lng"`
	Category    string   `json:"category" validate:"required,max=64"`
	Description string   `json:"description" validate:"required,max=2000"`
	Priority    Priority `json:"priority" validate:"omitempty,oneof=low normal high"`
	Contact     string   `json:"contact" validate:"max=128"`
	Address     string   `json:"address" validate:"max=256"`
}

// NewHelpRequest is what RequestStore.Create persists.
type NewHelpRequest struct {
	RequesterID   string
	RequesterName string
	Location      Coordinate
	Address       string
	Category      string
	Description   string
	Priority      Priority
	Contact       string
}

type CancelRequest struct {
	Reason string `json:"reason" validate:"max=256"`
}

type UnclaimRequest struct {
	Reason string `json:"reason" validate:"max=256"`
}

// ListFilter selects requests. Empty fields do not constrain.
type ListFilter struct {
	Status      RequestStatus `query:"status"`
	RequesterID string        `query:"requester_id"`
	VolunteerID string        `query:"volunteer_id"`
	Mine        bool          `query:"mine"`
	Limit       int           `query:"limit"`
	Offset      int           `query:"offset"`

	// ClaimedBefore keeps only requests claimed strictly before this instant.
	ClaimedBefore time.Time `query:"-"`
}

const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

// Normalize clamps pagination to sane bounds.
func (f ListFilter) Normalize() ListFilter {
	if f.Limit <= 0 {
		f.Limit = DefaultListLimit
	}
	if f.Limit > MaxListLimit {
		f.Limit = MaxListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

type ListHelpRequestsResponse struct {
	Requests []*HelpRequest `json:"requests"`
	Limit    int            `json:"limit"`
	Offset   int            `json:"offset"`
}
