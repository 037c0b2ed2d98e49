package domain

import "time"

type Navigation struct {
	RequestID   string     `json:"request_id"`
	From        Coordinate `json:"from"`
	To          Coordinate `json:"to"`
	DistanceKM  float64    `json:"distance_km"`
	EtaMinutes  int        `json:"eta_minutes"`
	Band        string     `json:"band"`
	Message     string     `json:"message"`
	ComputedAt  time.Time  `json:"computed_at"`
	VolunteerID string     `json:"volunteer_id,omitempty"`
}

type VolunteerLocation struct {
	VolunteerID string     `json:"volunteer_id"`
	Location    Coordinate `json:"location"`
	RecordedAt  time.Time  `json:"recorded_at"`
}

type UpdateLocationRequest struct {
	Lat *float64 `json:"lat" validate:"required,lat"`
	Lng *float64 `json:"lng" validate:"required,lng"`
}

type VolunteerMatch struct {
	VolunteerID   string  `json:"volunteer_id"`
	VolunteerName string  `json:"volunteer_name,omitempty"`
	DistanceKM    float64 `json:"distance_km"`
	EtaMinutes    int     `json:"eta_minutes"`
}

type Dashboard struct {
	Role            Role                    `json:"role"`
	MyRequests      []*HelpRequest          `json:"my_requests,omitempty"`
	PendingRequests []*HelpRequest          `json:"pending_requests,omitempty"`
	MyClaimed       []*HelpRequest          `json:"my_claimed,omitempty"`
	ClaimedRequests []*HelpRequest          `json:"claimed_requests,omitempty"`
	Counts          map[RequestStatus]int64 `json:"counts,omitempty"`
}
