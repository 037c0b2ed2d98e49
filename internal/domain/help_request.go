package domain

import (
	"errors"
	"fmt"
	"time"
)

type RequestStatus string

const (
	StatusPending   RequestStatus = "pending"
	StatusClaimed   RequestStatus = "claimed"
	StatusCompleted RequestStatus = "completed"
	StatusCancelled RequestStatus = "cancelled"
)

func (s RequestStatus) Valid() bool {
	switch s {
	case StatusPending, StatusClaimed, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no transition leaves s.
func (s RequestStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

var transitions = map[RequestStatus][]RequestStatus{
	StatusPending: {StatusClaimed, StatusCancelled},
	StatusClaimed: {StatusCompleted, StatusCancelled, StatusPending},
}

// CanTransition reports whether from -> to is an edge of the lifecycle graph.
func CanTransition(from, to RequestStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh:
		return true
	}
	return false
}

type Coordinate struct {
	Lat float64 `json:"lat" validate:"lat"` // -90..90
	Lng float64 `json:"lng" validate:"lng"` // -180..180
}

func (c Coordinate) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}

type HelpRequest struct {
	ID            string        `json:"id"`
	RequesterID   string        `json:"requester_id"`
	RequesterName string        `json:"requester_name,omitempty"`
	Location      Coordinate    `json:"location"`
	Address       string        `json:"address,omitempty"`
	Category      string        `json:"category"`
	Description   string        `json:"description"`
	Priority      Priority      `json:"priority"`
	Contact       string        `json:"contact,omitempty"`
	Status        RequestStatus `json:"status"`
	VolunteerID   *string       `json:"volunteer_id,omitempty"`
	VolunteerName *string       `json:"volunteer_name,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
	ClaimedAt     *time.Time    `json:"claimed_at,omitempty"`
	CompletedAt   *time.Time    `json:"completed_at,omitempty"`
	CancelledAt   *time.Time    `json:"cancelled_at,omitempty"`
	Version       int64         `json:"version"`
}

var errInvariant = errors.New("help request invariant violated")

// Validate checks the lifecycle invariants binding status, volunteer and timestamps.
func (r *HelpRequest) Validate() error {
	if !r.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", errInvariant, r.Status)
	}
	claimedState := r.Status == StatusClaimed || r.Status == StatusCompleted
	if claimedState != (r.ClaimedAt != nil) {
		return fmt.Errorf("%w: claimed_at with status %s", errInvariant, r.Status)
	}
	if (r.VolunteerID != nil) != (r.ClaimedAt != nil) {
		return fmt.Errorf("%w: volunteer_id and claimed_at disagree", errInvariant)
	}
	if (r.Status == StatusCompleted) != (r.CompletedAt != nil) {
		return fmt.Errorf("%w: completed_at with status %s", errInvariant, r.Status)
	}
	if (r.Status == StatusCancelled) != (r.CancelledAt != nil) {
		return fmt.Errorf("%w: cancelled_at with status %s", errInvariant, r.Status)
	}
	return nil
}

// AssignedTo reports whether volunteerID holds the claim.
func (r *HelpRequest) AssignedTo(volunteerID string) bool {
	return r.VolunteerID != nil && *r.VolunteerID == volunteerID
}

// Clone returns a deep copy so callers never share pointer fields with the store.
func (r *HelpRequest) Clone() *HelpRequest {
	if r == nil {
		return nil
	}
	c := *r
	c.VolunteerID = cloneString(r.VolunteerID)
	c.VolunteerName = cloneString(r.VolunteerName)
	c.ClaimedAt = cloneTime(r.ClaimedAt)
	c.CompletedAt = cloneTime(r.CompletedAt)
	c.CancelledAt = cloneTime(r.CancelledAt)
	return &c
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// ClaimAttempt describes one volunteer racing for a request. It is never persisted.
type ClaimAttempt struct {
	RequestID   string
	ActorID     string
	AttemptedAt time.Time
}
