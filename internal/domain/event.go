package domain

import (
	"fmt"
	"strings"
	"time"
)

const (
	TopicRequestPrefix     = "requests."
	TopicVolunteerLocation = "volunteers.location"
)

// TopicFor returns the broadcast topic for a request entering status.
func TopicFor(status RequestStatus) string {
	return TopicRequestPrefix + string(status)
}

// RequestChanged is emitted after every successful lifecycle transition.
// PreviousStatus is empty for a freshly created request. PreviousVolunteerID is
// the volunteer whose claim the transition released, if any.
type RequestChanged struct {
	EventID             string        `json:"event_id"`
	RequestID           string        `json:"request_id"`
	PreviousStatus      RequestStatus `json:"previous_status,omitempty"`
	NewStatus           RequestStatus `json:"new_status"`
	PreviousVolunteerID string        `json:"previous_volunteer_id,omitempty"`
	ActorID             string        `json:"actor_id"`
	Reason              string        `json:"reason,omitempty"`
	OccurredAt          time.Time     `json:"occurred_at"`
	Request             *HelpRequest  `json:"payload"`
}

// Public returns a copy of the event without the requester's contact details.
func (ev RequestChanged) Public() RequestChanged {
	ev.Request = ev.Request.Clone()
	if ev.Request != nil {
		ev.Request.Contact = ""
	}
	return ev
}

// VolunteerMoved is published on every accepted volunteer location update.
type VolunteerMoved struct {
	EventID     string     `json:"event_id"`
	VolunteerID string     `json:"volunteer_id"`
	Location    Coordinate `json:"location"`
	RecordedAt  time.Time  `json:"recorded_at"`
}

type Notification struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
	Urgent  bool   `json:"urgent"`
}

// NotificationFor renders the volunteer-facing message for a newly created request.
func NotificationFor(r *HelpRequest) Notification {
	who := r.RequesterName
	if who == "" {
		who = "Someone"
	}
	where := r.Address
	if where == "" {
		where = fmt.Sprintf("%.5f, %.5f", r.Location.Lat, r.Location.Lng)
	}
	if r.Priority == PriorityHigh {
		return Notification{
			Subject: "URGENT: New Help Request",
			Body:    fmt.Sprintf("URGENT REQUEST: %s needs %s assistance at %s. Please respond immediately!", who, r.Category, where),
			Urgent:  true,
		}
	}
	return Notification{
		Subject: fmt.Sprintf("New %s Request", titleCase(r.Category)),
		Body:    fmt.Sprintf("%s needs %s assistance at %s. Priority: %s", who, r.Category, where, strings.ToUpper(string(r.Priority))),
	}
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// WebhookPayload is queued for outbound webhook delivery.
type WebhookPayload struct {
	Topic        string          `json:"topic"`
	Event        *RequestChanged `json:"event,omitempty"`
	Notification *Notification   `json:"notification,omitempty"`
	QueuedAt     time.Time       `json:"queued_at"`
}
