package domain

import (
	"testing"
	"time"
)

func claimed(volunteer string) *HelpRequest {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return &HelpRequest{
		ID:          "r1",
		RequesterID: "victim-1",
		Contact:     "+91 90000 00000",
		Status:      StatusClaimed,
		VolunteerID: &volunteer,
		ClaimedAt:   &now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to RequestStatus
		want     bool
	}{
		{StatusPending, StatusClaimed, true},
		{StatusClaimed, StatusPending, true},
		{StatusClaimed, StatusCancelled, true},
		{StatusPending, StatusCompleted, false},
		{StatusCompleted, StatusPending, false},
		{StatusCancelled, StatusClaimed, false},
	}
	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("%s -> %s: got %v want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestHelpRequest_Validate(t *testing.T) {
	if err := claimed("vol-1").Validate(); err != nil {
		t.Fatalf("valid claim rejected: %v", err)
	}

	noVolunteer := claimed("vol-1")
	noVolunteer.VolunteerID = nil
	pendingWithClaim := claimed("vol-1")
	pendingWithClaim.Status = StatusPending

	for name, r := range map[string]*HelpRequest{
		"claim without volunteer": noVolunteer,
		"pending with claim":      pendingWithClaim,
		"unknown status":          {Status: "lost"},
		"cancelled without time":  {Status: StatusCancelled},
	} {
		if err := r.Validate(); err == nil {
			t.Errorf("%s: expected invariant violation", name)
		}
	}

	now := time.Now()
	if err := (&HelpRequest{Status: StatusCancelled, CancelledAt: &now}).Validate(); err != nil {
		t.Fatalf("cancelled request rejected: %v", err)
	}
}

func TestHelpRequest_CloneIsDeep(t *testing.T) {
	orig := claimed("vol-1")
	c := orig.Clone()

	*c.VolunteerID = "vol-2"
	*c.ClaimedAt = c.ClaimedAt.Add(time.Hour)

	if *orig.VolunteerID != "vol-1" {
		t.Fatalf("volunteer shared with clone: %s", *orig.VolunteerID)
	}
	if orig.ClaimedAt.Equal(*c.ClaimedAt) {
		t.Fatal("claimed_at shared with clone")
	}
	if (*HelpRequest)(nil).Clone() != nil {
		t.Fatal("nil clone must be nil")
	}
}

func TestRequestChanged_Public(t *testing.T) {
	ev := RequestChanged{RequestID: "r1", NewStatus: StatusClaimed, Request: claimed("vol-1")}

	pub := ev.Public()
	if pub.Request.Contact != "" {
		t.Fatalf("contact leaked: %q", pub.Request.Contact)
	}
	if ev.Request.Contact == "" {
		t.Fatal("original event must keep its contact")
	}
	if pub.RequestID != "r1" || pub.Request.ID != "r1" {
		t.Fatalf("unexpected public event %+v", pub)
	}
	if (RequestChanged{}).Public().Request != nil {
		t.Fatal("event without payload stays without payload")
	}
}

func TestNotificationFor(t *testing.T) {
	r := &HelpRequest{
		RequesterName: "Ann",
		Category:      "medical",
		Priority:      PriorityNormal,
		Location:      Coordinate{Lat: 37.7749, Lng: -122.4194},
	}

	n := NotificationFor(r)
	if n.Subject != "New Medical Request" || n.Urgent {
		t.Fatalf("unexpected notification %+v", n)
	}
	if want := "Ann needs medical assistance at 37.77490, -122.41940. Priority: NORMAL"; n.Body != want {
		t.Fatalf("body %q, want %q", n.Body, want)
	}

	r.Priority = PriorityHigh
	r.RequesterName = ""
	r.Address = "12 Pier St"
	n = NotificationFor(r)
	if !n.Urgent || n.Subject != "URGENT: New Help Request" {
		t.Fatalf("unexpected urgent notification %+v", n)
	}
	if want := "URGENT REQUEST: Someone needs medical assistance at 12 Pier St. Please respond immediately!"; n.Body != want {
		t.Fatalf("body %q, want %q", n.Body, want)
	}
}

func TestListFilter_Normalize(t *testing.T) {
	f := ListFilter{Limit: 1000, Offset: -3}.Normalize()
	if f.Limit != MaxListLimit || f.Offset != 0 {
		t.Fatalf("unexpected %+v", f)
	}
	if got := (ListFilter{}).Normalize().Limit; got != DefaultListLimit {
		t.Fatalf("default limit %d", got)
	}
}

func TestTopicFor(t *testing.T) {
	if got := TopicFor(StatusClaimed); got != "requests.claimed" {
		t.Fatalf("got %q", got)
	}
}
