package domain

import "strings"

type Role string

const (
	RoleVictim      Role = "victim"
	RoleVolunteer   Role = "volunteer"
	RoleCoordinator Role = "coordinator"
)

// ParseRole normalizes a stored role string. "admin" is a coordinator.
func ParseRole(s string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "victim":
		return RoleVictim, true
	case "volunteer":
		return RoleVolunteer, true
	case "coordinator", "admin":
		return RoleCoordinator, true
	}
	return "", false
}

type Operation string

const (
	OpCreate         Operation = "create"
	OpClaim          Operation = "claim"
	OpComplete       Operation = "complete"
	OpCancel         Operation = "cancel"
	OpUnclaim        Operation = "unclaim"
	OpListAll        Operation = "list_all"
	OpListMine       Operation = "list_mine"
	OpListAvailable  Operation = "list_available"
	OpNavigate       Operation = "navigate"
	OpUpdateLocation Operation = "update_location"
	OpMatch          Operation = "match_volunteers"
)

// Caller is the authenticated identity invoking a core operation.
type Caller struct {
	UserID string
	Role   Role
}
