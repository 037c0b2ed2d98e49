package auth

import (
	"fmt"

	"reliefbridge/internal/domain"
	"reliefbridge/pkg/e"
)

type rule uint8

const (
	deny rule = iota
	allow
	ownerOnly
)

// permissions is the role x operation matrix. Missing entries deny.
var permissions = map[domain.Role]map[domain.Operation]rule{
	domain.RoleVictim: {
		domain.OpCreate:   ownerOnly,
		domain.OpCancel:   ownerOnly,
		domain.OpListMine: allow,
		domain.OpNavigate: ownerOnly,
	},
	domain.RoleVolunteer: {
		domain.OpClaim:          allow,
		domain.OpComplete:       ownerOnly,
		domain.OpUnclaim:        ownerOnly,
		domain.OpListMine:       allow,
		domain.OpListAvailable:  allow,
		domain.OpNavigate:       ownerOnly,
		domain.OpUpdateLocation: ownerOnly,
	},
	domain.RoleCoordinator: {
		domain.OpClaim:         allow,
		domain.OpComplete:      allow,
		domain.OpCancel:        allow,
		domain.OpUnclaim:       allow,
		domain.OpListAll:       allow,
		domain.OpListMine:      allow,
		domain.OpListAvailable: allow,
		domain.OpNavigate:      allow,
		domain.OpMatch:         allow,
	},
}

// Permit reports whether role may perform op. isOwnerOrAssignee tells whether the
// caller is the requester (victim operations) or the claiming volunteer.
func Permit(role domain.Role, op domain.Operation, isOwnerOrAssignee bool) bool {
	switch permissions[role][op] {
	case allow:
		return true
	case ownerOnly:
		return isOwnerOrAssignee
	default:
		return false
	}
}

// Check is Permit returning e.ErrForbidden on denial.
func Check(role domain.Role, op domain.Operation, isOwnerOrAssignee bool) error {
	if Permit(role, op, isOwnerOrAssignee) {
		return nil
	}
	return fmt.Errorf("%s may not %s: %w", role, op, e.ErrForbidden)
}
