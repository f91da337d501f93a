// Package access is the single place where roles are turned into permissions.
//
// Every gated operation is listed once in the capabilities table below. Route
// middleware (middleware.Require) and the services both call Authorize, so an
// operation's rules never drift between the HTTP layer and the domain layer.
package access

import (
	"github.com/google/uuid"
	"github.com/trentd187/chess-ratings/internal/apperr"
	"github.com/trentd187/chess-ratings/internal/models"
)

// Operation names a gated action.
type Operation string

const (
	PlayerCreate       Operation = "player.create"
	PlayerUpdate       Operation = "player.update"
	TournamentCreate   Operation = "tournament.create"
	TournamentManage   Operation = "tournament.manage" // register players, generate rounds, record results
	TournamentApprove  Operation = "tournament.approve"
	TournamentTransfer Operation = "tournament.transfer"
	TournamentDelete   Operation = "tournament.delete"
	TitleGrant         Operation = "title.grant"
	ProfileReview      Operation = "profile.review"
	AdminAccess        Operation = "admin.access" // the /api/admin subtree
)

var (
	anyStaff    = roleSet(models.RoleOrganizer, models.RoleOfficer, models.RoleAdmin)
	officerPlus = roleSet(models.RoleOfficer, models.RoleAdmin)
)

// capabilities maps each operation to the roles allowed to perform it.
var capabilities = map[Operation]map[models.UserRole]bool{
	PlayerCreate:       anyStaff,
	PlayerUpdate:       anyStaff,
	TournamentCreate:   anyStaff,
	TournamentManage:   anyStaff,
	TournamentApprove:  officerPlus,
	TournamentTransfer: officerPlus,
	TournamentDelete:   officerPlus,
	TitleGrant:         officerPlus,
	ProfileReview:      officerPlus,
	AdminAccess:        officerPlus,
}

func roleSet(roles ...models.UserRole) map[models.UserRole]bool {
	set := make(map[models.UserRole]bool, len(roles))
	for _, r := range roles {
		set[r] = true
	}
	return set
}

// Caller is the resolved identity behind a request. The zero value is the anonymous
// public caller.
type Caller struct {
	UserID uuid.UUID
	Role   models.UserRole
	Status models.ProfileStatus
}

// Authenticated reports whether the caller presented a valid credential.
func (c Caller) Authenticated() bool {
	return c.UserID != uuid.Nil
}

// Elevated reports whether the caller is an officer or admin.
func (c Caller) Elevated() bool {
	return c.Role == models.RoleOfficer || c.Role == models.RoleAdmin
}

// Allowed reports whether role may perform op, ignoring account status.
func Allowed(op Operation, role models.UserRole) bool {
	return capabilities[op][role]
}

// Authorize returns nil when the caller may perform op, or an Unauthenticated /
// Forbidden error explaining why not.
func Authorize(c Caller, op Operation) error {
	if !c.Authenticated() {
		return apperr.Unauthenticated("authentication required")
	}
	if c.Status == models.ProfileStatusSuspended {
		return apperr.Forbidden("your account is suspended")
	}
	if c.Role == models.RoleOrganizer && c.Status != models.ProfileStatusApproved {
		return apperr.Forbidden("your organizer account is pending approval")
	}
	if !Allowed(op, c.Role) {
		return apperr.Forbidden("you do not have permission to access this resource")
	}
	return nil
}

// CanManageTournament is the resource-level check layered on top of TournamentManage:
// officers and admins manage every tournament, organizers only their own.
func CanManageTournament(c Caller, organizerID uuid.UUID) error {
	if err := Authorize(c, TournamentManage); err != nil {
		return err
	}
	if c.Elevated() || c.UserID == organizerID {
		return nil
	}
	return apperr.Forbidden("only the tournament organizer can manage this tournament")
}
