package handlers

// admin.go: the /api/admin subtree. The whole group sits behind
// middleware.Require(access.AdminAccess), so only officers and admins reach it.

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/trentd187/chess-ratings/internal/apperr"
	"github.com/trentd187/chess-ratings/internal/middleware"
	"github.com/trentd187/chess-ratings/internal/models"
	"github.com/trentd187/chess-ratings/internal/service"
)

// TransferRequest is the body of PATCH /api/admin/tournaments/:id/organizer.
type TransferRequest struct {
	OrganizerID string `json:"organizer_id"` // UUID of an APPROVED staff profile
}

// ProfileStatusRequest is the body of PATCH /api/admin/profiles/:id/status.
type ProfileStatusRequest struct {
	Status string `json:"status"` // PENDING, APPROVED or SUSPENDED (case-insensitive)
}

// PendingTournaments handles GET /api/admin/tournaments/pending.
func PendingTournaments(tournaments *service.TournamentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		page, err := parsePage(c)
		if err != nil {
			return err
		}
		list, total, err := tournaments.ListPending(c.UserContext(), middleware.CallerFrom(c), page)
		if err != nil {
			return err
		}
		return paged(c, list, page, total)
	}
}

// ApproveTournament handles POST /api/admin/tournaments/:id/approve.
func ApproveTournament(tournaments *service.TournamentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c, "id")
		if err != nil {
			return err
		}
		t, err := tournaments.Approve(c.UserContext(), middleware.CallerFrom(c), id)
		if err != nil {
			return err
		}
		return ok(c, t)
	}
}

// TransferOrganizer handles PATCH /api/admin/tournaments/:id/organizer.
func TransferOrganizer(tournaments *service.TournamentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c, "id")
		if err != nil {
			return err
		}
		var req TransferRequest
		if err := parseBody(c, &req); err != nil {
			return err
		}
		// The body carries the UUID as a string; a malformed one is the client's mistake.
		organizerID, err := uuid.Parse(req.OrganizerID)
		if err != nil {
			return apperr.Validation("organizer_id must be a valid UUID")
		}
		t, err := tournaments.TransferOrganizer(c.UserContext(), middleware.CallerFrom(c), id, organizerID)
		if err != nil {
			return err
		}
		return ok(c, t)
	}
}

// DeleteTournament handles DELETE /api/admin/tournaments/:id.
func DeleteTournament(tournaments *service.TournamentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c, "id")
		if err != nil {
			return err
		}
		if err := tournaments.Delete(c.UserContext(), middleware.CallerFrom(c), id); err != nil {
			return err
		}
		// Nothing left to return, so the envelope carries a message instead of data.
		return c.JSON(Envelope{Status: "success", Message: "tournament deleted"})
	}
}

// SetProfileStatus handles PATCH /api/admin/profiles/:id/status.
func SetProfileStatus(profiles *service.ProfileService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c, "id")
		if err != nil {
			return err
		}
		var req ProfileStatusRequest
		if err := parseBody(c, &req); err != nil {
			return err
		}
		p, err := profiles.SetStatus(c.UserContext(), middleware.CallerFrom(c), id, models.ProfileStatus(req.Status))
		if err != nil {
			return err
		}
		return ok(c, p)
	}
}
