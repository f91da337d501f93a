package handlers

// players.go: the public player directory plus the staff-only write routes.

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/trentd187/chess-ratings/internal/middleware"
	"github.com/trentd187/chess-ratings/internal/models"
	"github.com/trentd187/chess-ratings/internal/service"
)

// ListPlayers handles GET /api/players.
//
// Query parameters (all optional): name, state, format, minRating, maxRating, page, limit.
func ListPlayers(players *service.PlayerService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		page, err := parsePage(c)
		if err != nil {
			return err
		}
		// c.Query returns "" for a missing parameter, which the filter ignores.
		filter := service.PlayerFilter{
			Name:   c.Query("name"),
			Format: models.Format(strings.ToUpper(c.Query("format"))),
		}
		if filter.StateID, err = queryIntPtr(c, "state"); err != nil {
			return err
		}
		if filter.MinRating, err = queryIntPtr(c, "minRating"); err != nil {
			return err
		}
		if filter.MaxRating, err = queryIntPtr(c, "maxRating"); err != nil {
			return err
		}

		list, total, err := players.List(c.UserContext(), filter, page)
		if err != nil {
			return err
		}
		return paged(c, list, page, total)
	}
}

// GetPlayer handles GET /api/players/:id.
func GetPlayer(players *service.PlayerService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c, "id")
		if err != nil {
			return err
		}
		detail, err := players.Get(c.UserContext(), id)
		if err != nil {
			return err
		}
		return ok(c, detail)
	}
}

// CreatePlayer handles POST /api/players.
func CreatePlayer(players *service.PlayerService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var in service.CreatePlayerInput
		if err := parseBody(c, &in); err != nil {
			return err
		}
		// CallerFrom reads the profile that the Auth middleware stored in c.Locals.
		p, err := players.Create(c.UserContext(), middleware.CallerFrom(c), in)
		if err != nil {
			return err
		}
		return created(c, p)
	}
}

// UpdatePlayerContact handles PATCH /api/players/:id. Only email and phone are read
// from the body; anything else is ignored.
func UpdatePlayerContact(players *service.PlayerService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c, "id")
		if err != nil {
			return err
		}
		var in service.ContactInput
		if err := parseBody(c, &in); err != nil {
			return err
		}
		p, err := players.UpdateContact(c.UserContext(), middleware.CallerFrom(c), id, in)
		if err != nil {
			return err
		}
		return ok(c, p)
	}
}

// GrantTitle handles POST /api/admin/players/:id/titles.
func GrantTitle(players *service.PlayerService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c, "id")
		if err != nil {
			return err
		}
		var in service.GrantTitleInput
		if err := parseBody(c, &in); err != nil {
			return err
		}
		title, err := players.GrantTitle(c.UserContext(), middleware.CallerFrom(c), id, in)
		if err != nil {
			return err
		}
		return created(c, title)
	}
}
