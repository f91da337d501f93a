package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/trentd187/chess-ratings/internal/middleware"
	"github.com/trentd187/chess-ratings/internal/service"
)

// ListStates handles GET /api/states.
func ListStates(ref *service.ReferenceService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		states, err := ref.States(c.UserContext())
		if err != nil {
			return err
		}
		return ok(c, states)
	}
}

// ListTitles handles GET /api/titles.
func ListTitles(ref *service.ReferenceService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		titles, err := ref.Titles(c.UserContext())
		if err != nil {
			return err
		}
		return ok(c, titles)
	}
}

// Me handles GET /api/me: the signed-in caller's profile.
func Me(profiles *service.ProfileService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := profiles.Me(c.UserContext(), middleware.CallerFrom(c))
		if err != nil {
			return err
		}
		return ok(c, p)
	}
}
