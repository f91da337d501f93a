package middleware

// roles.go: route-level capability gate. It must run after Auth, which puts the
// caller into the request context.

import (
	"github.com/gofiber/fiber/v2"

	"github.com/trentd187/chess-ratings/internal/access"
)

// Require returns a handler that lets the request through only when the caller may
// perform op according to the capability table:
//
//	admin := api.Group("/admin", middleware.Auth(v, db), middleware.Require(access.AdminAccess))
func Require(op access.Operation) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := access.Authorize(CallerFrom(c), op); err != nil {
			return err
		}
		return c.Next()
	}
}
