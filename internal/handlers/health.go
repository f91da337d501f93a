// Package handlers contains the HTTP route handlers for the ratings API.
// Each handler corresponds to one endpoint: it reads the request, calls a service
// and writes the envelope. Errors are returned as-is and rendered by ErrorHandler.
package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// HealthCheck handles GET /health and GET /api/health.
// No database queries and no authentication, so load balancers and container probes
// can call it as often as they like.
func HealthCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "success",
		"message":   "Chess ratings API is running",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
