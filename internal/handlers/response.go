package handlers

// response.go: the JSON envelope every route answers with, plus the Fiber error
// handler that turns apperr kinds into status codes.
//
//	{"status": "success", "data": ..., "pagination": {"page": 1, "limit": 20, "total": 45}}
//	{"status": "error", "message": "first_name and last_name are required"}

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/trentd187/chess-ratings/internal/apperr"
	"github.com/trentd187/chess-ratings/internal/service"
)

// Envelope is the top-level shape of every JSON response.
type Envelope struct {
	Status     string      `json:"status"`               // "success" or "error"
	Data       any         `json:"data,omitempty"`       // The resource or list; absent on errors
	Message    string      `json:"message,omitempty"`    // Human-readable; always set on errors
	Pagination *Pagination `json:"pagination,omitempty"` // List endpoints only
	Detail     string      `json:"detail,omitempty"`     // Underlying error, outside production only
}

// Pagination describes the page returned by a list endpoint.
type Pagination struct {
	Page  int   `json:"page"`  // 1-based page number that was returned
	Limit int   `json:"limit"` // Page size after defaults and the cap were applied
	Total int64 `json:"total"` // Matching rows across all pages
}

// ok writes a 200 envelope around data.
func ok(c *fiber.Ctx, data any) error {
	return c.JSON(Envelope{Status: "success", Data: data})
}

// created is ok with 201 Created, for POST routes that insert a row.
func created(c *fiber.Ctx, data any) error {
	return c.Status(fiber.StatusCreated).JSON(Envelope{Status: "success", Data: data})
}

// paged writes a list page with its pagination block.
func paged(c *fiber.Ctx, data any, p service.Page, total int64) error {
	return c.JSON(Envelope{
		Status:     "success",
		Data:       data,
		Pagination: &Pagination{Page: p.Page, Limit: p.Limit, Total: total},
	})
}

// ErrorHandler is installed as fiber.Config.ErrorHandler. Handlers simply return the
// error from the service; this decides the status code and the message.
func ErrorHandler(log zerolog.Logger, production bool) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		// apperr kinds map to 400/401/403/404/409; anything unclassified is a 500 whose
		// message is replaced by the fallback, so internal details never reach clients.
		status := apperr.Status(err)
		message := apperr.Message(err, "internal server error")

		// Fiber's own errors (404 for unknown routes, 405, body too large, ...).
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
			message = fe.Message
		}

		if status >= fiber.StatusInternalServerError {
			log.Error().Err(err).Str("method", c.Method()).Str("path", c.Path()).Msg("request failed")
		}

		// The envelope is the same for every error; only Detail depends on the environment.
		body := Envelope{Status: "error", Message: message}
		if !production && err.Error() != message {
			body.Detail = err.Error()
		}
		return c.Status(status).JSON(body)
	}
}

// parsePage reads ?page= and ?limit=.
func parsePage(c *fiber.Ctx) (service.Page, error) {
	page, err := queryInt(c, "page")
	if err != nil {
		return service.Page{}, err
	}
	limit, err := queryInt(c, "limit")
	if err != nil {
		return service.Page{}, err
	}
	return service.NewPage(page, limit)
}

// queryInt returns 0 when the parameter is absent.
func queryInt(c *fiber.Ctx, key string) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperr.Validation("%s must be a number", key)
	}
	return n, nil
}

// queryIntPtr is queryInt for optional filters.
func queryIntPtr(c *fiber.Ctx, key string) (*int, error) {
	if c.Query(key) == "" {
		return nil, nil
	}
	n, err := queryInt(c, key)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// paramID parses a UUID route parameter.
func paramID(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, apperr.Validation("%s must be a valid UUID", name)
	}
	return id, nil
}

// parseBody decodes the JSON body into dst.
// BodyParser picks the decoder from Content-Type; the API only documents JSON.
func parseBody(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return apperr.Validation("invalid request body")
	}
	return nil
}
