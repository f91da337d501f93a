package handlers

// tournaments.go: /api/tournaments and /api/matches.
//
// Permission model: the route middleware only checks that the caller is signed-in
// staff. Whether the caller may manage *this* tournament (organizers only their own,
// officers and admins any) is decided by the service, which knows the organizer.

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/trentd187/chess-ratings/internal/apperr"
	"github.com/trentd187/chess-ratings/internal/middleware"
	"github.com/trentd187/chess-ratings/internal/models"
	"github.com/trentd187/chess-ratings/internal/service"
)

// RegisterPlayerRequest is the body of POST /api/tournaments/:id/players.
type RegisterPlayerRequest struct {
	PlayerID string `json:"player_id"` // UUID of an existing player
}

// GenerateRoundRequest is the body of POST /api/tournaments/:id/rounds.
type GenerateRoundRequest struct {
	RoundNumber int `json:"round_number"` // Must be the next round: 1, then 2, ...
}

// RecordResultRequest is the body of POST /api/matches/:id/result.
type RecordResultRequest struct {
	Result string `json:"result"` // WHITE_WIN, BLACK_WIN, DRAW or BYE
}

// ListTournaments handles GET /api/tournaments.
//
// Query parameters (all optional): state, format, status, from_date, to_date
// (YYYY-MM-DD, matched against start_date), page, limit.
func ListTournaments(tournaments *service.TournamentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		page, err := parsePage(c)
		if err != nil {
			return err
		}
		filter := service.TournamentFilter{
			Format: models.Format(strings.ToUpper(c.Query("format"))),
			Status: models.TournamentStatus(strings.ToUpper(c.Query("status"))),
		}
		if filter.StateID, err = queryIntPtr(c, "state"); err != nil {
			return err
		}
		if filter.From, err = queryDate(c, "from_date"); err != nil {
			return err
		}
		if filter.To, err = queryDate(c, "to_date"); err != nil {
			return err
		}

		list, total, err := tournaments.List(c.UserContext(), filter, page)
		if err != nil {
			return err
		}
		return paged(c, list, page, total)
	}
}

// GetTournament handles GET /api/tournaments/:id.
func GetTournament(tournaments *service.TournamentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c, "id")
		if err != nil {
			return err
		}
		detail, err := tournaments.Get(c.UserContext(), id)
		if err != nil {
			return err
		}
		return ok(c, detail)
	}
}

// CreateTournament handles POST /api/tournaments.
func CreateTournament(tournaments *service.TournamentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var in service.CreateTournamentInput
		if err := parseBody(c, &in); err != nil {
			return err
		}
		t, err := tournaments.Create(c.UserContext(), middleware.CallerFrom(c), in)
		if err != nil {
			return err
		}
		return created(c, t)
	}
}

// RegisterPlayer handles POST /api/tournaments/:id/players.
func RegisterPlayer(tournaments *service.TournamentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c, "id")
		if err != nil {
			return err
		}
		var req RegisterPlayerRequest
		if err := parseBody(c, &req); err != nil {
			return err
		}
		playerID, err := uuid.Parse(req.PlayerID)
		if err != nil {
			return apperr.Validation("player_id must be a valid UUID")
		}
		reg, err := tournaments.RegisterPlayer(c.UserContext(), middleware.CallerFrom(c), id, playerID)
		if err != nil {
			return err
		}
		return created(c, reg)
	}
}

// GenerateRound handles POST /api/tournaments/:id/rounds.
func GenerateRound(tournaments *service.TournamentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c, "id")
		if err != nil {
			return err
		}
		var req GenerateRoundRequest
		if err := parseBody(c, &req); err != nil {
			return err
		}
		round, err := tournaments.GenerateRound(c.UserContext(), middleware.CallerFrom(c), id, req.RoundNumber)
		if err != nil {
			return err
		}
		return created(c, round)
	}
}

// RecordResult handles POST /api/matches/:id/result.
func RecordResult(tournaments *service.TournamentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c, "id")
		if err != nil {
			return err
		}
		var req RecordResultRequest
		if err := parseBody(c, &req); err != nil {
			return err
		}
		// Accept "draw" as well as "DRAW"; the service validates the value itself.
		result := models.MatchResult(strings.ToUpper(strings.TrimSpace(req.Result)))
		outcome, err := tournaments.RecordResult(c.UserContext(), middleware.CallerFrom(c), id, result)
		if err != nil {
			return err
		}
		return ok(c, outcome)
	}
}

// queryDate parses an optional YYYY-MM-DD query parameter.
func queryDate(c *fiber.Ctx, key string) (*time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, apperr.Validation("%s must be in YYYY-MM-DD format", key)
	}
	return &t, nil
}
