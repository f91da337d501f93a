package handlers

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/trentd187/chess-ratings/internal/access"
	"github.com/trentd187/chess-ratings/internal/middleware"
	"github.com/trentd187/chess-ratings/internal/service"
	hub "github.com/trentd187/chess-ratings/internal/websocket"
)

// Deps is everything the routes need.
type Deps struct {
	DB       *gorm.DB // used by Auth to load profiles
	Verifier middleware.Verifier
	Services *service.Services
	Hub      *hub.Hub
}

// Register mounts every route on app.
func Register(app *fiber.App, d Deps) {
	auth := middleware.Auth(d.Verifier, d.DB)
	players := d.Services.Players
	tournaments := d.Services.Tournaments

	app.Get("/health", HealthCheck)

	api := app.Group("/api")
	api.Get("/health", HealthCheck)

	// --- Public reads ---
	api.Get("/states", ListStates(d.Services.Reference))
	api.Get("/titles", ListTitles(d.Services.Reference))
	api.Get("/players", ListPlayers(players))
	api.Get("/players/:id", GetPlayer(players))
	api.Get("/tournaments", ListTournaments(tournaments))
	api.Get("/tournaments/:id", GetTournament(tournaments))
	api.Get("/tournaments/:id/live", LiveUpgrade(tournaments), Live(d.Hub))

	// --- Staff writes ---
	// Require runs the role gate; per-tournament ownership is checked by the service.
	api.Get("/me", auth, Me(d.Services.Profiles))
	api.Post("/players", auth, middleware.Require(access.PlayerCreate), CreatePlayer(players))
	api.Patch("/players/:id", auth, middleware.Require(access.PlayerUpdate), UpdatePlayerContact(players))
	api.Post("/tournaments", auth, middleware.Require(access.TournamentCreate), CreateTournament(tournaments))
	api.Post("/tournaments/:id/players", auth, middleware.Require(access.TournamentManage), RegisterPlayer(tournaments))
	api.Post("/tournaments/:id/rounds", auth, middleware.Require(access.TournamentManage), GenerateRound(tournaments))
	api.Post("/matches/:id/result", auth, middleware.Require(access.TournamentManage), RecordResult(tournaments))

	// --- Officers and admins ---
	admin := api.Group("/admin", auth, middleware.Require(access.AdminAccess))
	admin.Get("/tournaments/pending", PendingTournaments(tournaments))
	admin.Post("/tournaments/:id/approve", ApproveTournament(tournaments))
	admin.Patch("/tournaments/:id/organizer", TransferOrganizer(tournaments))
	admin.Delete("/tournaments/:id", DeleteTournament(tournaments))
	admin.Post("/players/:id/titles", GrantTitle(players))
	admin.Patch("/profiles/:id/status", SetProfileStatus(d.Services.Profiles))
}
