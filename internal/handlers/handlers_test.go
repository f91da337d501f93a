package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/trentd187/chess-ratings/internal/access"
	"github.com/trentd187/chess-ratings/internal/database"
	"github.com/trentd187/chess-ratings/internal/middleware"
	"github.com/trentd187/chess-ratings/internal/models"
	"github.com/trentd187/chess-ratings/internal/rating"
	"github.com/trentd187/chess-ratings/internal/service"
	"github.com/trentd187/chess-ratings/internal/testdb"
	hub "github.com/trentd187/chess-ratings/internal/websocket"
)

const testSecret = "handler-test-secret"

type server struct {
	app *fiber.App
	db  *gorm.DB
}

func newServer(t *testing.T) server {
	t.Helper()
	db := testdb.New(t)
	h := hub.NewHub()
	go h.Run()
	t.Cleanup(h.Stop)

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(zerolog.Nop(), false)})
	Register(app, Deps{
		DB:       db,
		Verifier: middleware.NewJWTVerifier(testSecret),
		Services: service.New(db, rating.NewEngine(rating.DefaultConfig()), h, zerolog.Nop()),
		Hub:      h,
	})
	return server{app: app, db: db}
}

func token(t *testing.T, caller access.Caller) string {
	t.Helper()
	claims := middleware.Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   caller.UserID.String(),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

// do sends a request and decodes the envelope. body may be nil.
func (s server) do(t *testing.T, method, path, bearer string, body any) (int, Envelope, json.RawMessage) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = strings.NewReader(string(raw))
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env struct {
		Envelope
		Data json.RawMessage `json:"data"`
	}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &env), string(raw))
	return resp.StatusCode, env.Envelope, env.Data
}

func TestHealth(t *testing.T) {
	s := newServer(t)
	for _, path := range []string{"/health", "/api/health"} {
		status, env, _ := s.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, "success", env.Status)
	}
}

func TestListPlayersEnvelope(t *testing.T) {
	s := newServer(t)
	for i := 1; i <= 25; i++ {
		testdb.Player(t, s.db, "P", fmt.Sprintf("Player%02d", i), 1200, 0)
	}

	status, env, data := s.do(t, http.MethodGet, "/api/players?page=2&limit=10", "", nil)
	require.Equal(t, http.StatusOK, status)
	require.NotNil(t, env.Pagination)
	assert.Equal(t, Pagination{Page: 2, Limit: 10, Total: 25}, *env.Pagination)

	var players []models.Player
	require.NoError(t, json.Unmarshal(data, &players))
	require.Len(t, players, 10)
	assert.Equal(t, "Player11", players[0].LastName)

	status, env, _ = s.do(t, http.MethodGet, "/api/players?limit=abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "error", env.Status)
	assert.Equal(t, "limit must be a number", env.Message)
}

func TestPlayerRoutes(t *testing.T) {
	s := newServer(t)
	organizer := testdb.Staff(t, s.db, models.RoleOrganizer)
	bearer := token(t, organizer)

	status, env, _ := s.do(t, http.MethodPost, "/api/players", "", map[string]string{"first_name": "A", "last_name": "B"})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "error", env.Status)

	status, env, _ = s.do(t, http.MethodPost, "/api/players", bearer, map[string]string{"first_name": "Alexandra"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "first_name and last_name are required", env.Message)

	status, _, data := s.do(t, http.MethodPost, "/api/players", bearer, map[string]string{"first_name": "Alexandra", "last_name": "Kosteniuk"})
	require.Equal(t, http.StatusCreated, status)
	var p models.Player
	require.NoError(t, json.Unmarshal(data, &p))
	assert.Len(t, p.Ratings, len(models.Formats))

	status, _, data = s.do(t, http.MethodPatch, "/api/players/"+p.ID.String(), bearer, map[string]string{"phone": "+7 900", "last_name": "Ignored"})
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(data, &p))
	assert.Equal(t, "Kosteniuk", p.LastName)
	require.NotNil(t, p.Phone)
	assert.Equal(t, "+7 900", *p.Phone)

	status, _, _ = s.do(t, http.MethodGet, "/api/players/"+p.ID.String(), "", nil)
	assert.Equal(t, http.StatusOK, status)

	status, _, _ = s.do(t, http.MethodGet, "/api/players/not-a-uuid", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestAdminRoutesRequireOfficer(t *testing.T) {
	s := newServer(t)
	organizer := testdb.Staff(t, s.db, models.RoleOrganizer)
	officer := testdb.Staff(t, s.db, models.RoleOfficer)

	status, env, _ := s.do(t, http.MethodGet, "/api/admin/tournaments/pending", token(t, organizer), nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "error", env.Status)

	status, env, _ = s.do(t, http.MethodGet, "/api/admin/tournaments/pending", token(t, officer), nil)
	assert.Equal(t, http.StatusOK, status)
	require.NotNil(t, env.Pagination)
	assert.Zero(t, env.Pagination.Total)

	status, _, data := s.do(t, http.MethodPatch, "/api/admin/profiles/"+organizer.UserID.String()+"/status", token(t, officer), map[string]string{"status": "SUSPENDED"})
	require.Equal(t, http.StatusOK, status)
	var profile models.Profile
	require.NoError(t, json.Unmarshal(data, &profile))
	assert.Equal(t, models.ProfileStatusSuspended, profile.Status)

	// The suspended organizer is locked out of staff routes.
	status, _, _ = s.do(t, http.MethodPost, "/api/players", token(t, organizer), map[string]string{"first_name": "A", "last_name": "B"})
	assert.Equal(t, http.StatusForbidden, status)
}

func TestTournamentLifecycleOverHTTP(t *testing.T) {
	s := newServer(t)
	organizer := testdb.Staff(t, s.db, models.RoleOrganizer)
	officer := testdb.Staff(t, s.db, models.RoleOfficer)
	orgToken, offToken := token(t, organizer), token(t, officer)
	a := testdb.Player(t, s.db, "A", "Alpha", 1500, 0)
	b := testdb.Player(t, s.db, "B", "Bravo", 1500, 0)

	status, _, data := s.do(t, http.MethodPost, "/api/tournaments", orgToken, map[string]any{
		"name": "Club Blitz", "format": "BLITZ", "start_date": "2026-09-01", "end_date": "2026-09-01", "rounds": 1,
	})
	require.Equal(t, http.StatusCreated, status)
	var tr models.Tournament
	require.NoError(t, json.Unmarshal(data, &tr))
	assert.Equal(t, models.TournamentStatusCreated, tr.Status)
	base := "/api/tournaments/" + tr.ID.String()

	for _, p := range []models.Player{a, b} {
		status, _, _ = s.do(t, http.MethodPost, base+"/players", orgToken, map[string]string{"player_id": p.ID.String()})
		require.Equal(t, http.StatusCreated, status)
	}
	status, _, _ = s.do(t, http.MethodPost, base+"/players", orgToken, map[string]string{"player_id": a.ID.String()})
	assert.Equal(t, http.StatusConflict, status)

	status, _, _ = s.do(t, http.MethodPost, base+"/rounds", orgToken, map[string]int{"round_number": 1})
	assert.Equal(t, http.StatusConflict, status, "not approved yet")

	status, _, _ = s.do(t, http.MethodPost, "/api/admin/tournaments/"+tr.ID.String()+"/approve", offToken, nil)
	require.Equal(t, http.StatusOK, status)

	status, _, data = s.do(t, http.MethodPost, base+"/rounds", orgToken, map[string]int{"round_number": 1})
	require.Equal(t, http.StatusCreated, status)
	var round models.Round
	require.NoError(t, json.Unmarshal(data, &round))
	require.Len(t, round.Matches, 1)

	matchPath := "/api/matches/" + round.Matches[0].ID.String() + "/result"
	status, _, _ = s.do(t, http.MethodPost, matchPath, orgToken, map[string]string{"result": "PENDING"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _, data = s.do(t, http.MethodPost, matchPath, orgToken, map[string]string{"result": "draw"})
	require.Equal(t, http.StatusOK, status)
	var outcome service.ResultOutcome
	require.NoError(t, json.Unmarshal(data, &outcome))
	assert.Equal(t, models.TournamentStatusCompleted, outcome.TournamentStatus)
	assert.Len(t, outcome.RatingChanges, 2)

	status, _, _ = s.do(t, http.MethodPost, matchPath, orgToken, map[string]string{"result": "WHITE_WIN"})
	assert.Equal(t, http.StatusConflict, status)

	status, _, data = s.do(t, http.MethodGet, base, "", nil)
	require.Equal(t, http.StatusOK, status)
	var detail struct {
		Status  models.TournamentStatus `json:"status"`
		Players []models.Player         `json:"players"`
		Rounds  []models.Round          `json:"rounds"`
	}
	require.NoError(t, json.Unmarshal(data, &detail))
	assert.Equal(t, models.TournamentStatusCompleted, detail.Status)
	assert.Len(t, detail.Players, 2)
	assert.Len(t, detail.Rounds, 1)

	status, _, _ = s.do(t, http.MethodDelete, "/api/admin/tournaments/"+tr.ID.String(), offToken, nil)
	assert.Equal(t, http.StatusOK, status)
	status, _, _ = s.do(t, http.MethodGet, base, "", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestReferenceAndMe(t *testing.T) {
	s := newServer(t)
	require.NoError(t, database.SeedTitles(s.db))
	state := models.State{Name: "Ohio", Cities: []models.City{{Name: "Columbus"}, {Name: "Akron"}}}
	require.NoError(t, s.db.Create(&state).Error)

	status, _, data := s.do(t, http.MethodGet, "/api/states", "", nil)
	require.Equal(t, http.StatusOK, status)
	var states []models.State
	require.NoError(t, json.Unmarshal(data, &states))
	require.Len(t, states, 1)
	assert.Len(t, states[0].Cities, 2)

	status, _, data = s.do(t, http.MethodGet, "/api/titles", "", nil)
	require.Equal(t, http.StatusOK, status)
	var titles []models.Title
	require.NoError(t, json.Unmarshal(data, &titles))
	assert.Len(t, titles, len(database.Titles))

	status, _, _ = s.do(t, http.MethodGet, "/api/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	officer := testdb.Staff(t, s.db, models.RoleOfficer)
	status, _, data = s.do(t, http.MethodGet, "/api/me", token(t, officer), nil)
	require.Equal(t, http.StatusOK, status)
	var me models.Profile
	require.NoError(t, json.Unmarshal(data, &me))
	assert.Equal(t, officer.UserID, me.ID)
	assert.Equal(t, models.RoleOfficer, me.Role)
}

func TestTournamentOrganizerIsPublicSummary(t *testing.T) {
	s := newServer(t)
	email := "organizer@club.example"
	organizer := models.Profile{ID: uuid.New(), FullName: "Ada Organizer", Email: &email, Role: models.RoleOrganizer, Status: models.ProfileStatusApproved}
	require.NoError(t, s.db.Create(&organizer).Error)
	tr := testdb.Tournament(t, s.db, organizer.ID, models.TournamentStatusApproved, 1)

	for _, path := range []string{"/api/tournaments", "/api/tournaments/" + tr.ID.String()} {
		status, _, data := s.do(t, http.MethodGet, path, "", nil)
		require.Equal(t, http.StatusOK, status, path)

		var body struct {
			Organizer map[string]any `json:"organizer"`
		}
		if path == "/api/tournaments" {
			var list []json.RawMessage
			require.NoError(t, json.Unmarshal(data, &list))
			require.Len(t, list, 1)
			data = list[0]
		}
		require.NoError(t, json.Unmarshal(data, &body))
		assert.Equal(t, map[string]any{"id": organizer.ID.String(), "full_name": "Ada Organizer"}, body.Organizer, path)
		assert.NotContains(t, string(data), email, path)
	}
}

func TestLiveRequiresUpgrade(t *testing.T) {
	s := newServer(t)
	organizer := testdb.Staff(t, s.db, models.RoleOrganizer)
	tr := testdb.Tournament(t, s.db, organizer.UserID, models.TournamentStatusApproved, 1)

	status, env, _ := s.do(t, http.MethodGet, "/api/tournaments/"+tr.ID.String()+"/live", "", nil)
	assert.Equal(t, http.StatusUpgradeRequired, status)
	assert.Equal(t, "error", env.Status)
}

func TestUnknownRoute(t *testing.T) {
	s := newServer(t)
	status, env, _ := s.do(t, http.MethodGet, "/api/nothing-here", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "error", env.Status)
}
