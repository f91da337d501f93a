package service

import (
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/trentd187/chess-ratings/internal/models"
	"github.com/trentd187/chess-ratings/internal/rating"
	"github.com/trentd187/chess-ratings/internal/testdb"
	"github.com/trentd187/chess-ratings/internal/websocket"
)

// recorder is a Notifier that keeps every event.
type recorder struct {
	mu     sync.Mutex
	events []websocket.Event
}

func (r *recorder) Publish(e websocket.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

type fixture struct {
	db          *gorm.DB
	events      *recorder
	players     *PlayerService
	tournaments *TournamentService
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	db := testdb.New(t)
	events := &recorder{}
	engine := rating.NewEngine(rating.DefaultConfig())
	return fixture{
		db:          db,
		events:      events,
		players:     NewPlayerService(db, rating.DefaultRating),
		tournaments: NewTournamentService(db, engine, events, zerolog.Nop()),
	}
}

func count(t *testing.T, db *gorm.DB, model any, query string, args ...any) int64 {
	t.Helper()
	var n int64
	q := db.Model(model)
	if query != "" {
		q = q.Where(query, args...)
	}
	require.NoError(t, q.Count(&n).Error)
	return n
}

func ratingOf(t *testing.T, db *gorm.DB, player models.Player, format models.Format) models.Rating {
	t.Helper()
	var r models.Rating
	require.NoError(t, db.First(&r, "player_id = ? AND format = ?", player.ID, format).Error)
	return r
}

func register(t *testing.T, f fixture, tournament models.Tournament, players ...models.Player) {
	t.Helper()
	for _, p := range players {
		require.NoError(t, f.db.Create(&models.TournamentPlayer{TournamentID: tournament.ID, PlayerID: p.ID}).Error)
	}
}
