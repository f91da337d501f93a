// Package testdb gives tests a fresh, fully migrated in-memory database plus a few
// fixtures. It is only imported from _test.go files.
package testdb

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/trentd187/chess-ratings/internal/access"
	"github.com/trentd187/chess-ratings/internal/database"
	"github.com/trentd187/chess-ratings/internal/models"
)

// New opens an isolated in-memory SQLite database with every table created.
func New(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := database.Connect(dsn, database.Options{})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// Profile inserts an approved or pending staff profile and returns the matching Caller.
func Profile(t testing.TB, db *gorm.DB, role models.UserRole, status models.ProfileStatus) access.Caller {
	t.Helper()
	p := models.Profile{ID: uuid.New(), FullName: string(role) + " user", Role: role, Status: status}
	require.NoError(t, db.Create(&p).Error)
	return access.Caller{UserID: p.ID, Role: p.Role, Status: p.Status}
}

// Staff is Profile with an APPROVED status.
func Staff(t testing.TB, db *gorm.DB, role models.UserRole) access.Caller {
	return Profile(t, db, role, models.ProfileStatusApproved)
}

// Player inserts a player with one rating per format at rating, each with gamesPlayed games.
func Player(t testing.TB, db *gorm.DB, first, last string, rating, gamesPlayed int) models.Player {
	t.Helper()
	p := models.Player{FirstName: first, LastName: last}
	require.NoError(t, db.Create(&p).Error)
	for _, f := range models.Formats {
		r := models.Rating{PlayerID: p.ID, Format: f, Rating: rating, GamesPlayed: gamesPlayed, IsEstablished: gamesPlayed >= 30, BonusApplied: gamesPlayed >= 30}
		require.NoError(t, db.Create(&r).Error)
		p.Ratings = append(p.Ratings, r)
	}
	return p
}

// Tournament inserts a tournament owned by organizer.
func Tournament(t testing.TB, db *gorm.DB, organizer uuid.UUID, status models.TournamentStatus, rounds int) models.Tournament {
	t.Helper()
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	tr := models.Tournament{
		Name:          "Spring Open",
		Format:        models.FormatClassical,
		PairingSystem: models.PairingSwiss,
		StartDate:     start,
		EndDate:       start.AddDate(0, 0, 2),
		Rounds:        rounds,
		OrganizerID:   organizer,
		Status:        status,
	}
	require.NoError(t, db.Create(&tr).Error)
	return tr
}
