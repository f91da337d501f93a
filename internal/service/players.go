package service

// players.go: the player registry. A player is created once with a rating in every
// format; afterwards only contact details change, and ratings move only through
// recorded results (see rounds.go).

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/trentd187/chess-ratings/internal/access"
	"github.com/trentd187/chess-ratings/internal/apperr"
	"github.com/trentd187/chess-ratings/internal/models"
)

// dateLayout is the wire format of every calendar date (birth dates, tournament dates).
const dateLayout = "2006-01-02"

// PlayerService manages player records, their per-format ratings and titles.
type PlayerService struct {
	db            *gorm.DB
	defaultRating int // Starting rating in every format, from rating.Config
}

// NewPlayerService returns a PlayerService. New players start at defaultRating in
// every format.
func NewPlayerService(db *gorm.DB, defaultRating int) *PlayerService {
	return &PlayerService{db: db, defaultRating: defaultRating}
}

// PlayerFilter narrows ListPlayers. Zero fields are ignored.
type PlayerFilter struct {
	Name      string        // case-insensitive substring of first or last name
	StateID   *int          // players registered in this state
	Format    models.Format // restricts MinRating/MaxRating to this format
	MinRating *int          // inclusive
	MaxRating *int          // inclusive
}

// PlayerDetail is a player with everything the profile page shows.
type PlayerDetail struct {
	models.Player
	History []models.RatingHistory `json:"rating_history"`
}

// CreatePlayerInput is the data accepted when registering a player.
type CreatePlayerInput struct {
	FirstName    string  `json:"first_name"` // Required
	LastName     string  `json:"last_name"`  // Required
	Gender       *string `json:"gender"`
	BirthDate    *string `json:"birth_date"` // YYYY-MM-DD
	Email        *string `json:"email"`
	Phone        *string `json:"phone"`
	FederationID *string `json:"federation_id"` // Unique when set
	StateID      *int    `json:"state_id"`      // Must exist
	CityID       *int    `json:"city_id"`       // Must exist and belong to StateID when both are set
}

// ContactInput holds the only player fields that may change after creation.
type ContactInput struct {
	Email *string `json:"email"`
	Phone *string `json:"phone"`
}

// GrantTitleInput grants (or re-verifies) a title.
type GrantTitleInput struct {
	TitleCode string `json:"title_code"`
	Verified  bool   `json:"verified"`
}

// likeEscaper makes a search term match literally inside a LIKE pattern.
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

func (f PlayerFilter) scope(db *gorm.DB) *gorm.DB {
	if name := strings.TrimSpace(f.Name); name != "" {
		pattern := "%" + likeEscaper.Replace(strings.ToLower(name)) + "%"
		db = db.Where(`LOWER(players.first_name) LIKE ? ESCAPE '\' OR LOWER(players.last_name) LIKE ? ESCAPE '\'`, pattern, pattern)
	}
	if f.StateID != nil {
		db = db.Where("players.state_id = ?", *f.StateID)
	}
	// Rating bounds are checked against the ratings table: a player matches when at
	// least one of their ratings (in Format, if given) is inside the range.
	if f.MinRating != nil || f.MaxRating != nil {
		// NewDB starts a fresh statement so the subquery does not inherit the outer
		// query's conditions.
		ratings := db.Session(&gorm.Session{NewDB: true}).Model(&models.Rating{}).Select("player_id")
		if f.Format != "" {
			ratings = ratings.Where("format = ?", f.Format)
		}
		if f.MinRating != nil {
			ratings = ratings.Where("rating >= ?", *f.MinRating)
		}
		if f.MaxRating != nil {
			ratings = ratings.Where("rating <= ?", *f.MaxRating)
		}
		db = db.Where("players.id IN (?)", ratings)
	}
	return db
}

// List returns one page of players ordered by last name, first name, then id, plus the
// total number of players matching f.
func (s *PlayerService) List(ctx context.Context, f PlayerFilter, p Page) ([]models.Player, int64, error) {
	if f.Format != "" && !f.Format.Valid() {
		return nil, 0, apperr.Validation("unknown format %q", f.Format)
	}

	// Count with the same filter but without pagination, for the envelope's total.
	var total int64
	if err := s.db.WithContext(ctx).Model(&models.Player{}).Scopes(f.scope).Count(&total).Error; err != nil {
		return nil, 0, dbError(err, "players")
	}

	players := make([]models.Player, 0)
	err := s.db.WithContext(ctx).
		Scopes(f.scope, p.paginate).
		Preload("State").
		Preload("Ratings", orderedRatings).
		Order("players.last_name, players.first_name, players.id").
		Find(&players).Error
	if err != nil {
		return nil, 0, dbError(err, "players")
	}
	return players, total, nil
}

// Get returns a player with state, city, ratings, titles and the full rating history,
// newest first.
func (s *PlayerService) Get(ctx context.Context, id uuid.UUID) (PlayerDetail, error) {
	var detail PlayerDetail
	err := s.db.WithContext(ctx).
		Preload("State").
		Preload("City").
		Preload("Ratings", orderedRatings).
		Preload("Titles.Title"). // nested preload: player_titles, then their titles
		First(&detail.Player, "id = ?", id).Error
	if err != nil {
		return PlayerDetail{}, dbError(err, "player")
	}

	detail.History = make([]models.RatingHistory, 0)
	err = s.db.WithContext(ctx).
		Where("player_id = ?", id).
		Order("created_at DESC, id").
		Find(&detail.History).Error
	if err != nil {
		return PlayerDetail{}, dbError(err, "rating history")
	}
	return detail, nil
}

// Create registers a player and opens a rating in every format at the default rating.
// The player and its ratings are written in one transaction: either all rows exist
// afterwards or none do.
func (s *PlayerService) Create(ctx context.Context, caller access.Caller, in CreatePlayerInput) (models.Player, error) {
	if err := access.Authorize(caller, access.PlayerCreate); err != nil {
		return models.Player{}, err
	}

	player, err := s.newPlayer(caller, in)
	if err != nil {
		return models.Player{}, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.checkLocation(tx, player.StateID, player.CityID); err != nil {
			return err
		}
		if player.FederationID != nil {
			var n int64
			if err := tx.Model(&models.Player{}).Where("federation_id = ?", *player.FederationID).Count(&n).Error; err != nil {
				return dbError(err, "player")
			}
			if n > 0 {
				return apperr.Conflict("a player with federation_id %s already exists", *player.FederationID)
			}
		}
		// Ratings are created explicitly below, one per format.
		if err := tx.Omit(clause.Associations).Create(&player).Error; err != nil {
			return dbError(err, "player with this federation_id")
		}
		for _, f := range models.Formats {
			r := models.Rating{PlayerID: player.ID, Format: f, Rating: s.defaultRating}
			if err := tx.Create(&r).Error; err != nil {
				return dbError(err, "rating")
			}
			player.Ratings = append(player.Ratings, r)
		}
		return nil
	})
	if err != nil {
		return models.Player{}, err
	}
	return player, nil
}

func (s *PlayerService) newPlayer(caller access.Caller, in CreatePlayerInput) (models.Player, error) {
	first := strings.TrimSpace(in.FirstName)
	last := strings.TrimSpace(in.LastName)
	if first == "" || last == "" {
		return models.Player{}, apperr.Validation("first_name and last_name are required")
	}

	p := models.Player{
		FirstName:    first,
		LastName:     last,
		Gender:       trimmed(in.Gender),
		Email:        trimmed(in.Email),
		Phone:        trimmed(in.Phone),
		FederationID: trimmed(in.FederationID),
		StateID:      in.StateID,
		CityID:       in.CityID,
	}
	if caller.Authenticated() {
		id := caller.UserID
		p.CreatedBy = &id
	}

	if b := trimmed(in.BirthDate); b != nil {
		t, err := time.Parse(dateLayout, *b)
		if err != nil {
			return models.Player{}, apperr.Validation("birth_date must be in YYYY-MM-DD format")
		}
		p.BirthDate = &t
	}
	return p, nil
}

// checkLocation verifies that referenced reference data exists and that the city lies
// in the state.
func (s *PlayerService) checkLocation(tx *gorm.DB, stateID, cityID *int) error {
	if stateID != nil {
		var n int64
		if err := tx.Model(&models.State{}).Where("id = ?", *stateID).Count(&n).Error; err != nil {
			return dbError(err, "state")
		}
		if n == 0 {
			return apperr.Validation("unknown state_id %d", *stateID)
		}
	}
	if cityID != nil {
		var city models.City
		err := tx.First(&city, "id = ?", *cityID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.Validation("unknown city_id %d", *cityID)
		}
		if err != nil {
			return dbError(err, "city")
		}
		if stateID != nil && city.StateID != *stateID {
			return apperr.Validation("city %d is not in state %d", *cityID, *stateID)
		}
	}
	return nil
}

// UpdateContact changes a player's email and/or phone. Identity fields are immutable.
func (s *PlayerService) UpdateContact(ctx context.Context, caller access.Caller, id uuid.UUID, in ContactInput) (models.Player, error) {
	if err := access.Authorize(caller, access.PlayerUpdate); err != nil {
		return models.Player{}, err
	}
	if in.Email == nil && in.Phone == nil {
		return models.Player{}, apperr.Validation("email or phone is required")
	}

	var player models.Player
	if err := s.db.WithContext(ctx).First(&player, "id = ?", id).Error; err != nil {
		return models.Player{}, dbError(err, "player")
	}

	// A map lets Updates write an explicit NULL when a value is cleared; a struct
	// would skip zero fields.
	updates := map[string]any{}
	if in.Email != nil {
		updates["email"] = trimmed(in.Email)
	}
	if in.Phone != nil {
		updates["phone"] = trimmed(in.Phone)
	}
	if err := s.db.WithContext(ctx).Model(&player).Updates(updates).Error; err != nil {
		return models.Player{}, dbError(err, "player")
	}

	if err := s.db.WithContext(ctx).Preload("Ratings", orderedRatings).First(&player, "id = ?", id).Error; err != nil {
		return models.Player{}, dbError(err, "player")
	}
	return player, nil
}

// GrantTitle records that a player holds a title. Granting a title the player already
// holds updates its verified flag instead of adding a second row.
func (s *PlayerService) GrantTitle(ctx context.Context, caller access.Caller, playerID uuid.UUID, in GrantTitleInput) (models.PlayerTitle, error) {
	if err := access.Authorize(caller, access.TitleGrant); err != nil {
		return models.PlayerTitle{}, err
	}
	code := strings.ToUpper(strings.TrimSpace(in.TitleCode))
	if code == "" {
		return models.PlayerTitle{}, apperr.Validation("title_code is required")
	}

	var granted models.PlayerTitle
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Select("id").First(&models.Player{}, "id = ?", playerID).Error; err != nil {
			return dbError(err, "player")
		}
		if err := tx.First(&models.Title{}, "code = ?", code).Error; err != nil {
			return dbError(err, "title")
		}

		// INSERT ... ON CONFLICT (player_id, title_code) DO UPDATE SET verified, updated_at
		pt := models.PlayerTitle{PlayerID: playerID, TitleCode: code, Verified: in.Verified}
		err := tx.Omit(clause.Associations).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "player_id"}, {Name: "title_code"}},
			DoUpdates: clause.AssignmentColumns([]string{"verified", "updated_at"}),
		}).Create(&pt).Error
		if err != nil {
			return dbError(err, "player title")
		}

		return dbError(tx.Preload("Title").
			First(&granted, "player_id = ? AND title_code = ?", playerID, code).Error, "player title")
	})
	if err != nil {
		return models.PlayerTitle{}, err
	}
	return granted, nil
}

// orderedRatings keeps a player's ratings in a stable order.
func orderedRatings(db *gorm.DB) *gorm.DB {
	return db.Order("format")
}

// trimmed returns nil for nil or blank strings, otherwise the trimmed value.
func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
