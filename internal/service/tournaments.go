package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/trentd187/chess-ratings/internal/access"
	"github.com/trentd187/chess-ratings/internal/apperr"
	"github.com/trentd187/chess-ratings/internal/models"
	"github.com/trentd187/chess-ratings/internal/rating"
	"github.com/trentd187/chess-ratings/internal/websocket"
)

// Event types published to the live feed.
const (
	EventRoundGenerated = "round.generated" // Payload: the new models.Round with its matches
	EventResultRecorded = "result.recorded" // Payload: a ResultOutcome
)

// TournamentService runs the tournament lifecycle:
//
//	CREATED --approve--> APPROVED --round 1--> IN_PROGRESS --final round recorded--> COMPLETED
//
// Round generation and result recording live in rounds.go.
type TournamentService struct {
	db       *gorm.DB       // Shared connection pool; transactions are opened per call
	engine   *rating.Engine // Computes rating changes when a result is recorded
	notifier Notifier       // Live feed; nil disables events
	log      zerolog.Logger
}

// NewTournamentService returns a TournamentService. notifier may be nil, in which case
// no live events are sent.
func NewTournamentService(db *gorm.DB, engine *rating.Engine, notifier Notifier, log zerolog.Logger) *TournamentService {
	return &TournamentService{db: db, engine: engine, notifier: notifier, log: log}
}

// TournamentFilter narrows ListTournaments. Zero fields are ignored.
type TournamentFilter struct {
	StateID *int                    // ?state=
	Format  models.Format           // ?format=, e.g. BLITZ
	Status  models.TournamentStatus // ?status=, e.g. APPROVED
	From    *time.Time              // start_date on or after
	To      *time.Time              // start_date on or before
}

// TournamentDetail is a tournament with its field and every round played so far.
type TournamentDetail struct {
	models.Tournament
	Players []models.Player `json:"players"`
	Rounds  []models.Round  `json:"rounds"`
}

// CreateTournamentInput is the data accepted when creating a tournament.
type CreateTournamentInput struct {
	Name          string  `json:"name"`           // Required
	Description   *string `json:"description"`    // Optional
	Format        string  `json:"format"`         // Required: CLASSICAL, RAPID or BLITZ
	PairingSystem string  `json:"pairing_system"` // optional, SWISS by default
	Venue         *string `json:"venue"`
	StateID       *int    `json:"state_id"`
	CityID        *int    `json:"city_id"`
	StartDate     string  `json:"start_date"` // YYYY-MM-DD
	EndDate       string  `json:"end_date"`   // YYYY-MM-DD
	Rounds        int     `json:"rounds"`     // Planned number of rounds, at least 1
}

// scope applies the filter as a GORM scope, so List can share it between the count
// query and the page query.
func (f TournamentFilter) scope(db *gorm.DB) *gorm.DB {
	if f.StateID != nil {
		db = db.Where("tournaments.state_id = ?", *f.StateID)
	}
	if f.Format != "" {
		db = db.Where("tournaments.format = ?", f.Format)
	}
	if f.Status != "" {
		db = db.Where("tournaments.status = ?", f.Status)
	}
	if f.From != nil {
		db = db.Where("tournaments.start_date >= ?", *f.From)
	}
	if f.To != nil {
		db = db.Where("tournaments.start_date <= ?", *f.To)
	}
	return db
}

func (f TournamentFilter) validate() error {
	if f.Format != "" && !f.Format.Valid() {
		return apperr.Validation("unknown format %q", f.Format)
	}
	if f.Status != "" && !f.Status.Valid() {
		return apperr.Validation("unknown status %q", f.Status)
	}
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return apperr.Validation("to_date must not be before from_date")
	}
	return nil
}

// List returns one page of tournaments, newest start date first, plus the total count.
func (s *TournamentService) List(ctx context.Context, f TournamentFilter, p Page) ([]models.Tournament, int64, error) {
	if err := f.validate(); err != nil {
		return nil, 0, err
	}

	var total int64
	if err := s.db.WithContext(ctx).Model(&models.Tournament{}).Scopes(f.scope).Count(&total).Error; err != nil {
		return nil, 0, dbError(err, "tournaments")
	}

	// make(..., 0) rather than a nil slice, so an empty page encodes as [] and not null.
	tournaments := make([]models.Tournament, 0)
	err := s.db.WithContext(ctx).
		Scopes(f.scope, p.paginate).
		Preload("Organizer", publicOrganizer).
		Preload("State").
		Order("tournaments.start_date DESC, tournaments.id").
		Find(&tournaments).Error
	if err != nil {
		return nil, 0, dbError(err, "tournaments")
	}
	return tournaments, total, nil
}

// publicOrganizer limits a preloaded organizer to the fields tournament readers may see.
func publicOrganizer(db *gorm.DB) *gorm.DB {
	return db.Select("id", "full_name")
}

// ListPending returns the tournaments waiting for approval.
func (s *TournamentService) ListPending(ctx context.Context, caller access.Caller, p Page) ([]models.Tournament, int64, error) {
	if err := access.Authorize(caller, access.TournamentApprove); err != nil {
		return nil, 0, err
	}
	return s.List(ctx, TournamentFilter{Status: models.TournamentStatusCreated}, p)
}

// Get returns a tournament with organizer, location, registered players (with their
// ratings) and rounds in order, each with its matches by board.
func (s *TournamentService) Get(ctx context.Context, id uuid.UUID) (TournamentDetail, error) {
	db := s.db.WithContext(ctx)

	var detail TournamentDetail
	err := db.Preload("Organizer", publicOrganizer).Preload("State").Preload("City").
		First(&detail.Tournament, "id = ?", id).Error
	if err != nil {
		return TournamentDetail{}, dbError(err, "tournament")
	}

	detail.Players = make([]models.Player, 0)
	registered := db.Model(&models.TournamentPlayer{}).Select("player_id").Where("tournament_id = ?", id)
	err = db.Where("players.id IN (?)", registered).
		Preload("Ratings", orderedRatings).
		Order("players.last_name, players.first_name, players.id").
		Find(&detail.Players).Error
	if err != nil {
		return TournamentDetail{}, dbError(err, "tournament players")
	}

	detail.Rounds = make([]models.Round, 0)
	err = db.Where("tournament_id = ?", id).
		Preload("Matches", func(db *gorm.DB) *gorm.DB { return db.Order("board") }).
		Order("round_number").
		Find(&detail.Rounds).Error
	if err != nil {
		return TournamentDetail{}, dbError(err, "rounds")
	}
	return detail, nil
}

// Create opens a tournament organised by the caller. Officers and admins create it
// already APPROVED; organizers' tournaments start CREATED and wait for approval.
func (s *TournamentService) Create(ctx context.Context, caller access.Caller, in CreateTournamentInput) (models.Tournament, error) {
	if err := access.Authorize(caller, access.TournamentCreate); err != nil {
		return models.Tournament{}, err
	}

	t, err := newTournament(in)
	if err != nil {
		return models.Tournament{}, err
	}
	t.OrganizerID = caller.UserID
	// Organizers' tournaments wait for an officer; officers and admins approve their own.
	t.Status = models.TournamentStatusCreated
	if caller.Elevated() {
		t.Status = models.TournamentStatusApproved
	}

	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(&t).Error; err != nil {
		return models.Tournament{}, dbError(err, "tournament")
	}
	return t, nil
}

// newTournament validates in and builds the row to insert. Ownership and status are
// set by the caller.
func newTournament(in CreateTournamentInput) (models.Tournament, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return models.Tournament{}, apperr.Validation("name is required")
	}
	if in.Format == "" || in.StartDate == "" || in.EndDate == "" {
		return models.Tournament{}, apperr.Validation("format, start_date and end_date are required")
	}
	format := models.Format(strings.ToUpper(in.Format))
	if !format.Valid() {
		return models.Tournament{}, apperr.Validation("format must be CLASSICAL, RAPID or BLITZ")
	}
	system := models.PairingSwiss
	if in.PairingSystem != "" {
		system = models.PairingSystem(strings.ToUpper(in.PairingSystem))
		if !system.Valid() {
			return models.Tournament{}, apperr.Validation("pairing_system must be SWISS or ROUND_ROBIN")
		}
	}
	if in.Rounds < 1 {
		return models.Tournament{}, apperr.Validation("rounds must be at least 1")
	}

	start, err := time.Parse(dateLayout, in.StartDate)
	if err != nil {
		return models.Tournament{}, apperr.Validation("start_date must be in YYYY-MM-DD format")
	}
	end, err := time.Parse(dateLayout, in.EndDate)
	if err != nil {
		return models.Tournament{}, apperr.Validation("end_date must be in YYYY-MM-DD format")
	}
	if end.Before(start) {
		return models.Tournament{}, apperr.Validation("end_date must not be before start_date")
	}

	return models.Tournament{
		Name:          name,
		Description:   trimmed(in.Description),
		Format:        format,
		PairingSystem: system,
		Venue:         trimmed(in.Venue),
		StateID:       in.StateID,
		CityID:        in.CityID,
		StartDate:     start,
		EndDate:       end,
		Rounds:        in.Rounds,
	}, nil
}

// Approve moves a CREATED tournament to APPROVED.
func (s *TournamentService) Approve(ctx context.Context, caller access.Caller, id uuid.UUID) (models.Tournament, error) {
	if err := access.Authorize(caller, access.TournamentApprove); err != nil {
		return models.Tournament{}, err
	}
	t, err := s.load(ctx, id)
	if err != nil {
		return models.Tournament{}, err
	}
	if t.Status != models.TournamentStatusCreated {
		return models.Tournament{}, apperr.InvalidState("only CREATED tournaments can be approved (status is %s)", t.Status)
	}

	// Conditional update: two officers approving at once both pass the check above,
	// but only one of them changes a row.
	res := s.db.WithContext(ctx).Model(&models.Tournament{}).
		Where("id = ? AND status = ?", id, models.TournamentStatusCreated).
		Update("status", models.TournamentStatusApproved)
	if res.Error != nil {
		return models.Tournament{}, dbError(res.Error, "tournament")
	}
	if res.RowsAffected == 0 {
		return models.Tournament{}, apperr.InvalidState("tournament was approved concurrently")
	}
	t.Status = models.TournamentStatusApproved
	return t, nil
}

// TransferOrganizer hands a tournament to another staff profile.
func (s *TournamentService) TransferOrganizer(ctx context.Context, caller access.Caller, id, organizerID uuid.UUID) (models.Tournament, error) {
	if err := access.Authorize(caller, access.TournamentTransfer); err != nil {
		return models.Tournament{}, err
	}
	t, err := s.load(ctx, id)
	if err != nil {
		return models.Tournament{}, err
	}

	var organizer models.Profile
	if err := s.db.WithContext(ctx).First(&organizer, "id = ?", organizerID).Error; err != nil {
		return models.Tournament{}, dbError(err, "organizer profile")
	}
	// A pending or suspended owner could not run the tournament.
	if organizer.Status != models.ProfileStatusApproved {
		return models.Tournament{}, apperr.Validation("organizer profile is %s, not APPROVED", organizer.Status)
	}

	if err := s.db.WithContext(ctx).Model(&t).Update("organizer_id", organizerID).Error; err != nil {
		return models.Tournament{}, dbError(err, "tournament")
	}
	t.OrganizerID = organizerID
	t.Organizer = &models.Profile{ID: organizer.ID, FullName: organizer.FullName}
	return t, nil
}

// Delete removes a tournament with its registrations, rounds and matches. Rating
// history is kept; its references to the tournament and its matches are cleared.
func (s *TournamentService) Delete(ctx context.Context, caller access.Caller, id uuid.UUID) error {
	if err := access.Authorize(caller, access.TournamentDelete); err != nil {
		return err
	}
	if _, err := s.load(ctx, id); err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rounds := tx.Model(&models.Round{}).Select("id").Where("tournament_id = ?", id)
		matches := tx.Model(&models.Match{}).Select("id").Where("round_id IN (?)", rounds)

		// Children first, so foreign keys never point at a deleted row. Each step is a
		// closure: building a *gorm.DB chain does nothing until it is executed, and a
		// failed step must stop the rest.
		//   1-2. detach rating history (the rating changes themselves stay)
		//   3-5. matches, rounds, registrations
		//   6.   the tournament itself
		steps := []func() *gorm.DB{
			func() *gorm.DB {
				return tx.Model(&models.RatingHistory{}).Where("match_id IN (?)", matches).Update("match_id", nil)
			},
			func() *gorm.DB {
				return tx.Model(&models.RatingHistory{}).Where("tournament_id = ?", id).Update("tournament_id", nil)
			},
			func() *gorm.DB { return tx.Where("round_id IN (?)", rounds).Delete(&models.Match{}) },
			func() *gorm.DB { return tx.Where("tournament_id = ?", id).Delete(&models.Round{}) },
			func() *gorm.DB { return tx.Where("tournament_id = ?", id).Delete(&models.TournamentPlayer{}) },
			func() *gorm.DB { return tx.Where("id = ?", id).Delete(&models.Tournament{}) },
		}
		for _, step := range steps {
			if err := step().Error; err != nil {
				return dbError(err, "tournament")
			}
		}
		return nil
	})
}

// RegisterPlayer enters a player into a tournament that has not started yet.
func (s *TournamentService) RegisterPlayer(ctx context.Context, caller access.Caller, tournamentID, playerID uuid.UUID) (models.TournamentPlayer, error) {
	t, err := s.load(ctx, tournamentID)
	if err != nil {
		return models.TournamentPlayer{}, err
	}
	if err := access.CanManageTournament(caller, t.OrganizerID); err != nil {
		return models.TournamentPlayer{}, err
	}
	if t.Status != models.TournamentStatusCreated && t.Status != models.TournamentStatusApproved {
		return models.TournamentPlayer{}, apperr.InvalidState("registration is closed once a tournament is %s", t.Status)
	}

	var player models.Player
	if err := s.db.WithContext(ctx).First(&player, "id = ?", playerID).Error; err != nil {
		return models.TournamentPlayer{}, dbError(err, "player")
	}

	// Check first for a clear Conflict message; the unique index on
	// (tournament_id, player_id) still catches a race between two requests.
	var existing int64
	err = s.db.WithContext(ctx).Model(&models.TournamentPlayer{}).
		Where("tournament_id = ? AND player_id = ?", tournamentID, playerID).
		Count(&existing).Error
	if err != nil {
		return models.TournamentPlayer{}, dbError(err, "registration")
	}
	if existing > 0 {
		return models.TournamentPlayer{}, apperr.Conflict("player is already registered for this tournament")
	}

	reg := models.TournamentPlayer{TournamentID: tournamentID, PlayerID: playerID}
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(&reg).Error; err != nil {
		return models.TournamentPlayer{}, dbError(err, "registration")
	}
	reg.Player = &player
	return reg, nil
}

// load fetches a tournament or returns NotFound.
func (s *TournamentService) load(ctx context.Context, id uuid.UUID) (models.Tournament, error) {
	var t models.Tournament
	if err := s.db.WithContext(ctx).First(&t, "id = ?", id).Error; err != nil {
		return models.Tournament{}, dbError(err, "tournament")
	}
	return t, nil
}

// publish sends an event to the live feed. Delivery is best effort: the change is
// already committed, so a failure is only logged.
func (s *TournamentService) publish(kind string, tournamentID uuid.UUID, data any) {
	if s.notifier == nil {
		return
	}
	event := websocket.Event{Type: kind, TournamentID: tournamentID.String(), Data: data}
	if err := s.notifier.Publish(event); err != nil {
		s.log.Warn().Err(err).Str("event", kind).Str("tournament_id", event.TournamentID).Msg("live event not delivered")
	}
}

// Exists returns NotFound unless the tournament exists.
func (s *TournamentService) Exists(ctx context.Context, id uuid.UUID) error {
	_, err := s.load(ctx, id)
	return err
}
