// Package models defines the data structures that map to database tables.
// GORM uses these structs to generate SQL and to map rows back to Go values; the schema
// itself is owned by the SQL files in migrations/ (tests build it with AutoMigrate).
//
// The data model represents a chess federation:
//   - Profiles are the staff accounts (organizers, officers, admins) behind the API
//   - Players are rated people; each Player has one Rating per Format
//   - Tournaments contain Rounds, Rounds contain Matches between two Players
//   - Every processed Match appends one RatingHistory row per rated Player
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// --- Enums ---
// Named string types plus constants give type safety while keeping the stored values
// human-readable. Postgres stores most of them as native enum types (see migrations).

// UserRole is a profile's permission level across the whole platform.
type UserRole string

const (
	RoleOrganizer UserRole = "ORGANIZER" // Can create players and run their own tournaments
	RoleOfficer   UserRole = "OFFICER"   // Federation officer: approves tournaments and organizers
	RoleAdmin     UserRole = "ADMIN"     // Full access
)

// Valid reports whether r is one of the known roles.
func (r UserRole) Valid() bool {
	switch r {
	case RoleOrganizer, RoleOfficer, RoleAdmin:
		return true
	}
	return false
}

// ProfileStatus tracks whether a profile has been vetted by the federation.
type ProfileStatus string

const (
	ProfileStatusPending   ProfileStatus = "PENDING"   // Signed up, waiting for an officer
	ProfileStatusApproved  ProfileStatus = "APPROVED"  // Allowed to act on their role
	ProfileStatusSuspended ProfileStatus = "SUSPENDED" // Blocked from every gated operation
)

// Valid reports whether s is one of the known profile statuses.
func (s ProfileStatus) Valid() bool {
	switch s {
	case ProfileStatusPending, ProfileStatusApproved, ProfileStatusSuspended:
		return true
	}
	return false
}

// Format is the time-control category. Ratings are tracked independently per format.
type Format string

const (
	FormatClassical Format = "CLASSICAL"
	FormatRapid     Format = "RAPID"
	FormatBlitz     Format = "BLITZ"
)

// Formats lists every supported format, in display order.
var Formats = []Format{FormatClassical, FormatRapid, FormatBlitz}

// Valid reports whether f is a supported format.
func (f Format) Valid() bool {
	for _, known := range Formats {
		if f == known {
			return true
		}
	}
	return false
}

// TournamentStatus tracks the lifecycle of a tournament:
// CREATED -> APPROVED -> IN_PROGRESS -> COMPLETED.
type TournamentStatus string

const (
	TournamentStatusCreated    TournamentStatus = "CREATED"     // Submitted by an organizer, awaiting approval
	TournamentStatusApproved   TournamentStatus = "APPROVED"    // Approved; registration open, no rounds yet
	TournamentStatusInProgress TournamentStatus = "IN_PROGRESS" // First round generated
	TournamentStatusCompleted  TournamentStatus = "COMPLETED"   // Final round fully recorded
)

// Valid reports whether s is a known tournament status.
func (s TournamentStatus) Valid() bool {
	switch s {
	case TournamentStatusCreated, TournamentStatusApproved, TournamentStatusInProgress, TournamentStatusCompleted:
		return true
	}
	return false
}

// PairingSystem is the policy used to generate a tournament's rounds.
type PairingSystem string

const (
	PairingSwiss      PairingSystem = "SWISS"       // Pair players on similar scores, no rematches
	PairingRoundRobin PairingSystem = "ROUND_ROBIN" // Everyone plays everyone
)

// Valid reports whether p is a known pairing system.
func (p PairingSystem) Valid() bool {
	return p == PairingSwiss || p == PairingRoundRobin
}

// MatchResult is the outcome of a single game.
type MatchResult string

const (
	ResultPending  MatchResult = "PENDING"   // Not played / not reported yet
	ResultWhiteWin MatchResult = "WHITE_WIN" // 1-0
	ResultBlackWin MatchResult = "BLACK_WIN" // 0-1
	ResultDraw     MatchResult = "DRAW"      // ½-½
	ResultBye      MatchResult = "BYE"       // No opponent; scored as a win, never rated
)

// Valid reports whether r is a known result.
func (r MatchResult) Valid() bool {
	switch r {
	case ResultPending, ResultWhiteWin, ResultBlackWin, ResultDraw, ResultBye:
		return true
	}
	return false
}

// Terminal reports whether r is a final outcome (anything but PENDING).
func (r MatchResult) Terminal() bool {
	return r.Valid() && r != ResultPending
}

// --- Models ---

// Base holds the UUID primary key and timestamps shared by most tables.
// The ID is generated in Go (BeforeCreate) so inserts behave the same against
// Postgres and the SQLite database used by the tests.
type Base struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate is a GORM hook that assigns a fresh UUID when none is set.
func (b *Base) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// Profile is a staff account. Its ID is the identity provider's user ID (the JWT "sub").
//
// Public tournament responses load only ID and FullName; the other fields are omitted
// from JSON when they were not selected.
type Profile struct {
	ID        uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	FullName  string        `gorm:"not null" json:"full_name"`
	Email     *string       `json:"email,omitempty"`
	Role      UserRole      `gorm:"type:user_role;not null;default:'ORGANIZER'" json:"role,omitempty"`
	Status    ProfileStatus `gorm:"type:profile_status;not null;default:'PENDING'" json:"status,omitempty"`
	CreatedAt time.Time     `json:"created_at,omitzero"`
	UpdatedAt time.Time     `json:"updated_at,omitzero"`
}

// State is reference data (federation regions).
type State struct {
	ID     int    `gorm:"primaryKey" json:"id"`
	Name   string `gorm:"not null;uniqueIndex" json:"name"`
	Cities []City `gorm:"foreignKey:StateID" json:"cities,omitempty"`
}

// City is reference data; every city belongs to a State.
type City struct {
	ID      int    `gorm:"primaryKey" json:"id"`
	StateID int    `gorm:"not null;index" json:"state_id"`
	Name    string `gorm:"not null" json:"name"`
}

// Player is a rated person. Identity fields (names, gender, birth date) are fixed at
// creation; Email and Phone are the only fields that may change afterwards.
type Player struct {
	Base
	FirstName    string        `gorm:"not null" json:"first_name"`
	LastName     string        `gorm:"not null" json:"last_name"`
	Gender       *string       `json:"gender,omitempty"`
	BirthDate    *time.Time    `gorm:"type:date" json:"birth_date,omitempty"`
	Email        *string       `json:"email,omitempty"`
	Phone        *string       `json:"phone,omitempty"`
	FederationID *string       `gorm:"uniqueIndex" json:"federation_id,omitempty"` // External federation ID (e.g. FIDE)
	StateID      *int          `gorm:"index" json:"state_id,omitempty"`
	State        *State        `gorm:"foreignKey:StateID" json:"state,omitempty"`
	CityID       *int          `json:"city_id,omitempty"`
	City         *City         `gorm:"foreignKey:CityID" json:"city,omitempty"`
	CreatedBy    *uuid.UUID    `gorm:"type:uuid" json:"created_by,omitempty"` // Profile that registered the player
	Ratings      []Rating      `gorm:"foreignKey:PlayerID" json:"ratings,omitempty"`
	Titles       []PlayerTitle `gorm:"foreignKey:PlayerID" json:"titles,omitempty"`
}

// Rating is a player's current rating in one format.
// The unique index (idx_rating_player_format) enforces one row per (player, format).
type Rating struct {
	Base
	PlayerID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_rating_player_format" json:"player_id"`
	Format        Format    `gorm:"type:rating_format;not null;uniqueIndex:idx_rating_player_format" json:"format"`
	Rating        int       `gorm:"not null" json:"rating"`
	GamesPlayed   int       `gorm:"not null;default:0" json:"games_played"`
	IsEstablished bool      `gorm:"not null;default:false" json:"is_established"`
	BonusApplied  bool      `gorm:"not null;default:false" json:"bonus_applied"`
}

// RatingHistory is an append-only record of one rating change.
// The unique index (idx_history_match_player) means a match can move a player's
// rating at most once, no matter how often its result is submitted.
type RatingHistory struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	PlayerID     uuid.UUID  `gorm:"type:uuid;not null;index;uniqueIndex:idx_history_match_player" json:"player_id"`
	Format       Format     `gorm:"type:rating_format;not null" json:"format"`
	TournamentID *uuid.UUID `gorm:"type:uuid;index" json:"tournament_id,omitempty"`
	MatchID      *uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_history_match_player" json:"match_id,omitempty"`
	OldRating    int        `gorm:"not null" json:"old_rating"`
	NewRating    int        `gorm:"not null" json:"new_rating"`
	Delta        int        `gorm:"not null" json:"delta"`
	CreatedAt    time.Time  `json:"created_at"`
}

// TableName keeps the singular table name used by the schema.
func (RatingHistory) TableName() string {
	return "rating_history"
}

// BeforeCreate assigns the UUID; RatingHistory has no UpdatedAt so it does not embed Base.
func (h *RatingHistory) BeforeCreate(tx *gorm.DB) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return nil
}

// Title is reference data such as GM, IM, FM.
type Title struct {
	Code string `gorm:"primaryKey" json:"code"`
	Name string `gorm:"not null" json:"name"`
}

// PlayerTitle grants a Title to a Player. Verified is set once an officer has checked it.
type PlayerTitle struct {
	Base
	PlayerID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_player_title" json:"player_id"`
	TitleCode string    `gorm:"not null;uniqueIndex:idx_player_title" json:"title_code"`
	Title     *Title    `gorm:"foreignKey:TitleCode;references:Code" json:"title,omitempty"`
	Verified  bool      `gorm:"not null;default:false" json:"verified"`
}

// Tournament is owned by its organizer until an officer or admin transfers it.
type Tournament struct {
	Base
	Name          string             `gorm:"not null" json:"name"`
	Description   *string            `json:"description,omitempty"`
	Format        Format             `gorm:"type:rating_format;not null" json:"format"`
	PairingSystem PairingSystem      `gorm:"type:pairing_system;not null;default:'SWISS'" json:"pairing_system"`
	Venue         *string            `json:"venue,omitempty"`
	StateID       *int               `gorm:"index" json:"state_id,omitempty"`
	State         *State             `gorm:"foreignKey:StateID" json:"state,omitempty"`
	CityID        *int               `json:"city_id,omitempty"`
	City          *City              `gorm:"foreignKey:CityID" json:"city,omitempty"`
	StartDate     time.Time          `gorm:"type:date;not null;index" json:"start_date"`
	EndDate       time.Time          `gorm:"type:date;not null" json:"end_date"`
	Rounds        int                `gorm:"not null" json:"rounds"` // Planned number of rounds
	OrganizerID   uuid.UUID          `gorm:"type:uuid;not null;index" json:"organizer_id"`
	Organizer     *Profile           `gorm:"foreignKey:OrganizerID" json:"organizer,omitempty"`
	Status        TournamentStatus   `gorm:"type:tournament_status;not null;default:'CREATED'" json:"status"`
	Players       []TournamentPlayer `gorm:"foreignKey:TournamentID;constraint:OnDelete:CASCADE" json:"-"`
	RoundList     []Round            `gorm:"foreignKey:TournamentID;constraint:OnDelete:CASCADE" json:"-"`
}

// TournamentPlayer registers a Player for a Tournament.
// The unique index (idx_tournament_player) prevents double registration.
type TournamentPlayer struct {
	Base
	TournamentID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_tournament_player" json:"tournament_id"`
	PlayerID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_tournament_player" json:"player_id"`
	Player       *Player   `gorm:"foreignKey:PlayerID" json:"player,omitempty"`
}

// Round is one pairing cycle of a Tournament. RoundNumber starts at 1 and is unique
// within the tournament (idx_round_tournament_number).
type Round struct {
	Base
	TournamentID uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_round_tournament_number" json:"tournament_id"`
	RoundNumber  int        `gorm:"not null;uniqueIndex:idx_round_tournament_number" json:"round_number"`
	StartTime    *time.Time `json:"start_time,omitempty"`
	EndTime      *time.Time `json:"end_time,omitempty"`
	Matches      []Match    `gorm:"foreignKey:RoundID;constraint:OnDelete:CASCADE" json:"matches"`
}

// Match is a single game inside a Round. BlackPlayerID is nil for a bye.
// RatingProcessed flips to true in the same UPDATE that stores the terminal result.
type Match struct {
	Base
	RoundID         uuid.UUID   `gorm:"type:uuid;not null;index" json:"round_id"`
	WhitePlayerID   uuid.UUID   `gorm:"type:uuid;not null" json:"white_player_id"`
	BlackPlayerID   *uuid.UUID  `gorm:"type:uuid" json:"black_player_id"`
	Board           int         `gorm:"not null" json:"board"`
	Result          MatchResult `gorm:"type:match_result;not null;default:'PENDING'" json:"result"`
	RatingProcessed bool        `gorm:"not null;default:false" json:"rating_processed"`
}

// All lists every model, in dependency order. Tests pass it to AutoMigrate.
func All() []any {
	return []any{
		&Profile{},
		&State{},
		&City{},
		&Title{},
		&Player{},
		&Rating{},
		&PlayerTitle{},
		&Tournament{},
		&TournamentPlayer{},
		&Round{},
		&Match{},
		&RatingHistory{},
	}
}
