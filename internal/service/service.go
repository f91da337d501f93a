// Package service holds the business logic of the ratings API. Handlers parse the
// request and call a service; services enforce the capability table, run the
// database work (one transaction per multi-row write) and return apperr errors.
package service

import (
	"errors"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/trentd187/chess-ratings/internal/apperr"
	"github.com/trentd187/chess-ratings/internal/rating"
	"github.com/trentd187/chess-ratings/internal/websocket"
)

// Pagination limits.
const (
	DefaultPageLimit = 20  // Used when ?limit= is missing or 0
	MaxPageLimit     = 100 // Larger limits are silently capped
)

// Notifier receives tournament events after their transaction commits.
// *websocket.Hub satisfies it.
type Notifier interface {
	Publish(event websocket.Event) error
}

// Page is a 1-based page request.
type Page struct {
	Page  int // 1 is the first page
	Limit int // Rows per page
}

// NewPage validates page and limit. Zero values take the defaults and limit is capped
// at MaxPageLimit.
func NewPage(page, limit int) (Page, error) {
	if page < 0 || limit < 0 {
		return Page{}, apperr.Validation("page and limit must be positive numbers")
	}
	if page == 0 {
		page = 1
	}
	if limit == 0 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	return Page{Page: page, Limit: limit}, nil
}

// Offset is the number of rows skipped before this page.
func (p Page) Offset() int {
	return (p.Page - 1) * p.Limit
}

// paginate is a gorm scope applying p. A zero Page (built without NewPage) gets the
// defaults rather than LIMIT 0.
func (p Page) paginate(db *gorm.DB) *gorm.DB {
	if p.Limit == 0 {
		p = Page{Page: 1, Limit: DefaultPageLimit}
	}
	return db.Offset(p.Offset()).Limit(p.Limit)
}

// Services bundles every service so main and the router can pass one value around.
type Services struct {
	Players     *PlayerService
	Tournaments *TournamentService
	Profiles    *ProfileService
	Reference   *ReferenceService
}

// New wires the services to one database handle. notifier may be nil.
func New(db *gorm.DB, engine *rating.Engine, notifier Notifier, log zerolog.Logger) *Services {
	return &Services{
		Players:     NewPlayerService(db, engine.Config().DefaultRating),
		Tournaments: NewTournamentService(db, engine, notifier, log),
		Profiles:    NewProfileService(db),
		Reference:   NewReferenceService(db),
	}
}

// dbError classifies a gorm error. what names the record for NotFound messages.
func dbError(err error, what string) error {
	// ErrDuplicatedKey is only produced because Connect sets gorm.Config.TranslateError.
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperr.NotFound("%s not found", what)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return apperr.Conflict("%s already exists", what)
	default:
		// Errors returned from inside a Transaction callback are already classified.
		var classified *apperr.Error
		if errors.As(err, &classified) {
			return err
		}
		return apperr.Internal("failed to access "+what, err)
	}
}
