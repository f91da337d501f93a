package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/trentd187/chess-ratings/internal/access"
	"github.com/trentd187/chess-ratings/internal/apperr"
	"github.com/trentd187/chess-ratings/internal/models"
)

// ProfileService lets officers vet staff accounts.
type ProfileService struct {
	db *gorm.DB
}

// NewProfileService returns a ProfileService backed by db.
func NewProfileService(db *gorm.DB) *ProfileService {
	return &ProfileService{db: db}
}

// Me returns the caller's own profile.
func (s *ProfileService) Me(ctx context.Context, caller access.Caller) (models.Profile, error) {
	if !caller.Authenticated() {
		return models.Profile{}, apperr.Unauthenticated("authentication required")
	}
	var p models.Profile
	if err := s.db.WithContext(ctx).First(&p, "id = ?", caller.UserID).Error; err != nil {
		return models.Profile{}, dbError(err, "profile")
	}
	return p, nil
}

// SetStatus approves, suspends or resets a staff profile. Nobody can change their own
// status.
func (s *ProfileService) SetStatus(ctx context.Context, caller access.Caller, id uuid.UUID, status models.ProfileStatus) (models.Profile, error) {
	if err := access.Authorize(caller, access.ProfileReview); err != nil {
		return models.Profile{}, err
	}
	status = models.ProfileStatus(strings.ToUpper(string(status)))
	if !status.Valid() {
		return models.Profile{}, apperr.Validation("status must be PENDING, APPROVED or SUSPENDED")
	}
	// An officer suspending or un-suspending themselves would bypass the review.
	if id == caller.UserID {
		return models.Profile{}, apperr.Forbidden("you cannot change the status of your own profile")
	}

	var p models.Profile
	if err := s.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return models.Profile{}, dbError(err, "profile")
	}
	if err := s.db.WithContext(ctx).Model(&p).Update("status", status).Error; err != nil {
		return models.Profile{}, dbError(err, "profile")
	}
	p.Status = status
	return p, nil
}
