package service

import (
	"context"

	"gorm.io/gorm"

	"github.com/trentd187/chess-ratings/internal/models"
)

// ReferenceService serves the read-only lookup tables.
type ReferenceService struct {
	db *gorm.DB
}

// NewReferenceService returns a ReferenceService backed by db.
func NewReferenceService(db *gorm.DB) *ReferenceService {
	return &ReferenceService{db: db}
}

// States returns every state with its cities, both sorted by name.
func (s *ReferenceService) States(ctx context.Context) ([]models.State, error) {
	states := make([]models.State, 0)
	// A Preload condition function customises the second query GORM runs for cities.
	err := s.db.WithContext(ctx).
		Preload("Cities", func(db *gorm.DB) *gorm.DB { return db.Order("name") }).
		Order("name").
		Find(&states).Error
	return states, dbError(err, "states")
}

// Titles returns the titles that can be granted.
func (s *ReferenceService) Titles(ctx context.Context) ([]models.Title, error) {
	titles := make([]models.Title, 0)
	err := s.db.WithContext(ctx).Order("code").Find(&titles).Error
	return titles, dbError(err, "titles")
}
