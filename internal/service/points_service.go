package service

import (
	"context"

	"geocoding-etl/internal/models"

	"github.com/rotisserie/eris"
)

// PointService reads persisted points back with their whole hierarchy
type PointService struct {
	repo PointRepository
}

// PointRepository interface for dependency injection
type PointRepository interface {
	ListPoints(ctx context.Context, limit int) ([]models.PointView, error)
}

// NewPointService creates a new point service
func NewPointService(repo PointRepository) *PointService {
	return &PointService{repo: repo}
}

// ListPoints returns up to limit points in insertion order; zero means all
func (s *PointService) ListPoints(ctx context.Context, limit int) ([]models.PointView, error) {
	if limit < 0 {
		return nil, eris.New("service: limit cannot be negative")
	}

	points, err := s.repo.ListPoints(ctx, limit)
	if err != nil {
		return nil, eris.Wrap(err, "service: failed to list points")
	}
	if points == nil {
		points = []models.PointView{}
	}

	return points, nil
}
