package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/gosimple/slug"

	"github.com/alignperks/loyalty-portal/internal/model"
)

const maxSlugAttempts = 50

// LocationService manages restaurant locations and who may act on them.
type LocationService struct {
	pool      TxBeginner
	locations LocationRepositoryInterface
	access    AccessRepositoryInterface
}

// NewLocationService creates a new LocationService.
func NewLocationService(pool TxBeginner, locations LocationRepositoryInterface, access AccessRepositoryInterface) *LocationService {
	return &LocationService{pool: pool, locations: locations, access: access}
}

// Create adds a location and scopes the creating user to it.
// The slug is derived from the name; collisions get a numeric suffix.
func (s *LocationService) Create(ctx context.Context, userID string, req *model.CreateLocationRequest) (*model.Location, error) {
	if req == nil || userID == "" {
		return nil, ErrInvalidInput
	}

	base := slug.Make(req.Name)
	if base == "" {
		base = "location"
	}

	for attempt := 1; attempt <= maxSlugAttempts; attempt++ {
		candidate := base
		if attempt > 1 {
			candidate = fmt.Sprintf("%s-%d", base, attempt)
		}

		loc := &model.Location{
			ID:           uuid.NewString(),
			Name:         req.Name,
			Slug:         candidate,
			AddressLine1: req.AddressLine1,
			City:         req.City,
			State:        req.State,
			PostalCode:   req.PostalCode,
		}
		err := s.insert(ctx, userID, loc)
		if errors.Is(err, ErrSlugTaken) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return loc, nil
	}
	return nil, fmt.Errorf("no free slug for %q after %d attempts: %w", base, maxSlugAttempts, ErrSlugTaken)
}

// insert runs one slug attempt in its own transaction; a unique violation aborts it.
func (s *LocationService) insert(ctx context.Context, userID string, loc *model.Location) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := s.locations.Insert(ctx, tx, loc); err != nil {
		if errors.Is(err, ErrSlugTaken) {
			return ErrSlugTaken
		}
		return fmt.Errorf("insert location: %w", err)
	}
	if err := s.access.Grant(ctx, tx, userID, loc.ID); err != nil {
		return fmt.Errorf("grant access: %w", err)
	}
	return tx.Commit(ctx)
}

// List returns the locations the user is scoped to.
func (s *LocationService) List(ctx context.Context, userID string) ([]model.Location, error) {
	return s.locations.ListForUser(ctx, userID)
}

// GetPublic returns the public view of an active location.
func (s *LocationService) GetPublic(ctx context.Context, id string) (*model.PublicLocation, error) {
	loc, err := s.locations.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get location: %w", err)
	}
	if loc == nil || !loc.IsActive {
		return nil, ErrNotFound
	}
	return &model.PublicLocation{ID: loc.ID, Name: loc.Name}, nil
}
