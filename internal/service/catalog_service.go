package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/alignperks/loyalty-portal/internal/model"
)

// CatalogService manages each location's rewards, including its sign-up gift.
type CatalogService struct {
	rewards   RewardRepositoryInterface
	locations LocationRepositoryInterface
	access    AccessRepositoryInterface
}

// NewCatalogService creates a new CatalogService.
func NewCatalogService(rewards RewardRepositoryInterface, locations LocationRepositoryInterface, access AccessRepositoryInterface) *CatalogService {
	return &CatalogService{rewards: rewards, locations: locations, access: access}
}

// EnsureSignupGift returns the location's sign-up gift, creating it with defaults on first use.
// Concurrent callers end up with the same row.
func (s *CatalogService) EnsureSignupGift(ctx context.Context, locationID string) (*model.RewardItem, error) {
	gift, err := s.rewards.FindSignupGift(ctx, nil, locationID)
	if err != nil {
		return nil, fmt.Errorf("find signup gift: %w", err)
	}
	if gift != nil {
		return gift, nil
	}

	if err := s.rewards.InsertSignupGiftIfMissing(ctx, uuid.NewString(), locationID, model.DefaultSignupGiftName); err != nil {
		return nil, fmt.Errorf("insert signup gift: %w", err)
	}

	// Another request may have won the insert; read whichever row exists.
	gift, err = s.rewards.FindSignupGift(ctx, nil, locationID)
	if err != nil {
		return nil, fmt.Errorf("find signup gift: %w", err)
	}
	if gift == nil {
		return nil, fmt.Errorf("signup gift for location %s missing after insert", locationID)
	}
	return gift, nil
}

// ListRewards returns the full catalog of a location the caller is scoped to.
func (s *CatalogService) ListRewards(ctx context.Context, userID, locationID string) ([]model.RewardItem, error) {
	if err := requireAccess(ctx, s.access, userID, locationID); err != nil {
		return nil, err
	}
	if _, err := s.EnsureSignupGift(ctx, locationID); err != nil {
		return nil, err
	}
	return s.rewards.ListByLocation(ctx, locationID, false)
}

// PublicCatalog returns the enabled rewards of an active location.
func (s *CatalogService) PublicCatalog(ctx context.Context, locationID string) ([]model.RewardItem, error) {
	loc, err := s.locations.GetByID(ctx, locationID)
	if err != nil {
		return nil, fmt.Errorf("get location: %w", err)
	}
	if loc == nil || !loc.IsActive {
		return nil, ErrNotFound
	}
	if _, err := s.EnsureSignupGift(ctx, locationID); err != nil {
		return nil, err
	}
	return s.rewards.ListByLocation(ctx, locationID, true)
}

// CreateReward adds a standard reward to the location's catalog.
func (s *CatalogService) CreateReward(ctx context.Context, userID string, req *model.CreateRewardRequest) (*model.RewardItem, error) {
	if req == nil || req.PointsRequired == nil || *req.PointsRequired < 0 {
		return nil, ErrInvalidInput
	}
	if err := requireAccess(ctx, s.access, userID, req.LocationID); err != nil {
		return nil, err
	}

	points := *req.PointsRequired
	item := &model.RewardItem{
		ID:             uuid.NewString(),
		LocationID:     req.LocationID,
		Name:           req.Name,
		ImageURL:       req.ImageURL,
		PointsRequired: &points,
		Type:           model.RewardTypeStandard,
		IsEnabled:      true,
	}
	if err := s.rewards.Insert(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// UpdateReward patches a reward. Only the sign-up gift may have its price cleared.
// Existing redemption intents keep the price they were created with.
func (s *CatalogService) UpdateReward(ctx context.Context, userID, rewardID string, req *model.UpdateRewardRequest) (*model.RewardItem, error) {
	if req == nil {
		return nil, ErrInvalidInput
	}
	if req.ClearPoints && req.PointsRequired != nil {
		return nil, ErrInvalidInput
	}

	item, err := s.rewards.GetByID(ctx, rewardID)
	if err != nil {
		return nil, fmt.Errorf("get reward: %w", err)
	}
	if item == nil {
		return nil, ErrNotFound
	}
	if err := requireAccess(ctx, s.access, userID, item.LocationID); err != nil {
		return nil, err
	}

	if req.Name != nil {
		item.Name = *req.Name
	}
	if req.ImageURL != nil {
		item.ImageURL = req.ImageURL
		if *req.ImageURL == "" {
			item.ImageURL = nil
		}
	}
	if req.IsEnabled != nil {
		item.IsEnabled = *req.IsEnabled
	}
	switch {
	case req.ClearPoints:
		if item.Type != model.RewardTypeSignupGift {
			return nil, ErrInvalidInput
		}
		item.PointsRequired = nil
	case req.PointsRequired != nil:
		if *req.PointsRequired < 0 {
			return nil, ErrInvalidInput
		}
		points := *req.PointsRequired
		item.PointsRequired = &points
	}

	if err := s.rewards.Update(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// DeleteReward removes a standard reward.
// Returns ErrRewardUndeletable for the sign-up gift and protected rewards.
func (s *CatalogService) DeleteReward(ctx context.Context, userID, rewardID string) error {
	item, err := s.rewards.GetByID(ctx, rewardID)
	if err != nil {
		return fmt.Errorf("get reward: %w", err)
	}
	if item == nil {
		return ErrNotFound
	}
	if err := requireAccess(ctx, s.access, userID, item.LocationID); err != nil {
		return err
	}
	if !item.Deletable() {
		return ErrRewardUndeletable
	}
	return s.rewards.Delete(ctx, rewardID)
}
