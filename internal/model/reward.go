package model

import "time"

// RewardType distinguishes the mandatory sign-up gift from ordinary catalog rewards.
type RewardType string

const (
	RewardTypeStandard   RewardType = "STANDARD"
	RewardTypeSignupGift RewardType = "SIGNUP_GIFT"
)

// DefaultSignupGiftName is used when a location's sign-up gift is created lazily.
const DefaultSignupGiftName = "Sign-up gift"

// RewardItem is one entry of a location's catalog.
// A nil PointsRequired means the reward cannot be redeemed right now.
type RewardItem struct {
	ID             string     `json:"id"`
	LocationID     string     `json:"location_id"`
	Name           string     `json:"name"`
	ImageURL       *string    `json:"image_url"`
	PointsRequired *int       `json:"points_required"`
	Type           RewardType `json:"type"`
	IsEnabled      bool       `json:"is_enabled"`
	IsUndeletable  bool       `json:"is_undeletable"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"-"`
}

// Redeemable reports whether the reward currently has a price and is switched on.
func (r *RewardItem) Redeemable() bool {
	return r.IsEnabled && r.PointsRequired != nil
}

// Deletable reports whether staff may remove the reward from the catalog.
func (r *RewardItem) Deletable() bool {
	return r.Type != RewardTypeSignupGift && !r.IsUndeletable
}

// CreateRewardRequest is the DTO for adding a standard reward.
type CreateRewardRequest struct {
	LocationID     string  `json:"location_id" validate:"required,notblank,max=64"`
	Name           string  `json:"name" validate:"required,notblank,max=255"`
	PointsRequired *int    `json:"points_required" validate:"required,gte=0"`
	ImageURL       *string `json:"image_url" validate:"omitempty,url,max=2048"`
}

// UpdateRewardRequest patches a reward. ClearPoints sets a sign-up gift's price back to null.
type UpdateRewardRequest struct {
	Name           *string `json:"name" validate:"omitempty,notblank,max=255"`
	PointsRequired *int    `json:"points_required" validate:"omitempty,gte=0"`
	ClearPoints    bool    `json:"clear_points"`
	ImageURL       *string `json:"image_url" validate:"omitempty,max=2048"`
	IsEnabled      *bool   `json:"is_enabled"`
}
