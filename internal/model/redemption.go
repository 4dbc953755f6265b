package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// RedemptionItem is a frozen copy of a reward's name and price taken when the intent is created.
type RedemptionItem struct {
	RewardItemID string `json:"reward_item_id"`
	Name         string `json:"name"`
	PointsEach   int    `json:"points_each"`
	Qty          int    `json:"qty"`
	PointsTotal  int    `json:"points_total"`
}

// RedemptionIntent is a pending request to spend points, identified by an opaque token.
// UsedAt is nil while pending and set exactly once when staff complete the redemption.
type RedemptionIntent struct {
	ID           string           `json:"id"`
	Token        string           `json:"token"`
	EnrollmentID string           `json:"enrollment_id"`
	Items        []RedemptionItem `json:"items"`
	PointsSpent  int              `json:"points_spent"`
	CreatedAt    time.Time        `json:"created_at"`
	ExpiresAt    *time.Time       `json:"expires_at,omitempty"`
	UsedAt       *time.Time       `json:"used_at,omitempty"`
}

// Consumed reports whether the intent has already been redeemed.
func (r *RedemptionIntent) Consumed() bool {
	return r.UsedAt != nil
}

// Expired reports whether the intent's lifetime has passed at the given instant.
func (r *RedemptionIntent) Expired(now time.Time) bool {
	return r.ExpiresAt != nil && !now.Before(*r.ExpiresAt)
}

// PrimaryItem returns the first snapshot item, used for one-line confirmations.
func (r *RedemptionIntent) PrimaryItem() RedemptionItem {
	if len(r.Items) == 0 {
		return RedemptionItem{Name: "Reward", Qty: 1}
	}
	return r.Items[0]
}

// RedemptionContext is an intent loaded together with the data needed to authorise and display it.
type RedemptionContext struct {
	Intent       RedemptionIntent
	LocationID   string
	LocationName string
	CustomerName string
	Balance      int
	CRMContactID *string
}

// RequestRedemptionRequest is the customer's DTO for reserving a reward.
type RequestRedemptionRequest struct {
	EnrollmentID string `json:"enrollment_id" validate:"required,notblank,max=64"`
	RewardItemID string `json:"reward_item_id" validate:"required,notblank,max=64"`
	Quantity     *int   `json:"quantity" validate:"required,gte=1"`
}

// RedemptionTicket is returned to the customer and rendered as a scannable code.
type RedemptionTicket struct {
	RedemptionIntentID string     `json:"redemption_intent_id"`
	Token              string     `json:"token"`
	PointsSpent        int        `json:"points_spent"`
	ExpiresAt          *time.Time `json:"expires_at,omitempty"`
}

// RedemptionPreview is the read-only staff confirmation view of a token.
type RedemptionPreview struct {
	RedemptionIntentID string           `json:"redemption_intent_id"`
	CustomerName       string           `json:"customer_name"`
	RewardName         string           `json:"reward_name"`
	PointsSpent        int              `json:"points_spent"`
	CurrentPoints      int              `json:"current_points"`
	Items              []RedemptionItem `json:"items"`
}

// CompleteRedemptionRequest is the staff DTO for committing a scanned token.
type CompleteRedemptionRequest struct {
	Token string `json:"token" validate:"required,notblank,max=128"`
}

// RedemptionReceipt is the result of a committed redemption.
type RedemptionReceipt struct {
	Success      bool   `json:"success"`
	CustomerName string `json:"customer_name"`
	RewardName   string `json:"reward_name"`
	PointsSpent  int    `json:"points_spent"`
	NewPoints    int    `json:"new_points"`
}

// AddPointsRequest is the staff DTO for recording a purchase.
type AddPointsRequest struct {
	EnrollmentID string           `json:"enrollment_id" validate:"required,notblank,max=64"`
	Amount       *decimal.Decimal `json:"amount" validate:"required"`
}

// AddPointsResponse reports the balance after an accrual.
type AddPointsResponse struct {
	Success     bool `json:"success"`
	PointsAdded int  `json:"points_added"`
	NewPoints   int  `json:"new_points"`
}
