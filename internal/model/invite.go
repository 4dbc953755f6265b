package model

import "time"

// Invite is a single-use code that scopes a portal user to a location once accepted.
type Invite struct {
	ID           string     `json:"id"`
	Code         string     `json:"code"`
	LocationID   string     `json:"location_id"`
	LocationName string     `json:"location_name,omitempty"`
	CreatedBy    string     `json:"created_by"`
	CreatedAt    time.Time  `json:"created_at"`
	ExpiresAt    time.Time  `json:"expires_at"`
	UsedAt       *time.Time `json:"used_at,omitempty"`
	UsedBy       *string    `json:"used_by,omitempty"`
}

// Used reports whether the invite has already been accepted.
func (i *Invite) Used() bool {
	return i.UsedAt != nil
}

// Expired reports whether the invite can no longer be accepted at the given instant.
func (i *Invite) Expired(now time.Time) bool {
	return !now.Before(i.ExpiresAt)
}

// CreateInviteRequest represents the request body for issuing an invite.
// A nil ExpiresAt takes the configured default lifetime.
type CreateInviteRequest struct {
	LocationID string     `json:"location_id" validate:"required,notblank,max=64"`
	ExpiresAt  *time.Time `json:"expires_at"`
}

// AcceptInviteRequest represents the request body for redeeming an invite code.
type AcceptInviteRequest struct {
	Code string `json:"code" validate:"required,notblank,max=32"`
}

// InviteCheck is the public answer to "can this code still be accepted".
type InviteCheck struct {
	Valid        bool      `json:"valid"`
	LocationName string    `json:"location_name"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// InviteAcceptance reports the location an accepted invite granted.
type InviteAcceptance struct {
	LocationID   string `json:"location_id"`
	LocationName string `json:"location_name"`
}
