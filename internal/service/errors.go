package service

import "errors"

var (
	// ErrNotFound is returned when a referenced entity does not exist or is not visible to the caller
	ErrNotFound = errors.New("not found")

	// ErrForbidden is returned when the caller has no access to the entity's location
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidInput is returned when request data is malformed or incomplete
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidAmount is returned when a purchase amount is not a positive currency value
	ErrInvalidAmount = errors.New("amount must be greater than zero")

	// ErrInsufficientBalance is returned when a spend exceeds the enrollment's current points
	ErrInsufficientBalance = errors.New("insufficient points")

	// ErrRewardNotRedeemable is returned when a reward has no price or is disabled
	ErrRewardNotRedeemable = errors.New("reward cannot be redeemed right now")

	// ErrInvalidOrExpired is returned when a redemption token is unknown or past its lifetime
	ErrInvalidOrExpired = errors.New("invalid or expired token")

	// ErrAlreadyConsumed is returned when a redemption token has already been redeemed
	ErrAlreadyConsumed = errors.New("redemption already completed")

	// ErrPhoneInUse is returned when a phone number belongs to another customer
	ErrPhoneInUse = errors.New("phone number already in use")

	// ErrRewardUndeletable is returned when deleting the sign-up gift or a protected reward
	ErrRewardUndeletable = errors.New("reward cannot be deleted")

	// ErrSlugTaken is returned when a generated location slug collides with an existing one
	ErrSlugTaken = errors.New("location slug already taken")

	// ErrInviteCodeTaken is returned when a generated invite code collides with an existing one
	ErrInviteCodeTaken = errors.New("invite code already taken")

	// ErrInviteUsed is returned when an invite has already been accepted
	ErrInviteUsed = errors.New("invite already used")

	// ErrInviteExpired is returned when an invite is past its expiry
	ErrInviteExpired = errors.New("invite expired")
)
