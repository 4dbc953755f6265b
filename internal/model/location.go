package model

import "time"

// Location is a restaurant tenant. It owns a reward catalog and a set of enrollments.
type Location struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Slug         string    `json:"slug"`
	AddressLine1 *string   `json:"address_line1,omitempty"`
	City         *string   `json:"city,omitempty"`
	State        *string   `json:"state,omitempty"`
	PostalCode   *string   `json:"postal_code,omitempty"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

// PublicLocation is the unauthenticated view used by the QR enrollment page.
type PublicLocation struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CreateLocationRequest is the DTO for creating a location.
type CreateLocationRequest struct {
	Name         string  `json:"name" validate:"required,notblank,max=255"`
	AddressLine1 *string `json:"address_line1" validate:"omitempty,max=255"`
	City         *string `json:"city" validate:"omitempty,max=120"`
	State        *string `json:"state" validate:"omitempty,max=120"`
	PostalCode   *string `json:"postal_code" validate:"omitempty,max=20"`
}
