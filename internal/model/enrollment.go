package model

import "time"

// Enrollment joins a customer to a location and holds the authoritative points balance.
type Enrollment struct {
	ID           string    `json:"id"`
	CustomerID   string    `json:"customer_id"`
	LocationID   string    `json:"location_id"`
	CachedPoints int       `json:"points"`
	CRMContactID *string   `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"-"`
}

// ContactID returns the CRM contact id, or "" when the enrollment has none.
func (e *Enrollment) ContactID() string {
	if e.CRMContactID == nil {
		return ""
	}
	return *e.CRMContactID
}

// Client is an enrollment together with its customer, as listed to staff.
type Client struct {
	EnrollmentID string    `json:"enrollment_id"`
	LocationID   string    `json:"location_id"`
	Points       int       `json:"points"`
	Customer     Customer  `json:"customer"`
	EnrolledAt   time.Time `json:"enrolled_at"`
}

// CustomerEnrollment is the customer's own view of one enrollment.
type CustomerEnrollment struct {
	EnrollmentID string `json:"enrollment_id"`
	LocationID   string `json:"location_id"`
	LocationName string `json:"location_name"`
	Points       int    `json:"points"`
}

// PurchaseLog is the append-only record of one accrual.
type PurchaseLog struct {
	ID           string    `json:"id"`
	EnrollmentID string    `json:"enrollment_id"`
	AmountCents  int64     `json:"amount_cents"`
	PointsAdded  int       `json:"points_added"`
	CreatedAt    time.Time `json:"created_at"`
}

// BalanceDrift reports an enrollment whose cached balance disagrees with its history.
type BalanceDrift struct {
	EnrollmentID string
	CachedPoints int
	LedgerPoints int
}

// RegisterRequest is the DTO for the public QR enrollment form.
type RegisterRequest struct {
	LocationID string `json:"location_id" validate:"required,notblank,max=64"`
	FirstName  string `json:"first_name" validate:"required,notblank,max=120"`
	LastName   string `json:"last_name" validate:"required,notblank,max=120"`
	Phone      string `json:"phone" validate:"required,phone"`
	Email      string `json:"email" validate:"omitempty,email,max=255"`
}

// CreateClientRequest is the DTO for staff-created enrollments.
type CreateClientRequest struct {
	LocationID string `json:"location_id" validate:"required,notblank,max=64"`
	FirstName  string `json:"first_name" validate:"required,notblank,max=120"`
	LastName   string `json:"last_name" validate:"required,notblank,max=120"`
	Phone      string `json:"phone" validate:"required,phone"`
	Email      string `json:"email" validate:"required,email,max=255"`
}

// UpdateClientRequest patches customer details through an enrollment.
type UpdateClientRequest struct {
	FirstName *string `json:"first_name" validate:"omitempty,notblank,max=120"`
	LastName  *string `json:"last_name" validate:"omitempty,notblank,max=120"`
	Phone     *string `json:"phone" validate:"omitempty,phone"`
	Email     *string `json:"email" validate:"omitempty,email,max=255"`
}

// Empty reports whether the patch changes nothing.
func (r *UpdateClientRequest) Empty() bool {
	return r.FirstName == nil && r.LastName == nil && r.Phone == nil && r.Email == nil
}

// RegisterResult is returned by the public enrollment form.
type RegisterResult struct {
	EnrollmentID string `json:"enrollment_id"`
	LocationID   string `json:"location_id"`
	Points       int    `json:"points"`
	Created      bool   `json:"created"`
	SignupGift   string `json:"signup_gift,omitempty"`
}
