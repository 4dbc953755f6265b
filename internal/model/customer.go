package model

import (
	"regexp"
	"strings"
	"time"
)

// Customer is one real person, identified by phone, regardless of how many locations they visit.
type Customer struct {
	ID        string    `json:"id"`
	PhoneE164 string    `json:"phone"`
	Email     *string   `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// DisplayName joins first and last name for staff-facing screens.
func (c *Customer) DisplayName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

var nonDigits = regexp.MustCompile(`\D+`)

// NormalizePhone canonicalises a user-entered phone number to E.164.
// Ten digits are treated as a North American number. Returns "" when invalid.
func NormalizePhone(raw string) string {
	digits := nonDigits.ReplaceAllString(raw, "")
	switch {
	case len(digits) == 10:
		return "+1" + digits
	case len(digits) >= 11 && len(digits) <= 15:
		return "+" + digits
	default:
		return ""
	}
}

// NormalizeEmail trims and lowercases an email; blank input yields nil.
func NormalizeEmail(raw string) *string {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return nil
	}
	return &email
}
