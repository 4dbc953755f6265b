package crm

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/alignperks/loyalty-portal/internal/config"
	"github.com/alignperks/loyalty-portal/internal/model"
)

// RedeemedTag is added to a contact after each completed redemption.
const RedeemedTag = "loyalty-redeemed-reward"

// API is the set of CRM calls the Syncer makes.
type API interface {
	UpdateContactField(ctx context.Context, contactID, fieldID string, value any) error
	AddNote(ctx context.Context, contactID, text string) error
	AddTag(ctx context.Context, contactID string, tags []string) error
	CreateContact(ctx context.Context, contact Contact) (string, error)
	DeleteContact(ctx context.Context, contactID string) error
}

// FailureCounter is told about every push that failed or was dropped.
type FailureCounter interface {
	SyncFailed(operation string)
}

// Syncer runs CRM pushes in the background after the ledger has committed.
// Pushes are attempted once, each under its own timeout, with bounded concurrency.
// Nothing a push does is ever reported back to the caller.
type Syncer struct {
	api      API
	fieldID  string
	enabled  bool
	timeout  time.Duration
	failures FailureCounter
	group    errgroup.Group
}

// NewSyncer creates a Syncer. When the CRM is not configured every push is skipped.
func NewSyncer(api API, cfg config.CRMConfig, failures FailureCounter) *Syncer {
	s := &Syncer{
		api:      api,
		fieldID:  cfg.PointsFieldID,
		enabled:  cfg.Enabled() && api != nil,
		timeout:  time.Duration(cfg.Timeout) * time.Second,
		failures: failures,
	}
	if s.timeout <= 0 {
		s.timeout = 5 * time.Second
	}
	limit := cfg.MaxInflight
	if limit < 1 {
		limit = 1
	}
	s.group.SetLimit(limit)

	if !s.enabled {
		log.Info().Msg("CRM sync disabled: access token or points field id not configured")
	}
	return s
}

// PushBalance writes the enrollment's new balance to the contact's points field.
func (s *Syncer) PushBalance(contactID string, balance int) {
	if !s.ready("update_contact_field", contactID) {
		return
	}
	s.spawn("update_contact_field", contactID, func(ctx context.Context) error {
		return s.api.UpdateContactField(ctx, contactID, s.fieldID, balance)
	})
}

// RedemptionCompleted pushes the balance, an audit note and the redeemed tag.
// The three calls are independent; one failing does not stop the others.
func (s *Syncer) RedemptionCompleted(contactID string, balance int, note string) {
	s.PushBalance(contactID, balance)
	if !s.ready("add_note", contactID) {
		return
	}
	s.spawn("add_note", contactID, func(ctx context.Context) error {
		return s.api.AddNote(ctx, contactID, note)
	})
	s.spawn("add_tag", contactID, func(ctx context.Context) error {
		return s.api.AddTag(ctx, contactID, []string{RedeemedTag})
	})
}

// CreateContact creates a contact for the customer and hands the new id to linked.
func (s *Syncer) CreateContact(customer model.Customer, linked func(ctx context.Context, contactID string) error) {
	if !s.enabled {
		return
	}
	contact := Contact{
		FirstName: customer.FirstName,
		LastName:  customer.LastName,
		Phone:     customer.PhoneE164,
	}
	if customer.Email != nil {
		contact.Email = *customer.Email
	}
	s.spawn("create_contact", "", func(ctx context.Context) error {
		contactID, err := s.api.CreateContact(ctx, contact)
		if err != nil {
			return err
		}
		if linked == nil {
			return nil
		}
		if err := linked(ctx, contactID); err != nil {
			log.Error().Err(err).Str("contact_id", contactID).Msg("failed to store CRM contact id")
		}
		return nil
	})
}

// DeleteContact removes the contact from the CRM.
func (s *Syncer) DeleteContact(contactID string) {
	if !s.ready("delete_contact", contactID) {
		return
	}
	s.spawn("delete_contact", contactID, func(ctx context.Context) error {
		return s.api.DeleteContact(ctx, contactID)
	})
}

// Wait blocks until every push in flight has finished.
func (s *Syncer) Wait() {
	_ = s.group.Wait()
}

func (s *Syncer) ready(operation, contactID string) bool {
	if !s.enabled {
		return false
	}
	if contactID == "" {
		log.Debug().Str("operation", operation).Msg("CRM sync skipped: enrollment has no contact id")
		return false
	}
	return true
}

// spawn runs fn in the bounded group with a timeout detached from any request context.
// When the group is saturated the push is dropped.
func (s *Syncer) spawn(operation, contactID string, fn func(ctx context.Context) error) {
	started := s.group.TryGo(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		if err := fn(ctx); err != nil {
			s.fail(operation)
			log.Warn().Err(err).
				Str("operation", operation).
				Str("contact_id", contactID).
				Msg("CRM sync failed")
		}
		// Errors are logged and counted above; the group only bounds concurrency.
		return nil
	})
	if !started {
		s.fail(operation)
		log.Warn().
			Str("operation", operation).
			Str("contact_id", contactID).
			Msg("CRM sync dropped: too many pushes in flight")
	}
}

func (s *Syncer) fail(operation string) {
	if s.failures != nil {
		s.failures.SyncFailed(operation)
	}
}
