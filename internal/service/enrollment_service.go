package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/alignperks/loyalty-portal/internal/model"
)

const notifyTimeout = 10 * time.Second

// EnrollmentService manages customers and their per-location enrollments.
type EnrollmentService struct {
	pool          TxBeginner
	customers     CustomerRepositoryInterface
	enrollments   EnrollmentRepositoryInterface
	locations     LocationRepositoryInterface
	rewards       RewardRepositoryInterface
	access        AccessRepositoryInterface
	syncer        Syncer
	notifier      Notifier
	portalBaseURL string
}

// NewEnrollmentService creates a new EnrollmentService.
func NewEnrollmentService(
	pool TxBeginner,
	customers CustomerRepositoryInterface,
	enrollments EnrollmentRepositoryInterface,
	locations LocationRepositoryInterface,
	rewards RewardRepositoryInterface,
	access AccessRepositoryInterface,
	syncer Syncer,
	notifier Notifier,
	portalBaseURL string,
) *EnrollmentService {
	return &EnrollmentService{
		pool:          pool,
		customers:     customers,
		enrollments:   enrollments,
		locations:     locations,
		rewards:       rewards,
		access:        access,
		syncer:        syncer,
		notifier:      notifier,
		portalBaseURL: strings.TrimRight(portalBaseURL, "/"),
	}
}

type enrollInput struct {
	locationID string
	firstName  string
	lastName   string
	phone      string
	email      string
}

type enrollOutcome struct {
	customer   model.Customer
	enrollment *model.Enrollment
	created    bool
	giftName   string
}

// enroll upserts the customer by phone and enrolls them at the location in one transaction.
// An existing enrollment is returned untouched, balance included.
func (s *EnrollmentService) enroll(ctx context.Context, in enrollInput) (*enrollOutcome, error) {
	phone := model.NormalizePhone(in.phone)
	if phone == "" {
		return nil, ErrInvalidInput
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	customer := model.Customer{
		ID:        uuid.NewString(),
		PhoneE164: phone,
		Email:     model.NormalizeEmail(in.email),
		FirstName: strings.TrimSpace(in.firstName),
		LastName:  strings.TrimSpace(in.lastName),
	}
	if err := s.customers.UpsertByPhone(ctx, tx, &customer); err != nil {
		return nil, fmt.Errorf("upsert customer: %w", err)
	}

	enrollment, created, err := s.enrollments.Upsert(ctx, tx, uuid.NewString(), customer.ID, in.locationID)
	if err != nil {
		return nil, fmt.Errorf("upsert enrollment: %w", err)
	}

	gift, err := s.rewards.FindSignupGift(ctx, tx, in.locationID)
	if err != nil {
		return nil, fmt.Errorf("find signup gift: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	out := &enrollOutcome{customer: customer, enrollment: enrollment, created: created}
	// A disabled gift is not advertised in the welcome message.
	if gift != nil && gift.IsEnabled {
		out.giftName = gift.Name
	}
	return out, nil
}

// linkContact creates the CRM contact for enrollments that have none yet.
func (s *EnrollmentService) linkContact(out *enrollOutcome) {
	if out.enrollment.CRMContactID != nil {
		return
	}
	enrollmentID := out.enrollment.ID
	s.syncer.CreateContact(out.customer, func(ctx context.Context, contactID string) error {
		return s.enrollments.SetContactID(ctx, enrollmentID, contactID)
	})
}

// Register enrolls a customer through a location's public QR form and welcomes them by text.
// Returns ErrNotFound if the location does not exist or is inactive.
func (s *EnrollmentService) Register(ctx context.Context, req *model.RegisterRequest) (*model.RegisterResult, error) {
	if req == nil {
		return nil, ErrInvalidInput
	}

	loc, err := s.locations.GetByID(ctx, req.LocationID)
	if err != nil {
		return nil, fmt.Errorf("get location: %w", err)
	}
	if loc == nil || !loc.IsActive {
		return nil, ErrNotFound
	}

	out, err := s.enroll(ctx, enrollInput{
		locationID: loc.ID,
		firstName:  req.FirstName,
		lastName:   req.LastName,
		phone:      req.Phone,
		email:      req.Email,
	})
	if err != nil {
		return nil, err
	}

	s.linkContact(out)
	s.welcome(ctx, loc, out)

	return &model.RegisterResult{
		EnrollmentID: out.enrollment.ID,
		LocationID:   loc.ID,
		Points:       out.enrollment.CachedPoints,
		Created:      out.created,
		SignupGift:   out.giftName,
	}, nil
}

func (s *EnrollmentService) welcome(ctx context.Context, loc *model.Location, out *enrollOutcome) {
	var msg strings.Builder
	fmt.Fprintf(&msg, "Hi %s, welcome to %s rewards!", out.customer.FirstName, loc.Name)
	if out.giftName != "" {
		fmt.Fprintf(&msg, " Your sign-up gift is waiting: %s.", out.giftName)
	}
	if s.portalBaseURL != "" {
		fmt.Fprintf(&msg, " Check your points at %s/portal", s.portalBaseURL)
	}

	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()
	if err := s.notifier.Send(sendCtx, out.customer.PhoneE164, msg.String()); err != nil {
		log.Warn().Err(err).
			Str("enrollment_id", out.enrollment.ID).
			Msg("welcome message not delivered")
	}
}

// CreateClient enrolls a customer on behalf of staff scoped to the location.
// An existing enrollment for the same phone and location is returned instead of a new one.
func (s *EnrollmentService) CreateClient(ctx context.Context, userID string, req *model.CreateClientRequest) (*model.Client, error) {
	if req == nil {
		return nil, ErrInvalidInput
	}
	if err := requireAccess(ctx, s.access, userID, req.LocationID); err != nil {
		return nil, err
	}

	out, err := s.enroll(ctx, enrollInput{
		locationID: req.LocationID,
		firstName:  req.FirstName,
		lastName:   req.LastName,
		phone:      req.Phone,
		email:      req.Email,
	})
	if err != nil {
		return nil, err
	}

	s.linkContact(out)

	return &model.Client{
		EnrollmentID: out.enrollment.ID,
		LocationID:   out.enrollment.LocationID,
		Points:       out.enrollment.CachedPoints,
		Customer:     out.customer,
		EnrolledAt:   out.enrollment.CreatedAt,
	}, nil
}

// ListClients returns the location's clients, optionally filtered by a search term.
func (s *EnrollmentService) ListClients(ctx context.Context, userID, locationID, search string) ([]model.Client, error) {
	if err := requireAccess(ctx, s.access, userID, locationID); err != nil {
		return nil, err
	}
	return s.enrollments.ListClients(ctx, locationID, strings.TrimSpace(search))
}

// UpdateClient patches the customer behind an enrollment.
// Returns ErrPhoneInUse if the new phone belongs to another customer.
func (s *EnrollmentService) UpdateClient(ctx context.Context, userID, enrollmentID string, req *model.UpdateClientRequest) (*model.Client, error) {
	if req == nil || req.Empty() {
		return nil, ErrInvalidInput
	}

	client, err := s.enrollments.GetClient(ctx, enrollmentID)
	if err != nil {
		return nil, fmt.Errorf("get client: %w", err)
	}
	if client == nil {
		return nil, ErrNotFound
	}
	if err := requireAccess(ctx, s.access, userID, client.LocationID); err != nil {
		return nil, err
	}

	customer := client.Customer
	if req.FirstName != nil {
		customer.FirstName = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		customer.LastName = strings.TrimSpace(*req.LastName)
	}
	if req.Phone != nil {
		phone := model.NormalizePhone(*req.Phone)
		if phone == "" {
			return nil, ErrInvalidInput
		}
		customer.PhoneE164 = phone
	}
	if req.Email != nil {
		customer.Email = model.NormalizeEmail(*req.Email)
	}

	if err := s.customers.Update(ctx, &customer); err != nil {
		return nil, err
	}
	client.Customer = customer
	return client, nil
}

// Unenroll removes an enrollment with its history and drops the linked CRM contact.
func (s *EnrollmentService) Unenroll(ctx context.Context, userID, enrollmentID string) error {
	enrollment, err := s.enrollments.GetByID(ctx, enrollmentID)
	if err != nil {
		return fmt.Errorf("get enrollment: %w", err)
	}
	if enrollment == nil {
		return ErrNotFound
	}
	if err := requireAccess(ctx, s.access, userID, enrollment.LocationID); err != nil {
		return err
	}
	if err := s.enrollments.Delete(ctx, enrollmentID); err != nil {
		return err
	}
	s.syncer.DeleteContact(enrollment.ContactID())
	return nil
}

// ListCustomerEnrollments returns every enrollment the customer holds.
func (s *EnrollmentService) ListCustomerEnrollments(ctx context.Context, customerID string) ([]model.CustomerEnrollment, error) {
	return s.enrollments.ListForCustomer(ctx, customerID)
}

// GetEnrollment returns one of the customer's own enrollments.
// Enrollments of other customers are reported as ErrNotFound.
func (s *EnrollmentService) GetEnrollment(ctx context.Context, customerID, enrollmentID string) (*model.CustomerEnrollment, error) {
	enrollments, err := s.enrollments.ListForCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	for i := range enrollments {
		if enrollments[i].EnrollmentID == enrollmentID {
			return &enrollments[i], nil
		}
	}
	return nil, ErrNotFound
}
