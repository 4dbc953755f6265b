package service

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/alignperks/loyalty-portal/internal/model"
)

var hundred = decimal.NewFromInt(100)

// LedgerService credits points for purchases.
type LedgerService struct {
	pool        TxBeginner
	enrollments EnrollmentRepositoryInterface
	purchases   PurchaseRepositoryInterface
	access      AccessRepositoryInterface
	syncer      Syncer
	recorder    Recorder
}

// NewLedgerService creates a new LedgerService. A nil recorder disables metrics.
func NewLedgerService(
	pool TxBeginner,
	enrollments EnrollmentRepositoryInterface,
	purchases PurchaseRepositoryInterface,
	access AccessRepositoryInterface,
	syncer Syncer,
	recorder Recorder,
) *LedgerService {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &LedgerService{
		pool:        pool,
		enrollments: enrollments,
		purchases:   purchases,
		access:      access,
		syncer:      syncer,
		recorder:    recorder,
	}
}

// ConvertAmount turns a purchase amount into stored cents and earned points.
// One point is earned per whole currency unit; fractions are discarded.
func ConvertAmount(amount decimal.Decimal) (cents int64, points int, err error) {
	if !amount.IsPositive() {
		return 0, 0, ErrInvalidAmount
	}
	cents = amount.Mul(hundred).Round(0).IntPart()
	if cents <= 0 {
		return 0, 0, ErrInvalidAmount
	}
	whole := amount.Floor()
	if whole.GreaterThan(decimal.NewFromInt(math.MaxInt32)) {
		return 0, 0, ErrInvalidAmount
	}
	return cents, int(whole.IntPart()), nil
}

// AddPoints records a purchase on the enrollment and credits its balance.
// The purchase log and the balance change commit together or not at all.
// Returns:
//   - ErrInvalidAmount if the amount is missing, non-positive or rounds to zero cents
//   - ErrNotFound if the enrollment does not exist
//   - ErrForbidden if the caller is not scoped to the enrollment's location
func (s *LedgerService) AddPoints(ctx context.Context, userID string, req *model.AddPointsRequest) (*model.AddPointsResponse, error) {
	if req == nil || req.Amount == nil {
		return nil, ErrInvalidAmount
	}
	cents, points, err := ConvertAmount(*req.Amount)
	if err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	enrollment, err := s.enrollments.GetForUpdate(ctx, tx, req.EnrollmentID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get enrollment for update: %w", err)
	}

	if err := requireAccess(ctx, s.access, userID, enrollment.LocationID); err != nil {
		return nil, err
	}

	purchase := &model.PurchaseLog{
		ID:           uuid.NewString(),
		EnrollmentID: enrollment.ID,
		AmountCents:  cents,
		PointsAdded:  points,
	}
	if err := s.purchases.Insert(ctx, tx, purchase); err != nil {
		return nil, fmt.Errorf("insert purchase: %w", err)
	}

	balance, err := s.enrollments.AddPoints(ctx, tx, enrollment.ID, points)
	if err != nil {
		return nil, fmt.Errorf("add points: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	s.recorder.PointsAccrued(points)
	log.Info().
		Str("enrollment_id", enrollment.ID).
		Int64("amount_cents", cents).
		Int("points_added", points).
		Int("balance", balance).
		Msg("points accrued")

	s.syncer.PushBalance(enrollment.ContactID(), balance)

	return &model.AddPointsResponse{Success: true, PointsAdded: points, NewPoints: balance}, nil
}

// History returns the enrollment's purchases for staff scoped to its location.
func (s *LedgerService) History(ctx context.Context, userID, enrollmentID string) ([]model.PurchaseLog, error) {
	enrollment, err := s.enrollments.GetByID(ctx, enrollmentID)
	if err != nil {
		return nil, fmt.Errorf("get enrollment: %w", err)
	}
	if enrollment == nil {
		return nil, ErrNotFound
	}
	if err := requireAccess(ctx, s.access, userID, enrollment.LocationID); err != nil {
		return nil, err
	}
	return s.purchases.ListByEnrollment(ctx, enrollmentID)
}
