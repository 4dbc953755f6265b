package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/alignperks/loyalty-portal/internal/model"
)

// maxPoints is the largest balance an enrollment can hold (int4 column).
const maxPoints = math.MaxInt32

// Redemption outcomes reported to the Recorder.
const (
	OutcomeCompleted           = "completed"
	OutcomeInsufficientBalance = "insufficient_balance"
	OutcomeAlreadyConsumed     = "already_consumed"
	OutcomeInvalidOrExpired    = "invalid_or_expired"
	OutcomeForbidden           = "forbidden"
	OutcomeError               = "error"
)

// RedemptionService implements the request, verify and commit steps of spending points.
type RedemptionService struct {
	pool        TxBeginner
	enrollments EnrollmentRepositoryInterface
	rewards     RewardRepositoryInterface
	intents     RedemptionRepositoryInterface
	access      AccessRepositoryInterface
	syncer      Syncer
	recorder    Recorder
	ttl         time.Duration
	now         func() time.Time
}

// NewRedemptionService creates a new RedemptionService. A zero ttl issues intents that never expire.
func NewRedemptionService(
	pool TxBeginner,
	enrollments EnrollmentRepositoryInterface,
	rewards RewardRepositoryInterface,
	intents RedemptionRepositoryInterface,
	access AccessRepositoryInterface,
	syncer Syncer,
	recorder Recorder,
	ttl time.Duration,
) *RedemptionService {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &RedemptionService{
		pool:        pool,
		enrollments: enrollments,
		rewards:     rewards,
		intents:     intents,
		access:      access,
		syncer:      syncer,
		recorder:    recorder,
		ttl:         ttl,
		now:         time.Now,
	}
}

// Request reserves a reward for the customer and returns the token staff will scan.
// The balance is only pre-checked here; it is debited at commit.
// Returns:
//   - ErrInvalidInput if the quantity is not positive
//   - ErrNotFound if the enrollment is not the customer's or the reward is not in its location
//   - ErrRewardNotRedeemable if the reward is disabled or has no price
//   - ErrInsufficientBalance if the balance does not cover price times quantity,
//     including totals too large for any balance to cover
func (s *RedemptionService) Request(ctx context.Context, customerID string, req *model.RequestRedemptionRequest) (*model.RedemptionTicket, error) {
	if req == nil || req.Quantity == nil || *req.Quantity < 1 {
		return nil, ErrInvalidInput
	}
	qty := *req.Quantity

	enrollment, err := s.enrollments.GetByID(ctx, req.EnrollmentID)
	if err != nil {
		return nil, fmt.Errorf("get enrollment: %w", err)
	}
	if enrollment == nil || enrollment.CustomerID != customerID {
		return nil, ErrNotFound
	}

	reward, err := s.rewards.GetByID(ctx, req.RewardItemID)
	if err != nil {
		return nil, fmt.Errorf("get reward: %w", err)
	}
	if reward == nil || reward.LocationID != enrollment.LocationID {
		return nil, ErrNotFound
	}
	if !reward.Redeemable() {
		return nil, ErrRewardNotRedeemable
	}

	price := *reward.PointsRequired
	if price > 0 && qty > maxPoints/price {
		return nil, ErrInsufficientBalance
	}
	total := price * qty
	if enrollment.CachedPoints < total {
		return nil, ErrInsufficientBalance
	}

	token, err := newToken()
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	intent := &model.RedemptionIntent{
		ID:           uuid.NewString(),
		Token:        token,
		EnrollmentID: enrollment.ID,
		Items: []model.RedemptionItem{{
			RewardItemID: reward.ID,
			Name:         reward.Name,
			PointsEach:   *reward.PointsRequired,
			Qty:          qty,
			PointsTotal:  total,
		}},
		PointsSpent: total,
	}
	if s.ttl > 0 {
		expires := s.now().Add(s.ttl)
		intent.ExpiresAt = &expires
	}

	if err := s.intents.Insert(ctx, intent); err != nil {
		return nil, fmt.Errorf("insert intent: %w", err)
	}

	return &model.RedemptionTicket{
		RedemptionIntentID: intent.ID,
		Token:              intent.Token,
		PointsSpent:        intent.PointsSpent,
		ExpiresAt:          intent.ExpiresAt,
	}, nil
}

// Verify shows staff what a token will redeem without changing anything.
// Returns ErrInvalidOrExpired if the token is unknown, expired or already used,
// and ErrForbidden if the caller is not scoped to the intent's location.
func (s *RedemptionService) Verify(ctx context.Context, userID, token string) (*model.RedemptionPreview, error) {
	if token == "" {
		return nil, ErrInvalidOrExpired
	}

	rc, err := s.intents.GetContextByToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("get intent: %w", err)
	}
	if rc == nil {
		return nil, ErrInvalidOrExpired
	}
	if err := requireAccess(ctx, s.access, userID, rc.LocationID); err != nil {
		return nil, err
	}
	if rc.Intent.Consumed() || rc.Intent.Expired(s.now()) {
		return nil, ErrInvalidOrExpired
	}

	return &model.RedemptionPreview{
		RedemptionIntentID: rc.Intent.ID,
		CustomerName:       rc.CustomerName,
		RewardName:         rc.Intent.PrimaryItem().Name,
		PointsSpent:        rc.Intent.PointsSpent,
		CurrentPoints:      rc.Balance,
		Items:              rc.Intent.Items,
	}, nil
}

// Complete consumes the token and debits the enrollment in one transaction.
// The intent and the enrollment row stay locked until commit, so concurrent
// completions of the same token or the same balance are serialised.
// Returns:
//   - ErrInvalidOrExpired if the token is unknown or expired
//   - ErrForbidden if the caller is not scoped to the intent's location
//   - ErrAlreadyConsumed if the token was already redeemed
//   - ErrInsufficientBalance if the balance no longer covers the intent
func (s *RedemptionService) Complete(ctx context.Context, userID, token string) (*model.RedemptionReceipt, error) {
	receipt, rc, err := s.complete(ctx, userID, token)
	s.recorder.RedemptionOutcome(outcomeOf(err))
	if err != nil {
		return nil, err
	}

	item := rc.Intent.PrimaryItem()
	s.recorder.PointsRedeemed(rc.Intent.PointsSpent)
	log.Info().
		Str("redemption_intent_id", rc.Intent.ID).
		Str("enrollment_id", rc.Intent.EnrollmentID).
		Int("points_spent", rc.Intent.PointsSpent).
		Int("balance", receipt.NewPoints).
		Msg("redemption completed")

	contactID := ""
	if rc.CRMContactID != nil {
		contactID = *rc.CRMContactID
	}
	note := fmt.Sprintf("Redeemed %d of %s for %d points.", item.Qty, item.Name, rc.Intent.PointsSpent)
	s.syncer.RedemptionCompleted(contactID, receipt.NewPoints, note)

	return receipt, nil
}

func (s *RedemptionService) complete(ctx context.Context, userID, token string) (*model.RedemptionReceipt, *model.RedemptionContext, error) {
	if token == "" {
		return nil, nil, ErrInvalidOrExpired
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rc, err := s.intents.GetForUpdate(ctx, tx, token)
	if err != nil {
		if errors.Is(err, ErrInvalidOrExpired) {
			return nil, nil, ErrInvalidOrExpired
		}
		return nil, nil, fmt.Errorf("get intent for update: %w", err)
	}

	if err := requireAccess(ctx, s.access, userID, rc.LocationID); err != nil {
		return nil, nil, err
	}

	now := s.now()
	if rc.Intent.Consumed() {
		return nil, nil, ErrAlreadyConsumed
	}
	if rc.Intent.Expired(now) {
		return nil, nil, ErrInvalidOrExpired
	}
	if rc.Balance < rc.Intent.PointsSpent {
		return nil, nil, ErrInsufficientBalance
	}

	balance, err := s.enrollments.DebitPoints(ctx, tx, rc.Intent.EnrollmentID, rc.Intent.PointsSpent)
	if err != nil {
		if errors.Is(err, ErrInsufficientBalance) {
			return nil, nil, ErrInsufficientBalance
		}
		return nil, nil, fmt.Errorf("debit points: %w", err)
	}

	if err := s.intents.MarkUsed(ctx, tx, rc.Intent.ID, now); err != nil {
		if errors.Is(err, ErrAlreadyConsumed) {
			return nil, nil, ErrAlreadyConsumed
		}
		return nil, nil, fmt.Errorf("mark used: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("commit: %w", err)
	}

	rc.Intent.UsedAt = &now
	return &model.RedemptionReceipt{
		Success:      true,
		CustomerName: rc.CustomerName,
		RewardName:   rc.Intent.PrimaryItem().Name,
		PointsSpent:  rc.Intent.PointsSpent,
		NewPoints:    balance,
	}, rc, nil
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return OutcomeCompleted
	case errors.Is(err, ErrInsufficientBalance):
		return OutcomeInsufficientBalance
	case errors.Is(err, ErrAlreadyConsumed):
		return OutcomeAlreadyConsumed
	case errors.Is(err, ErrInvalidOrExpired):
		return OutcomeInvalidOrExpired
	case errors.Is(err, ErrForbidden):
		return OutcomeForbidden
	default:
		return OutcomeError
	}
}
