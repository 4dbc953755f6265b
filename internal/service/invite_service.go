package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/alignperks/loyalty-portal/internal/model"
)

const (
	// DefaultInviteTTL is how long an invite stays open when neither the caller nor config say otherwise.
	DefaultInviteTTL = 7 * 24 * time.Hour

	maxInviteCodeAttempts = 5
)

// InviteService issues and redeems the codes that bring new staff onto a location.
type InviteService struct {
	pool      TxBeginner
	invites   InviteRepositoryInterface
	locations LocationRepositoryInterface
	access    AccessRepositoryInterface
	ttl       time.Duration
	now       func() time.Time
	newCode   func() (string, error)
}

// NewInviteService creates a new InviteService. A non-positive ttl falls back to DefaultInviteTTL.
func NewInviteService(
	pool TxBeginner,
	invites InviteRepositoryInterface,
	locations LocationRepositoryInterface,
	access AccessRepositoryInterface,
	ttl time.Duration,
) *InviteService {
	if ttl <= 0 {
		ttl = DefaultInviteTTL
	}
	return &InviteService{
		pool:      pool,
		invites:   invites,
		locations: locations,
		access:    access,
		ttl:       ttl,
		now:       time.Now,
		newCode:   newInviteCode,
	}
}

// Create issues an invite to a location the caller is scoped to.
// Returns:
//   - ErrInvalidInput if the requested expiry is not in the future
//   - ErrForbidden if the caller is not scoped to the location
//   - ErrInviteCodeTaken if no free code was found
func (s *InviteService) Create(ctx context.Context, userID string, req *model.CreateInviteRequest) (*model.Invite, error) {
	if req == nil || req.LocationID == "" {
		return nil, ErrInvalidInput
	}
	now := s.now()
	expiresAt := now.Add(s.ttl)
	if req.ExpiresAt != nil {
		if !req.ExpiresAt.After(now) {
			return nil, ErrInvalidInput
		}
		expiresAt = *req.ExpiresAt
	}

	if err := requireAccess(ctx, s.access, userID, req.LocationID); err != nil {
		return nil, err
	}
	loc, err := s.locations.GetByID(ctx, req.LocationID)
	if err != nil {
		return nil, fmt.Errorf("get location: %w", err)
	}
	if loc == nil {
		return nil, ErrNotFound
	}

	for attempt := 1; attempt <= maxInviteCodeAttempts; attempt++ {
		code, err := s.newCode()
		if err != nil {
			return nil, fmt.Errorf("generate invite code: %w", err)
		}
		inv := &model.Invite{
			ID:           uuid.NewString(),
			Code:         code,
			LocationID:   loc.ID,
			LocationName: loc.Name,
			CreatedBy:    userID,
			ExpiresAt:    expiresAt,
		}
		err = s.invites.Insert(ctx, inv)
		if errors.Is(err, ErrInviteCodeTaken) {
			log.Warn().Int("attempt", attempt).Msg("invite code collision, retrying")
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("insert invite: %w", err)
		}

		log.Info().
			Str("invite_id", inv.ID).
			Str("location_id", inv.LocationID).
			Str("created_by", userID).
			Time("expires_at", expiresAt).
			Msg("invite created")
		return inv, nil
	}
	return nil, fmt.Errorf("no free invite code after %d attempts: %w", maxInviteCodeAttempts, ErrInviteCodeTaken)
}

// List returns the open invites of every location the caller is scoped to,
// or of one location when locationID is set.
// Returns ErrForbidden if locationID is set and the caller is not scoped to it.
func (s *InviteService) List(ctx context.Context, userID, locationID string) ([]model.Invite, error) {
	if userID == "" {
		return nil, ErrForbidden
	}
	ids, err := s.access.LocationIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list user locations: %w", err)
	}
	if locationID != "" {
		if !slices.Contains(ids, locationID) {
			return nil, ErrForbidden
		}
		ids = []string{locationID}
	}
	if len(ids) == 0 {
		return []model.Invite{}, nil
	}
	return s.invites.ListOpen(ctx, ids, s.now())
}

// Check reports whether a code can still be accepted, without consuming it.
// Returns:
//   - ErrNotFound if the code is unknown
//   - ErrInviteUsed if it was accepted already
//   - ErrInviteExpired if it is past its expiry
func (s *InviteService) Check(ctx context.Context, code string) (*model.InviteCheck, error) {
	code = normalizeInviteCode(code)
	if code == "" {
		return nil, ErrInvalidInput
	}
	inv, err := s.invites.GetByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("get invite: %w", err)
	}
	if inv == nil {
		return nil, ErrNotFound
	}
	if err := s.usable(inv); err != nil {
		return nil, err
	}
	return &model.InviteCheck{Valid: true, LocationName: inv.LocationName, ExpiresAt: inv.ExpiresAt}, nil
}

// Accept scopes the caller to the invite's location and consumes the invite in one transaction.
// The invite row stays locked until commit, so two users racing for one code cannot both win.
// Returns:
//   - ErrForbidden if there is no caller identity
//   - ErrNotFound if the code is unknown
//   - ErrInviteUsed if it was accepted already
//   - ErrInviteExpired if it is past its expiry
func (s *InviteService) Accept(ctx context.Context, userID, code string) (*model.InviteAcceptance, error) {
	if userID == "" {
		return nil, ErrForbidden
	}
	code = normalizeInviteCode(code)
	if code == "" {
		return nil, ErrInvalidInput
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	inv, err := s.invites.GetForUpdate(ctx, tx, code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get invite for update: %w", err)
	}
	if err := s.usable(inv); err != nil {
		return nil, err
	}

	if err := s.access.Grant(ctx, tx, userID, inv.LocationID); err != nil {
		return nil, fmt.Errorf("grant access: %w", err)
	}
	if err := s.invites.MarkUsed(ctx, tx, inv.ID, userID, s.now()); err != nil {
		if errors.Is(err, ErrInviteUsed) {
			return nil, ErrInviteUsed
		}
		return nil, fmt.Errorf("mark invite used: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	log.Info().
		Str("invite_id", inv.ID).
		Str("location_id", inv.LocationID).
		Str("user_id", userID).
		Msg("invite accepted")

	return &model.InviteAcceptance{LocationID: inv.LocationID, LocationName: inv.LocationName}, nil
}

func (s *InviteService) usable(inv *model.Invite) error {
	if inv.Used() {
		return ErrInviteUsed
	}
	if inv.Expired(s.now()) {
		return ErrInviteExpired
	}
	return nil
}

// normalizeInviteCode accepts codes typed in lower case or with surrounding spaces.
func normalizeInviteCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
