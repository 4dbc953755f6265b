package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alignperks/loyalty-portal/internal/model"
	"github.com/alignperks/loyalty-portal/internal/service"
	"github.com/alignperks/loyalty-portal/pkg/database"
)

// InviteRepository provides data access for staff invites.
type InviteRepository struct {
	pool database.TxQuerier
}

// NewInviteRepository creates a new InviteRepository with the given pool.
func NewInviteRepository(pool *pgxpool.Pool) *InviteRepository {
	return &InviteRepository{pool: pool}
}

// NewInviteRepositoryWithPool creates a new InviteRepository with a custom pool interface.
// This is primarily used for testing.
func NewInviteRepositoryWithPool(pool database.TxQuerier) *InviteRepository {
	return &InviteRepository{pool: pool}
}

// Insert stores a new invite.
// Returns service.ErrInviteCodeTaken if the code is already in use.
func (r *InviteRepository) Insert(ctx context.Context, inv *model.Invite) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO invites (id, code, location_id, created_by, expires_at)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING created_at`,
		inv.ID, inv.Code, inv.LocationID, inv.CreatedBy, inv.ExpiresAt,
	).Scan(&inv.CreatedAt)
	if err != nil {
		if database.PgErrorCode(err) == database.CodeUniqueViolation {
			return service.ErrInviteCodeTaken
		}
		return fmt.Errorf("insert invite: %w", err)
	}
	return nil
}

const inviteSelect = `
	SELECT i.id, i.code, i.location_id, l.name, i.created_by, i.created_at, i.expires_at, i.used_at, i.used_by
	FROM invites i
	JOIN locations l ON l.id = i.location_id`

func scanInvite(row pgx.Row) (*model.Invite, error) {
	var inv model.Invite
	err := row.Scan(
		&inv.ID, &inv.Code, &inv.LocationID, &inv.LocationName, &inv.CreatedBy,
		&inv.CreatedAt, &inv.ExpiresAt, &inv.UsedAt, &inv.UsedBy,
	)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// GetByCode loads an invite with its location name.
// Returns nil, nil if the code is unknown.
func (r *InviteRepository) GetByCode(ctx context.Context, code string) (*model.Invite, error) {
	inv, err := scanInvite(r.pool.QueryRow(ctx, inviteSelect+` WHERE i.code = $1`, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get invite by code: %w", err)
	}
	return inv, nil
}

// GetForUpdate loads the invite like GetByCode and locks it until the transaction ends.
// Returns service.ErrNotFound if the code is unknown.
func (r *InviteRepository) GetForUpdate(ctx context.Context, tx database.TxQuerier, code string) (*model.Invite, error) {
	inv, err := scanInvite(tx.QueryRow(ctx, inviteSelect+` WHERE i.code = $1 FOR UPDATE OF i`, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrNotFound
		}
		return nil, fmt.Errorf("get invite by code for update: %w", err)
	}
	return inv, nil
}

// MarkUsed stamps the invite as accepted by userID.
// Returns service.ErrInviteUsed if it was accepted already.
func (r *InviteRepository) MarkUsed(ctx context.Context, tx database.TxQuerier, id, userID string, at time.Time) error {
	tag, err := tx.Exec(ctx,
		`UPDATE invites SET used_at = $3, used_by = $2 WHERE id = $1 AND used_at IS NULL`, id, userID, at)
	if err != nil {
		return fmt.Errorf("mark invite %s used: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return service.ErrInviteUsed
	}
	return nil
}

// ListOpen returns the unused, unexpired invites of the given locations, newest first.
func (r *InviteRepository) ListOpen(ctx context.Context, locationIDs []string, now time.Time) ([]model.Invite, error) {
	query := inviteSelect + `
	WHERE i.location_id = ANY($1) AND i.used_at IS NULL AND i.expires_at > $2
	ORDER BY i.created_at DESC`

	rows, err := r.pool.Query(ctx, query, locationIDs, now)
	if err != nil {
		return nil, fmt.Errorf("list invites: %w", err)
	}
	defer rows.Close()

	invites := []model.Invite{}
	for rows.Next() {
		inv, err := scanInvite(rows)
		if err != nil {
			return nil, fmt.Errorf("scan invite: %w", err)
		}
		invites = append(invites, *inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate invite rows: %w", err)
	}
	return invites, nil
}
