package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alignperks/loyalty-portal/internal/model"
	"github.com/alignperks/loyalty-portal/internal/service"
	"github.com/alignperks/loyalty-portal/pkg/database"
)

// RedemptionRepository provides data access for redemption intents.
type RedemptionRepository struct {
	pool database.TxQuerier
}

// NewRedemptionRepository creates a new RedemptionRepository with the given pool.
func NewRedemptionRepository(pool *pgxpool.Pool) *RedemptionRepository {
	return &RedemptionRepository{pool: pool}
}

// NewRedemptionRepositoryWithPool creates a new RedemptionRepository with a custom pool interface.
// This is primarily used for testing.
func NewRedemptionRepositoryWithPool(pool database.TxQuerier) *RedemptionRepository {
	return &RedemptionRepository{pool: pool}
}

// Insert stores a new pending intent. The item snapshot is written as JSONB.
func (r *RedemptionRepository) Insert(ctx context.Context, intent *model.RedemptionIntent) error {
	items, err := json.Marshal(intent.Items)
	if err != nil {
		return fmt.Errorf("marshal redemption items: %w", err)
	}

	err = r.pool.QueryRow(ctx,
		`INSERT INTO redemption_intents (id, token, enrollment_id, items, points_spent, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING created_at`,
		intent.ID, intent.Token, intent.EnrollmentID, items, intent.PointsSpent, intent.ExpiresAt,
	).Scan(&intent.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert redemption intent: %w", err)
	}
	return nil
}

const contextSelect = `
	SELECT ri.id, ri.token, ri.enrollment_id, ri.items, ri.points_spent, ri.created_at, ri.expires_at, ri.used_at,
	       e.location_id, l.name, c.first_name, c.last_name, e.cached_points, e.crm_contact_id
	FROM redemption_intents ri
	JOIN enrollments e ON e.id = ri.enrollment_id
	JOIN locations l ON l.id = e.location_id
	JOIN customers c ON c.id = e.customer_id
	WHERE ri.token = $1`

func scanContext(row pgx.Row) (*model.RedemptionContext, error) {
	var rc model.RedemptionContext
	var items []byte
	var firstName, lastName string
	err := row.Scan(
		&rc.Intent.ID, &rc.Intent.Token, &rc.Intent.EnrollmentID, &items, &rc.Intent.PointsSpent,
		&rc.Intent.CreatedAt, &rc.Intent.ExpiresAt, &rc.Intent.UsedAt,
		&rc.LocationID, &rc.LocationName, &firstName, &lastName, &rc.Balance, &rc.CRMContactID,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(items, &rc.Intent.Items); err != nil {
		return nil, fmt.Errorf("unmarshal redemption items: %w", err)
	}
	rc.CustomerName = (&model.Customer{FirstName: firstName, LastName: lastName}).DisplayName()
	return &rc, nil
}

// GetContextByToken loads an intent with its enrollment, location and customer.
// Returns nil, nil if the token is unknown.
func (r *RedemptionRepository) GetContextByToken(ctx context.Context, token string) (*model.RedemptionContext, error) {
	rc, err := scanContext(r.pool.QueryRow(ctx, contextSelect, token))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get redemption by token: %w", err)
	}
	return rc, nil
}

// GetForUpdate loads the intent like GetContextByToken while locking both the intent and its
// enrollment row until the transaction ends.
// Returns service.ErrInvalidOrExpired if the token is unknown.
func (r *RedemptionRepository) GetForUpdate(ctx context.Context, tx database.TxQuerier, token string) (*model.RedemptionContext, error) {
	rc, err := scanContext(tx.QueryRow(ctx, contextSelect+` FOR UPDATE OF ri, e`, token))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrInvalidOrExpired
		}
		return nil, fmt.Errorf("get redemption by token for update: %w", err)
	}
	return rc, nil
}

// MarkUsed stamps the intent as consumed.
// Returns service.ErrAlreadyConsumed if it was consumed already.
func (r *RedemptionRepository) MarkUsed(ctx context.Context, tx database.TxQuerier, id string, at time.Time) error {
	tag, err := tx.Exec(ctx,
		`UPDATE redemption_intents SET used_at = $2 WHERE id = $1 AND used_at IS NULL`, id, at)
	if err != nil {
		return fmt.Errorf("mark redemption %s used: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return service.ErrAlreadyConsumed
	}
	return nil
}

// DeleteExpired removes pending intents that expired before the cutoff and reports how many went.
// Consumed intents are history and are never removed.
func (r *RedemptionRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM redemption_intents WHERE used_at IS NULL AND expires_at IS NOT NULL AND expires_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("delete expired redemption intents: %w", err)
	}
	return tag.RowsAffected(), nil
}
