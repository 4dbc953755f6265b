package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alignperks/loyalty-portal/internal/model"
	"github.com/alignperks/loyalty-portal/internal/service"
	"github.com/alignperks/loyalty-portal/pkg/database"
)

const rewardColumns = `id, location_id, name, image_url, points_required, type, is_enabled, is_undeletable, created_at, updated_at`

// RewardRepository provides data access for a location's reward catalog.
type RewardRepository struct {
	pool database.TxQuerier
}

// NewRewardRepository creates a new RewardRepository with the given pool.
func NewRewardRepository(pool *pgxpool.Pool) *RewardRepository {
	return &RewardRepository{pool: pool}
}

// NewRewardRepositoryWithPool creates a new RewardRepository with a custom pool interface.
// This is primarily used for testing.
func NewRewardRepositoryWithPool(pool database.TxQuerier) *RewardRepository {
	return &RewardRepository{pool: pool}
}

func scanReward(row pgx.Row) (*model.RewardItem, error) {
	var item model.RewardItem
	var rewardType string
	err := row.Scan(
		&item.ID,
		&item.LocationID,
		&item.Name,
		&item.ImageURL,
		&item.PointsRequired,
		&rewardType,
		&item.IsEnabled,
		&item.IsUndeletable,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	item.Type = model.RewardType(rewardType)
	return &item, nil
}

// ListByLocation returns the location's catalog, sign-up gift first.
// With enabledOnly, disabled rewards are left out.
func (r *RewardRepository) ListByLocation(ctx context.Context, locationID string, enabledOnly bool) ([]model.RewardItem, error) {
	query := `SELECT ` + rewardColumns + ` FROM reward_items WHERE location_id = $1`
	if enabledOnly {
		query += ` AND is_enabled`
	}
	query += ` ORDER BY (type = 'SIGNUP_GIFT') DESC, created_at`

	rows, err := r.pool.Query(ctx, query, locationID)
	if err != nil {
		return nil, fmt.Errorf("list rewards for location %s: %w", locationID, err)
	}
	defer rows.Close()

	items := []model.RewardItem{}
	for rows.Next() {
		item, err := scanReward(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reward: %w", err)
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reward rows: %w", err)
	}
	return items, nil
}

// GetByID retrieves a reward by id.
// Returns nil, nil if the reward is not found.
func (r *RewardRepository) GetByID(ctx context.Context, id string) (*model.RewardItem, error) {
	item, err := scanReward(r.pool.QueryRow(ctx, `SELECT `+rewardColumns+` FROM reward_items WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get reward %s: %w", id, err)
	}
	return item, nil
}

// Insert creates a reward and fills in its timestamps.
func (r *RewardRepository) Insert(ctx context.Context, item *model.RewardItem) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO reward_items (id, location_id, name, image_url, points_required, type, is_enabled, is_undeletable)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING created_at, updated_at`,
		item.ID, item.LocationID, item.Name, item.ImageURL, item.PointsRequired,
		string(item.Type), item.IsEnabled, item.IsUndeletable,
	).Scan(&item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		if database.PgErrorCode(err) == database.CodeForeignKey {
			return service.ErrNotFound
		}
		return fmt.Errorf("insert reward: %w", err)
	}
	return nil
}

// InsertSignupGiftIfMissing creates the location's sign-up gift unless one already exists.
// Safe to call concurrently; the partial unique index keeps it to one per location.
func (r *RewardRepository) InsertSignupGiftIfMissing(ctx context.Context, id, locationID, name string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO reward_items (id, location_id, name, points_required, type, is_enabled, is_undeletable)
		 VALUES ($1, $2, $3, NULL, 'SIGNUP_GIFT', TRUE, TRUE)
		 ON CONFLICT (location_id) WHERE type = 'SIGNUP_GIFT' DO NOTHING`,
		id, locationID, name)
	if err != nil {
		return fmt.Errorf("ensure signup gift for location %s: %w", locationID, err)
	}
	return nil
}

// FindSignupGift returns the location's sign-up gift using q, which may be a transaction.
// A nil q reads through the repository's pool.
// Returns nil, nil if the location has none yet.
func (r *RewardRepository) FindSignupGift(ctx context.Context, q database.TxQuerier, locationID string) (*model.RewardItem, error) {
	if q == nil {
		q = r.pool
	}
	item, err := scanReward(q.QueryRow(ctx,
		`SELECT `+rewardColumns+` FROM reward_items WHERE location_id = $1 AND type = 'SIGNUP_GIFT'`, locationID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find signup gift for location %s: %w", locationID, err)
	}
	return item, nil
}

// Update writes the mutable fields of the reward.
func (r *RewardRepository) Update(ctx context.Context, item *model.RewardItem) error {
	err := r.pool.QueryRow(ctx,
		`UPDATE reward_items
		 SET name = $2, image_url = $3, points_required = $4, is_enabled = $5, updated_at = NOW()
		 WHERE id = $1
		 RETURNING updated_at`,
		item.ID, item.Name, item.ImageURL, item.PointsRequired, item.IsEnabled,
	).Scan(&item.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return service.ErrNotFound
		}
		return fmt.Errorf("update reward %s: %w", item.ID, err)
	}
	return nil
}

// Delete removes a standard reward. Protected rows are never matched.
func (r *RewardRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM reward_items WHERE id = $1 AND type = 'STANDARD' AND NOT is_undeletable`, id)
	if err != nil {
		return fmt.Errorf("delete reward %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return service.ErrNotFound
	}
	return nil
}
