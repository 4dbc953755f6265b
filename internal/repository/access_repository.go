package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alignperks/loyalty-portal/pkg/database"
)

// AccessRepository manages which portal users may act on which locations.
type AccessRepository struct {
	pool database.TxQuerier
}

// NewAccessRepository creates a new AccessRepository with the given pool.
func NewAccessRepository(pool *pgxpool.Pool) *AccessRepository {
	return &AccessRepository{pool: pool}
}

// NewAccessRepositoryWithPool creates a new AccessRepository with a custom pool interface.
// This is primarily used for testing.
func NewAccessRepositoryWithPool(pool database.TxQuerier) *AccessRepository {
	return &AccessRepository{pool: pool}
}

// HasAccess reports whether the user is scoped to the location.
func (r *AccessRepository) HasAccess(ctx context.Context, userID, locationID string) (bool, error) {
	query := `SELECT 1 FROM user_locations WHERE user_id = $1 AND location_id = $2`

	var one int
	err := r.pool.QueryRow(ctx, query, userID, locationID).Scan(&one)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check access for user %s: %w", userID, err)
	}
	return true, nil
}

// LocationIDs returns the ids of every location the user may act on, oldest grant first.
func (r *AccessRepository) LocationIDs(ctx context.Context, userID string) ([]string, error) {
	query := `SELECT location_id FROM user_locations WHERE user_id = $1 ORDER BY created_at`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list locations for user %s: %w", userID, err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan location_id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user_locations rows: %w", err)
	}
	return ids, nil
}

// Grant scopes the user to the location, creating the portal user row if the gateway
// has not introduced it yet. Granting twice is a no-op.
func (r *AccessRepository) Grant(ctx context.Context, tx database.TxQuerier, userID, locationID string) error {
	if _, err := tx.Exec(ctx,
		`INSERT INTO portal_users (id) VALUES ($1) ON CONFLICT (id) DO NOTHING`, userID); err != nil {
		return fmt.Errorf("ensure portal user %s: %w", userID, err)
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO user_locations (user_id, location_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		userID, locationID); err != nil {
		return fmt.Errorf("grant location %s: %w", locationID, err)
	}
	return nil
}
