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

const locationColumns = `id, name, slug, address_line1, city, state, postal_code, is_active, created_at`

// LocationRepository provides data access for locations using pgx.
type LocationRepository struct {
	pool database.TxQuerier
}

// NewLocationRepository creates a new LocationRepository with the given pool.
func NewLocationRepository(pool *pgxpool.Pool) *LocationRepository {
	return &LocationRepository{pool: pool}
}

// NewLocationRepositoryWithPool creates a new LocationRepository with a custom pool interface.
func NewLocationRepositoryWithPool(pool database.TxQuerier) *LocationRepository {
	return &LocationRepository{pool: pool}
}

func scanLocation(row pgx.Row) (*model.Location, error) {
	var loc model.Location
	err := row.Scan(
		&loc.ID,
		&loc.Name,
		&loc.Slug,
		&loc.AddressLine1,
		&loc.City,
		&loc.State,
		&loc.PostalCode,
		&loc.IsActive,
		&loc.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &loc, nil
}

// Insert creates a location inside the given transaction.
// Returns service.ErrSlugTaken when the slug collides with an existing location.
func (r *LocationRepository) Insert(ctx context.Context, tx database.TxQuerier, loc *model.Location) error {
	err := tx.QueryRow(ctx,
		`INSERT INTO locations (id, name, slug, address_line1, city, state, postal_code)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING is_active, created_at`,
		loc.ID, loc.Name, loc.Slug, loc.AddressLine1, loc.City, loc.State, loc.PostalCode,
	).Scan(&loc.IsActive, &loc.CreatedAt)
	if err != nil {
		if database.PgErrorCode(err) == database.CodeUniqueViolation {
			return service.ErrSlugTaken
		}
		return fmt.Errorf("insert location: %w", err)
	}
	return nil
}

// GetByID retrieves a location by id.
// Returns nil, nil if the location is not found.
func (r *LocationRepository) GetByID(ctx context.Context, id string) (*model.Location, error) {
	loc, err := scanLocation(r.pool.QueryRow(ctx,
		`SELECT `+locationColumns+` FROM locations WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get location %s: %w", id, err)
	}
	return loc, nil
}

// ListForUser returns the locations the user is scoped to, newest grant first.
func (r *LocationRepository) ListForUser(ctx context.Context, userID string) ([]model.Location, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT l.id, l.name, l.slug, l.address_line1, l.city, l.state, l.postal_code, l.is_active, l.created_at
		 FROM user_locations ul
		 JOIN locations l ON l.id = ul.location_id
		 WHERE ul.user_id = $1
		 ORDER BY ul.created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list locations for user %s: %w", userID, err)
	}
	defer rows.Close()

	locations := []model.Location{}
	for rows.Next() {
		loc, err := scanLocation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan location: %w", err)
		}
		locations = append(locations, *loc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate location rows: %w", err)
	}
	return locations, nil
}
