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

// CustomerRepository provides data access for customers using pgx.
type CustomerRepository struct {
	pool database.TxQuerier
}

// NewCustomerRepository creates a new CustomerRepository with the given pool.
func NewCustomerRepository(pool *pgxpool.Pool) *CustomerRepository {
	return &CustomerRepository{pool: pool}
}

// NewCustomerRepositoryWithPool creates a new CustomerRepository with a custom pool interface.
func NewCustomerRepositoryWithPool(pool database.TxQuerier) *CustomerRepository {
	return &CustomerRepository{pool: pool}
}

// UpsertByPhone inserts the customer or, when the phone is already known, refreshes
// name and email. The customer's ID and CreatedAt are populated from the stored row.
func (r *CustomerRepository) UpsertByPhone(ctx context.Context, tx database.TxQuerier, c *model.Customer) error {
	query := `
		INSERT INTO customers (id, phone_e164, email, first_name, last_name)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (phone_e164) DO UPDATE
		SET email = EXCLUDED.email,
		    first_name = EXCLUDED.first_name,
		    last_name = EXCLUDED.last_name,
		    updated_at = NOW()
		RETURNING id, created_at, updated_at`

	err := tx.QueryRow(ctx, query, c.ID, c.PhoneE164, c.Email, c.FirstName, c.LastName).
		Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert customer %s: %w", c.PhoneE164, err)
	}
	return nil
}

// GetByID retrieves a customer by id.
// Returns nil, nil if the customer is not found.
func (r *CustomerRepository) GetByID(ctx context.Context, id string) (*model.Customer, error) {
	var c model.Customer
	err := r.pool.QueryRow(ctx,
		`SELECT id, phone_e164, email, first_name, last_name, created_at, updated_at FROM customers WHERE id = $1`, id,
	).Scan(&c.ID, &c.PhoneE164, &c.Email, &c.FirstName, &c.LastName, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get customer %s: %w", id, err)
	}
	return &c, nil
}

// Update writes the customer's profile fields.
// Returns service.ErrPhoneInUse if the phone belongs to another customer.
func (r *CustomerRepository) Update(ctx context.Context, c *model.Customer) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE customers
		 SET phone_e164 = $2, email = $3, first_name = $4, last_name = $5, updated_at = NOW()
		 WHERE id = $1`,
		c.ID, c.PhoneE164, c.Email, c.FirstName, c.LastName)
	if err != nil {
		if database.PgErrorCode(err) == database.CodeUniqueViolation {
			return service.ErrPhoneInUse
		}
		return fmt.Errorf("update customer %s: %w", c.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return service.ErrNotFound
	}
	return nil
}
