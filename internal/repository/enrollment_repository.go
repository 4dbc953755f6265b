package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alignperks/loyalty-portal/internal/model"
	"github.com/alignperks/loyalty-portal/internal/service"
	"github.com/alignperks/loyalty-portal/pkg/database"
)

const enrollmentColumns = `id, customer_id, location_id, cached_points, crm_contact_id, created_at, updated_at`

// EnrollmentRepository provides data access for enrollments and their cached balances.
type EnrollmentRepository struct {
	pool database.TxQuerier
}

// NewEnrollmentRepository creates a new EnrollmentRepository with the given pool.
func NewEnrollmentRepository(pool *pgxpool.Pool) *EnrollmentRepository {
	return &EnrollmentRepository{pool: pool}
}

// NewEnrollmentRepositoryWithPool creates a new EnrollmentRepository with a custom pool interface.
// This is primarily used for testing.
func NewEnrollmentRepositoryWithPool(pool database.TxQuerier) *EnrollmentRepository {
	return &EnrollmentRepository{pool: pool}
}

func scanEnrollment(row pgx.Row) (*model.Enrollment, error) {
	var e model.Enrollment
	if err := row.Scan(&e.ID, &e.CustomerID, &e.LocationID, &e.CachedPoints, &e.CRMContactID, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	return &e, nil
}

// Upsert enrolls the customer at the location, returning the existing enrollment when there
// already is one. created reports whether a new row was inserted.
func (r *EnrollmentRepository) Upsert(ctx context.Context, tx database.TxQuerier, id, customerID, locationID string) (*model.Enrollment, bool, error) {
	// xmax = 0 only for rows inserted by this statement.
	query := `
		INSERT INTO enrollments (id, customer_id, location_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (customer_id, location_id) DO UPDATE SET updated_at = enrollments.updated_at
		RETURNING ` + enrollmentColumns + `, (xmax = 0) AS inserted`

	var e model.Enrollment
	var inserted bool
	err := tx.QueryRow(ctx, query, id, customerID, locationID).Scan(
		&e.ID, &e.CustomerID, &e.LocationID, &e.CachedPoints, &e.CRMContactID, &e.CreatedAt, &e.UpdatedAt, &inserted,
	)
	if err != nil {
		return nil, false, fmt.Errorf("upsert enrollment: %w", err)
	}
	return &e, inserted, nil
}

// GetByID retrieves an enrollment by id.
// Returns nil, nil if the enrollment is not found.
func (r *EnrollmentRepository) GetByID(ctx context.Context, id string) (*model.Enrollment, error) {
	e, err := scanEnrollment(r.pool.QueryRow(ctx, `SELECT `+enrollmentColumns+` FROM enrollments WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get enrollment %s: %w", id, err)
	}
	return e, nil
}

// GetForUpdate retrieves an enrollment with a row-level lock (SELECT FOR UPDATE).
// The lock is held until the transaction commits or rolls back.
// Returns service.ErrNotFound if the enrollment does not exist.
func (r *EnrollmentRepository) GetForUpdate(ctx context.Context, tx database.TxQuerier, id string) (*model.Enrollment, error) {
	e, err := scanEnrollment(tx.QueryRow(ctx, `SELECT `+enrollmentColumns+` FROM enrollments WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrNotFound
		}
		return nil, fmt.Errorf("get enrollment %s for update: %w", id, err)
	}
	return e, nil
}

// AddPoints credits the cached balance and returns the new value.
// Returns service.ErrInvalidAmount when the new balance would not fit the column.
func (r *EnrollmentRepository) AddPoints(ctx context.Context, tx database.TxQuerier, id string, points int) (int, error) {
	var balance int
	err := tx.QueryRow(ctx,
		`UPDATE enrollments SET cached_points = cached_points + $2, updated_at = NOW() WHERE id = $1 RETURNING cached_points`,
		id, points,
	).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, service.ErrNotFound
		}
		if database.PgErrorCode(err) == database.CodeOutOfRange {
			return 0, service.ErrInvalidAmount
		}
		return 0, fmt.Errorf("add points to enrollment %s: %w", id, err)
	}
	return balance, nil
}

// DebitPoints subtracts points only when the balance covers them and returns the new value.
// Returns service.ErrInsufficientBalance when it does not.
func (r *EnrollmentRepository) DebitPoints(ctx context.Context, tx database.TxQuerier, id string, points int) (int, error) {
	var balance int
	err := tx.QueryRow(ctx,
		`UPDATE enrollments SET cached_points = cached_points - $2, updated_at = NOW()
		 WHERE id = $1 AND cached_points >= $2
		 RETURNING cached_points`,
		id, points,
	).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || database.PgErrorCode(err) == database.CodeCheckViolation {
			return 0, service.ErrInsufficientBalance
		}
		return 0, fmt.Errorf("debit enrollment %s: %w", id, err)
	}
	return balance, nil
}

// SetContactID records the CRM contact linked to the enrollment.
func (r *EnrollmentRepository) SetContactID(ctx context.Context, id, contactID string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE enrollments SET crm_contact_id = $2, updated_at = NOW() WHERE id = $1`, id, contactID)
	if err != nil {
		return fmt.Errorf("set contact id on enrollment %s: %w", id, err)
	}
	return nil
}

const clientSelect = `
	SELECT e.id, e.location_id, e.cached_points, e.created_at,
	       c.id, c.phone_e164, c.email, c.first_name, c.last_name, c.created_at, c.updated_at
	FROM enrollments e
	JOIN customers c ON c.id = e.customer_id`

func scanClient(row pgx.Row) (*model.Client, error) {
	var cl model.Client
	err := row.Scan(
		&cl.EnrollmentID, &cl.LocationID, &cl.Points, &cl.EnrolledAt,
		&cl.Customer.ID, &cl.Customer.PhoneE164, &cl.Customer.Email,
		&cl.Customer.FirstName, &cl.Customer.LastName, &cl.Customer.CreatedAt, &cl.Customer.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &cl, nil
}

// likeEscaper makes user input match literally inside an ILIKE pattern.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ListClients returns the location's enrollments, newest first. A non-empty search
// matches case-insensitively against name, phone and email.
func (r *EnrollmentRepository) ListClients(ctx context.Context, locationID, search string) ([]model.Client, error) {
	query := clientSelect + ` WHERE e.location_id = $1`
	args := []any{locationID}
	if search != "" {
		query += ` AND (c.first_name ILIKE $2 ESCAPE '\' OR c.last_name ILIKE $2 ESCAPE '\'` +
			` OR c.phone_e164 ILIKE $2 ESCAPE '\' OR c.email ILIKE $2 ESCAPE '\')`
		args = append(args, "%"+likeEscaper.Replace(search)+"%")
	}
	query += ` ORDER BY e.created_at DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list clients for location %s: %w", locationID, err)
	}
	defer rows.Close()

	clients := []model.Client{}
	for rows.Next() {
		cl, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("scan client: %w", err)
		}
		clients = append(clients, *cl)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate client rows: %w", err)
	}
	return clients, nil
}

// GetClient retrieves one enrollment together with its customer.
// Returns nil, nil if the enrollment is not found.
func (r *EnrollmentRepository) GetClient(ctx context.Context, enrollmentID string) (*model.Client, error) {
	cl, err := scanClient(r.pool.QueryRow(ctx, clientSelect+` WHERE e.id = $1`, enrollmentID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get client %s: %w", enrollmentID, err)
	}
	return cl, nil
}

// ListForCustomer returns every enrollment the customer holds, with location names.
func (r *EnrollmentRepository) ListForCustomer(ctx context.Context, customerID string) ([]model.CustomerEnrollment, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT e.id, e.location_id, l.name, e.cached_points
		 FROM enrollments e
		 JOIN locations l ON l.id = e.location_id
		 WHERE e.customer_id = $1
		 ORDER BY e.created_at`, customerID)
	if err != nil {
		return nil, fmt.Errorf("list enrollments for customer %s: %w", customerID, err)
	}
	defer rows.Close()

	enrollments := []model.CustomerEnrollment{}
	for rows.Next() {
		var ce model.CustomerEnrollment
		if err := rows.Scan(&ce.EnrollmentID, &ce.LocationID, &ce.LocationName, &ce.Points); err != nil {
			return nil, fmt.Errorf("scan customer enrollment: %w", err)
		}
		enrollments = append(enrollments, ce)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate customer enrollment rows: %w", err)
	}
	return enrollments, nil
}

// Delete removes the enrollment together with its history. The customer row is kept.
func (r *EnrollmentRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM enrollments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete enrollment %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return service.ErrNotFound
	}
	return nil
}

// FindDrift returns enrollments whose cached balance differs from accrued points minus
// committed redemptions.
func (r *EnrollmentRepository) FindDrift(ctx context.Context) ([]model.BalanceDrift, error) {
	query := `
		SELECT e.id, e.cached_points, ledger.points
		FROM enrollments e
		CROSS JOIN LATERAL (
			SELECT COALESCE((SELECT SUM(points_added) FROM purchase_logs p WHERE p.enrollment_id = e.id), 0)
			     - COALESCE((SELECT SUM(points_spent) FROM redemption_intents ri
			                 WHERE ri.enrollment_id = e.id AND ri.used_at IS NOT NULL), 0) AS points
		) ledger
		WHERE e.cached_points <> ledger.points`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("find balance drift: %w", err)
	}
	defer rows.Close()

	drift := []model.BalanceDrift{}
	for rows.Next() {
		var d model.BalanceDrift
		if err := rows.Scan(&d.EnrollmentID, &d.CachedPoints, &d.LedgerPoints); err != nil {
			return nil, fmt.Errorf("scan balance drift: %w", err)
		}
		drift = append(drift, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate drift rows: %w", err)
	}
	return drift, nil
}
