package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alignperks/loyalty-portal/internal/model"
	"github.com/alignperks/loyalty-portal/pkg/database"
)

// PurchaseRepository stores the append-only accrual history.
type PurchaseRepository struct {
	pool database.TxQuerier
}

// NewPurchaseRepository creates a new PurchaseRepository with the given pool.
func NewPurchaseRepository(pool *pgxpool.Pool) *PurchaseRepository {
	return &PurchaseRepository{pool: pool}
}

// NewPurchaseRepositoryWithPool creates a new PurchaseRepository with a custom pool interface.
func NewPurchaseRepositoryWithPool(pool database.TxQuerier) *PurchaseRepository {
	return &PurchaseRepository{pool: pool}
}

// Insert appends a purchase log inside the given transaction.
func (r *PurchaseRepository) Insert(ctx context.Context, tx database.TxQuerier, p *model.PurchaseLog) error {
	err := tx.QueryRow(ctx,
		`INSERT INTO purchase_logs (id, enrollment_id, amount_cents, points_added)
		 VALUES ($1, $2, $3, $4)
		 RETURNING created_at`,
		p.ID, p.EnrollmentID, p.AmountCents, p.PointsAdded,
	).Scan(&p.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert purchase log: %w", err)
	}
	return nil
}

// ListByEnrollment returns the enrollment's purchases, newest first.
func (r *PurchaseRepository) ListByEnrollment(ctx context.Context, enrollmentID string) ([]model.PurchaseLog, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, enrollment_id, amount_cents, points_added, created_at
		 FROM purchase_logs WHERE enrollment_id = $1 ORDER BY created_at DESC`, enrollmentID)
	if err != nil {
		return nil, fmt.Errorf("list purchases for enrollment %s: %w", enrollmentID, err)
	}
	defer rows.Close()

	logs := []model.PurchaseLog{}
	for rows.Next() {
		var p model.PurchaseLog
		if err := rows.Scan(&p.ID, &p.EnrollmentID, &p.AmountCents, &p.PointsAdded, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan purchase log: %w", err)
		}
		logs = append(logs, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate purchase rows: %w", err)
	}
	return logs, nil
}
