package repository

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alignperks/loyalty-portal/internal/model"
	"github.com/alignperks/loyalty-portal/internal/service"
)

func contextValues(t *testing.T, usedAt *time.Time) []any {
	t.Helper()
	items, err := json.Marshal([]model.RedemptionItem{
		{RewardItemID: "coffee", Name: "Free Coffee", PointsEach: 30, Qty: 1, PointsTotal: 30},
	})
	require.NoError(t, err)
	now := time.Now().UTC()
	expires := now.Add(30 * time.Minute)
	return []any{
		"ri-1", "tok", "enr-1", items, 30, now, &expires, usedAt,
		"loc-1", "Taco Town", "Ada", "Lovelace", 40, strPtr("contact-1"),
	}
}

func TestRedemptionRepository_Insert(t *testing.T) {
	var capturedArgs []any
	repo := NewRedemptionRepositoryWithPool(&mockPool{
		queryRowFn: func(ctx context.Context, sql string, args ...any) pgx.Row {
			capturedArgs = args
			return rowOf(time.Now().UTC())
		},
	})

	intent := &model.RedemptionIntent{
		ID:           "ri-1",
		Token:        "tok",
		EnrollmentID: "enr-1",
		Items:        []model.RedemptionItem{{RewardItemID: "coffee", Name: "Free Coffee", PointsEach: 30, Qty: 2, PointsTotal: 60}},
		PointsSpent:  60,
	}
	err := repo.Insert(context.Background(), intent)

	require.NoError(t, err)
	require.Len(t, capturedArgs, 6)
	raw, ok := capturedArgs[3].([]byte)
	require.True(t, ok, "items must be passed as encoded JSON")
	assert.JSONEq(t, `[{"reward_item_id":"coffee","name":"Free Coffee","points_each":30,"qty":2,"points_total":60}]`, string(raw))
	assert.False(t, intent.CreatedAt.IsZero())
}

func TestRedemptionRepository_GetContextByToken(t *testing.T) {
	repo := NewRedemptionRepositoryWithPool(&mockPool{
		queryRowFn: func(ctx context.Context, sql string, args ...any) pgx.Row {
			return rowOf(contextValues(t, nil)...)
		},
	})

	rc, err := repo.GetContextByToken(context.Background(), "tok")

	require.NoError(t, err)
	require.NotNil(t, rc)
	assert.Equal(t, "Ada Lovelace", rc.CustomerName)
	assert.Equal(t, 40, rc.Balance)
	assert.Equal(t, "Free Coffee", rc.Intent.PrimaryItem().Name)
	assert.False(t, rc.Intent.Consumed())
}

func TestRedemptionRepository_GetContextByToken_Unknown(t *testing.T) {
	repo := NewRedemptionRepositoryWithPool(&mockPool{
		queryRowFn: func(ctx context.Context, sql string, args ...any) pgx.Row { return errRow(pgx.ErrNoRows) },
	})

	rc, err := repo.GetContextByToken(context.Background(), "nope")

	require.NoError(t, err)
	assert.Nil(t, rc)
}

func TestRedemptionRepository_GetForUpdate_LocksIntentAndEnrollment(t *testing.T) {
	var capturedSQL string
	tx := &mockPool{
		queryRowFn: func(ctx context.Context, sql string, args ...any) pgx.Row {
			capturedSQL = sql
			return rowOf(contextValues(t, nil)...)
		},
	}

	_, err := NewRedemptionRepositoryWithPool(&mockPool{}).GetForUpdate(context.Background(), tx, "tok")

	require.NoError(t, err)
	assert.Contains(t, capturedSQL, "FOR UPDATE OF ri, e")
}

func TestRedemptionRepository_GetForUpdate_Unknown(t *testing.T) {
	tx := &mockPool{
		queryRowFn: func(ctx context.Context, sql string, args ...any) pgx.Row { return errRow(pgx.ErrNoRows) },
	}

	_, err := NewRedemptionRepositoryWithPool(&mockPool{}).GetForUpdate(context.Background(), tx, "nope")

	assert.True(t, errors.Is(err, service.ErrInvalidOrExpired))
}

func TestRedemptionRepository_MarkUsed(t *testing.T) {
	testCases := []struct {
		name    string
		tag     string
		wantErr error
	}{
		{name: "first_commit", tag: "UPDATE 1"},
		{name: "second_commit", tag: "UPDATE 0", wantErr: service.ErrAlreadyConsumed},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var capturedSQL string
			tx := &mockPool{
				execFn: func(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
					capturedSQL = sql
					return pgconn.NewCommandTag(tc.tag), nil
				},
			}

			err := NewRedemptionRepositoryWithPool(&mockPool{}).MarkUsed(context.Background(), tx, "ri-1", time.Now())

			assert.Contains(t, capturedSQL, "used_at IS NULL")
			if tc.wantErr != nil {
				assert.True(t, errors.Is(err, tc.wantErr))
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestRedemptionRepository_DeleteExpired(t *testing.T) {
	cutoff := time.Now().Add(-time.Hour)
	var capturedSQL string
	var capturedArgs []any
	repo := NewRedemptionRepositoryWithPool(&mockPool{
		execFn: func(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
			capturedSQL = sql
			capturedArgs = arguments
			return pgconn.NewCommandTag("DELETE 3"), nil
		},
	})

	n, err := repo.DeleteExpired(context.Background(), cutoff)

	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.Contains(t, capturedSQL, "used_at IS NULL")
	assert.Equal(t, cutoff, capturedArgs[0])
}
