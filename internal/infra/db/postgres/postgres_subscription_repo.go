package postgres

import (
	"context"
	"hash/fnv"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"nova-payments/internal/domain"
	"nova-payments/internal/domain/model"
	"nova-payments/internal/domain/ports/repository"
)

// Ensure subscriptionRepo implements repository.SubscriptionRepository
var _ repository.SubscriptionRepository = (*subscriptionRepo)(nil)

type subscriptionRepo struct {
	pool *pgxpool.Pool
}

func NewSubscriptionRepo(pool *pgxpool.Pool) *subscriptionRepo {
	return &subscriptionRepo{pool: pool}
}

const subscriptionColumns = `id, user_id, plan, status, start_at, end_at, created_at, updated_at`

func (r *subscriptionRepo) Save(ctx context.Context, tx repository.Tx, s *model.Subscription) error {
	const q = `
INSERT INTO subscriptions (` + subscriptionColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (id) DO UPDATE SET
  plan=$3, status=$4, start_at=$5, end_at=$6, updated_at=$8;`

	_, err := execSQL(ctx, r.pool, tx, q, s.ID, s.UserID, string(s.Plan), string(s.Status), s.StartAt, s.EndAt, s.CreatedAt, s.UpdatedAt)
	return mapWriteErr(err)
}

func (r *subscriptionRepo) FindActiveAt(ctx context.Context, tx repository.Tx, userID string, at time.Time) (*model.Subscription, error) {
	const q = `
SELECT ` + subscriptionColumns + `
  FROM subscriptions
 WHERE user_id=$1 AND status='ACTIVE' AND start_at <= $2 AND end_at >= $2
 ORDER BY end_at DESC
 LIMIT 1;`
	return r.queryOne(ctx, tx, q, userID, at)
}

func (r *subscriptionRepo) ExistsActiveAt(ctx context.Context, tx repository.Tx, userID string, at time.Time) (bool, error) {
	const q = `
SELECT EXISTS (
  SELECT 1 FROM subscriptions
   WHERE user_id=$1 AND status='ACTIVE' AND start_at <= $2 AND end_at >= $2
);`
	row, err := pickRow(ctx, r.pool, tx, q, userID, at)
	if err != nil {
		return false, err
	}
	var ok bool
	if err := row.Scan(&ok); err != nil {
		return false, mapReadErr(err, domain.ErrSubscriptionNotFound)
	}
	return ok, nil
}

func (r *subscriptionRepo) ListActiveUserIDs(ctx context.Context, tx repository.Tx, at time.Time) ([]string, error) {
	const q = `
SELECT DISTINCT user_id
  FROM subscriptions
 WHERE status='ACTIVE' AND start_at <= $1 AND end_at >= $1
 ORDER BY user_id;`
	rows, err := queryRows(ctx, r.pool, tx, q, at)
	if err != nil {
		return nil, mapReadErr(err, domain.ErrSubscriptionNotFound)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, mapReadErr(err, domain.ErrSubscriptionNotFound)
		}
		out = append(out, id)
	}
	return out, mapReadErr(rows.Err(), domain.ErrSubscriptionNotFound)
}

func (r *subscriptionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Subscription, error) {
	const q = `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE id=$1;`
	return r.queryOne(ctx, tx, q, id)
}

// LockUser takes a transaction-scoped advisory lock keyed on the user.
func (r *subscriptionRepo) LockUser(ctx context.Context, tx repository.Tx, userID string) error {
	if _, ok := tx.(pgx.Tx); !ok {
		return domain.ErrNoTransaction
	}
	_, err := execSQL(ctx, r.pool, tx, `SELECT pg_advisory_xact_lock($1);`, hashToInt64("subscription:"+userID))
	return mapWriteErr(err)
}

func (r *subscriptionRepo) FindActivation(ctx context.Context, tx repository.Tx, txID string) (string, error) {
	const q = `SELECT subscription_id FROM subscription_activations WHERE tx_id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, txID)
	if err != nil {
		return "", err
	}
	var subID string
	if err := row.Scan(&subID); err != nil {
		return "", mapReadErr(err, domain.ErrNotFound)
	}
	return subID, nil
}

func (r *subscriptionRepo) RecordActivation(ctx context.Context, tx repository.Tx, txID, subscriptionID string, at time.Time) error {
	const q = `INSERT INTO subscription_activations (tx_id, subscription_id, created_at) VALUES ($1,$2,$3);`
	_, err := execSQL(ctx, r.pool, tx, q, txID, subscriptionID, at)
	return mapWriteErr(err)
}

func (r *subscriptionRepo) queryOne(ctx context.Context, tx repository.Tx, q string, args ...interface{}) (*model.Subscription, error) {
	row, err := pickRow(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, err
	}
	var (
		s            model.Subscription
		plan, status string
	)
	if err := row.Scan(&s.ID, &s.UserID, &plan, &status, &s.StartAt, &s.EndAt, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, mapReadErr(err, domain.ErrSubscriptionNotFound)
	}
	s.Plan, s.Status = model.Plan(plan), model.SubscriptionStatus(status)
	return &s, nil
}

func hashToInt64(s string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return int64(h.Sum64())
}
