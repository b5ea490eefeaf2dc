package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/shopspring/decimal"

	"nova-payments/internal/domain"
	"nova-payments/internal/domain/model"
	"nova-payments/internal/domain/ports/repository"
)

var _ repository.PaymentRepository = (*paymentRepo)(nil)

// paymentRepo stores the payments of one rail.
type paymentRepo struct {
	pool *pgxpool.Pool
	rail model.Rail
}

func NewPaymentRepo(pool *pgxpool.Pool, rail model.Rail) *paymentRepo {
	return &paymentRepo{pool: pool, rail: rail}
}

const paymentColumns = `id, user_id, plan, duration_days, rail, amount_minor, amount_xmr::text, currency, external_ref,
  wallet_account_index, wallet_subaddress_index, status, created_at, updated_at, confirmed_at`

func (r *paymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	const q = `
INSERT INTO payments (
  id, user_id, plan, duration_days, rail, amount_minor, amount_xmr, currency, external_ref,
  wallet_account_index, wallet_subaddress_index, status, created_at, updated_at, confirmed_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7::numeric,$8,$9,$10,$11,$12,$13,$14,$15
) ON CONFLICT (id) DO UPDATE SET
  status=$12, updated_at=$14, confirmed_at=$15;`

	if p.Rail != r.rail {
		return fmt.Errorf("%w: payment rail %q in %q store", domain.ErrInvalidArgument, p.Rail, r.rail)
	}
	_, err := execSQL(ctx, r.pool, tx, q,
		p.ID, p.UserID, string(p.Plan), p.DurationDays, string(p.Rail), p.AmountMinor, p.AmountXMR.String(), p.Currency, p.ExternalRef,
		p.WalletAccountIndex, p.WalletSubaddressIndex, string(p.Status), p.CreatedAt, p.UpdatedAt, p.ConfirmedAt)
	return mapWriteErr(err)
}

func (r *paymentRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Payment, error) {
	q := `SELECT ` + paymentColumns + ` FROM payments WHERE id=$1 AND rail=$2;`
	return r.queryOne(ctx, tx, q, id, string(r.rail))
}

func (r *paymentRepo) FindByIDForUpdate(ctx context.Context, tx repository.Tx, id string) (*model.Payment, error) {
	if _, ok := tx.(pgx.Tx); !ok {
		return nil, domain.ErrNoTransaction
	}
	q := `SELECT ` + paymentColumns + ` FROM payments WHERE id=$1 AND rail=$2 FOR UPDATE;`
	return r.queryOne(ctx, tx, q, id, string(r.rail))
}

func (r *paymentRepo) FindByIDAndUser(ctx context.Context, tx repository.Tx, id, userID string) (*model.Payment, error) {
	q := `SELECT ` + paymentColumns + ` FROM payments WHERE id=$1 AND user_id=$2 AND rail=$3;`
	return r.queryOne(ctx, tx, q, id, userID, string(r.rail))
}

func (r *paymentRepo) FindByExternalRef(ctx context.Context, tx repository.Tx, ref string) (*model.Payment, error) {
	q := `SELECT ` + paymentColumns + ` FROM payments WHERE external_ref=$1 AND rail=$2 LIMIT 1;`
	return r.queryOne(ctx, tx, q, ref, string(r.rail))
}

func (r *paymentRepo) ListByStatus(ctx context.Context, tx repository.Tx, status model.PaymentStatus, limit int) ([]*model.Payment, error) {
	if limit <= 0 {
		limit = 100
	}
	q := `SELECT ` + paymentColumns + ` FROM payments WHERE status=$1 AND rail=$2 ORDER BY created_at ASC LIMIT $3;`
	rows, err := queryRows(ctx, r.pool, tx, q, string(status), string(r.rail), limit)
	if err != nil {
		return nil, mapReadErr(err, domain.ErrPaymentNotFound)
	}
	defer rows.Close()

	var out []*model.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, mapReadErr(err, domain.ErrPaymentNotFound)
	}
	return out, nil
}

func (r *paymentRepo) queryOne(ctx context.Context, tx repository.Tx, q string, args ...interface{}) (*model.Payment, error) {
	row, err := pickRow(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, err
	}
	return scanPayment(row)
}

func scanPayment(row pgx.Row) (*model.Payment, error) {
	var (
		p                  model.Payment
		plan, rail, status string
		amountXMR          string
	)
	if err := row.Scan(&p.ID, &p.UserID, &plan, &p.DurationDays, &rail, &p.AmountMinor, &amountXMR, &p.Currency, &p.ExternalRef,
		&p.WalletAccountIndex, &p.WalletSubaddressIndex, &status, &p.CreatedAt, &p.UpdatedAt, &p.ConfirmedAt); err != nil {
		return nil, mapReadErr(err, domain.ErrPaymentNotFound)
	}
	amt, err := decimal.NewFromString(amountXMR)
	if err != nil {
		return nil, fmt.Errorf("%w: amount_xmr %q", domain.ErrReadDatabaseRow, amountXMR)
	}
	p.Plan, p.Rail, p.Status, p.AmountXMR = model.Plan(plan), model.Rail(rail), model.PaymentStatus(status), amt
	return &p, nil
}
