package sched

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"nova-payments/internal/domain"
	"nova-payments/internal/domain/ports/adapter"
	"nova-payments/internal/infra/metrics"
	"nova-payments/internal/usecase"
)

// MonitorLockKey is the leader lock shared by every crypto-rail instance.
const MonitorLockKey = "payments:crypto:monitor"

// Locker elects one scanning instance per tick.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (string, error)
	Unlock(ctx context.Context, key, token string) error
}

// PaymentMonitor polls the wallet for every pending crypto payment and
// confirms those whose confirmed balance covers the required amount.
type PaymentMonitor struct {
	uc       usecase.PaymentUseCase
	wallet   adapter.WalletClient
	locker   Locker // nil: every instance scans
	interval time.Duration
	batch    int
	lockTTL  time.Duration
	log      *zerolog.Logger
}

type MonitorOptions struct {
	Interval time.Duration
	Batch    int
	LockTTL  time.Duration
}

func NewPaymentMonitor(uc usecase.PaymentUseCase, wallet adapter.WalletClient, locker Locker, opts MonitorOptions, logger *zerolog.Logger) *PaymentMonitor {
	if opts.Interval <= 0 {
		opts.Interval = time.Minute
	}
	if opts.Batch <= 0 {
		opts.Batch = 500
	}
	if opts.LockTTL <= 0 || opts.LockTTL >= opts.Interval {
		opts.LockTTL = opts.Interval * 5 / 6
	}
	l := logger.With().Str("component", "PaymentMonitor").Logger()
	return &PaymentMonitor{
		uc:       uc,
		wallet:   wallet,
		locker:   locker,
		interval: opts.Interval,
		batch:    opts.Batch,
		lockTTL:  opts.LockTTL,
		log:      &l,
	}
}

func (m *PaymentMonitor) Run(ctx context.Context) error {
	m.log.Info().Dur("interval", m.interval).Msg("Starting payment monitor")
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.log.Info().Msg("Stopping payment monitor")
			return ctx.Err()
		case <-ticker.C:
			runCtx, cancel := context.WithTimeout(ctx, m.interval)
			confirmed, err := m.Tick(runCtx)
			cancel()
			if err != nil {
				m.log.Error().Err(err).Msg("payment monitor tick failed")
				continue
			}
			if confirmed > 0 {
				m.log.Info().Int("confirmed", confirmed).Msg("crypto payments confirmed")
			}
		}
	}
}

// Tick runs one scan under the leader lock and returns how many payments it
// confirmed.
func (m *PaymentMonitor) Tick(ctx context.Context) (int, error) {
	if m.locker != nil {
		token, err := m.locker.TryLock(ctx, MonitorLockKey, m.lockTTL)
		if errors.Is(err, domain.ErrLockNotAcquired) {
			metrics.IncMonitorRun("not_leader")
			return 0, nil
		}
		if err != nil {
			metrics.IncMonitorRun("error")
			return 0, err
		}
		defer func() {
			if err := m.locker.Unlock(context.WithoutCancel(ctx), MonitorLockKey, token); err != nil {
				m.log.Warn().Err(err).Msg("release monitor lock")
			}
		}()
	}
	n, err := m.scan(ctx)
	if err != nil {
		metrics.IncMonitorRun("error")
		return n, err
	}
	metrics.IncMonitorRun("scanned")
	return n, nil
}

func (m *PaymentMonitor) scan(ctx context.Context) (int, error) {
	if err := m.wallet.Refresh(ctx); err != nil {
		m.log.Warn().Err(err).Msg("wallet refresh failed; scanning with the last known state")
	}
	pending, err := m.uc.ListPending(ctx, m.batch)
	if err != nil {
		return 0, err
	}

	confirmed := 0
	for _, p := range pending {
		if ctx.Err() != nil {
			return confirmed, ctx.Err()
		}
		if !p.HasWalletSlot() {
			continue
		}
		plog := m.log.With().Str("payment_id", p.ID).Logger()
		balance, err := m.wallet.ConfirmedBalance(ctx, *p.WalletAccountIndex, *p.WalletSubaddressIndex)
		if err != nil {
			plog.Warn().Err(err).Msg("balance query failed")
			continue
		}
		if balance.LessThan(p.AmountXMR) {
			continue
		}
		err = m.uc.Confirm(ctx, p.ID)
		switch {
		case err == nil:
			confirmed++
			plog.Info().Str("balance", balance.String()).Msg("payment received")
		case errors.Is(err, domain.ErrInvalidPaymentState):
			plog.Debug().Err(err).Msg("payment left pending state meanwhile")
		default:
			plog.Error().Err(err).Msg("confirm failed")
		}
	}
	return confirmed, nil
}
