package memory

import (
	"context"
	"sort"

	"nova-payments/internal/domain"
	"nova-payments/internal/domain/model"
	"nova-payments/internal/domain/ports/repository"
)

var _ repository.PaymentRepository = (*PaymentRepo)(nil)

type PaymentRepo struct {
	store *Store
}

func NewPaymentRepo(s *Store) *PaymentRepo {
	return &PaymentRepo{store: s}
}

func (r *PaymentRepo) Save(ctx context.Context, qx repository.Tx, p *model.Payment) error {
	if p == nil || p.ID == "" {
		return domain.ErrInvalidArgument
	}
	tx, err := asTx(qx)
	if err != nil {
		return err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if p.ExternalRef != "" {
		for id, other := range r.view(tx) {
			if id != p.ID && other.ExternalRef == p.ExternalRef {
				return domain.ErrAlreadyExists
			}
		}
	}
	if tx != nil {
		tx.payments[p.ID] = *p
		return nil
	}
	r.store.payments[p.ID] = *p
	return nil
}

// view merges committed rows with tx's staged writes. Caller holds store.mu.
func (r *PaymentRepo) view(tx *Tx) map[string]model.Payment {
	if tx == nil || len(tx.payments) == 0 {
		return r.store.payments
	}
	out := make(map[string]model.Payment, len(r.store.payments)+len(tx.payments))
	for id, p := range r.store.payments {
		out[id] = p
	}
	for id, p := range tx.payments {
		out[id] = p
	}
	return out
}

func (r *PaymentRepo) get(tx *Tx, id string) (*model.Payment, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	if tx != nil {
		if p, ok := tx.payments[id]; ok {
			return &p, nil
		}
	}
	p, ok := r.store.payments[id]
	if !ok {
		return nil, domain.ErrPaymentNotFound
	}
	return &p, nil
}

func (r *PaymentRepo) FindByID(ctx context.Context, qx repository.Tx, id string) (*model.Payment, error) {
	tx, err := asTx(qx)
	if err != nil {
		return nil, err
	}
	return r.get(tx, id)
}

func (r *PaymentRepo) FindByIDForUpdate(ctx context.Context, qx repository.Tx, id string) (*model.Payment, error) {
	tx, err := asTx(qx)
	if err != nil {
		return nil, err
	}
	if tx == nil {
		return nil, domain.ErrNoTransaction
	}
	if err := tx.lock(ctx, "payment:"+id); err != nil {
		return nil, err
	}
	return r.get(tx, id)
}

func (r *PaymentRepo) FindByIDAndUser(ctx context.Context, qx repository.Tx, id, userID string) (*model.Payment, error) {
	p, err := r.FindByID(ctx, qx, id)
	if err != nil {
		return nil, err
	}
	if p.UserID != userID {
		return nil, domain.ErrPaymentNotFound
	}
	return p, nil
}

func (r *PaymentRepo) FindByExternalRef(ctx context.Context, qx repository.Tx, ref string) (*model.Payment, error) {
	tx, err := asTx(qx)
	if err != nil {
		return nil, err
	}
	if ref == "" {
		return nil, domain.ErrPaymentNotFound
	}
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	for _, p := range r.view(tx) {
		if p.ExternalRef == ref {
			p := p
			return &p, nil
		}
	}
	return nil, domain.ErrPaymentNotFound
}

func (r *PaymentRepo) ListByStatus(ctx context.Context, qx repository.Tx, status model.PaymentStatus, limit int) ([]*model.Payment, error) {
	tx, err := asTx(qx)
	if err != nil {
		return nil, err
	}
	r.store.mu.RLock()
	var out []*model.Payment
	for _, p := range r.view(tx) {
		if p.Status == status {
			p := p
			out = append(out, &p)
		}
	}
	r.store.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
