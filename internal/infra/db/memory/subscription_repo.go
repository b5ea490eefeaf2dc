package memory

import (
	"context"
	"errors"
	"sort"
	"time"

	"nova-payments/internal/domain"
	"nova-payments/internal/domain/model"
	"nova-payments/internal/domain/ports/repository"
)

var _ repository.SubscriptionRepository = (*SubscriptionRepo)(nil)

type SubscriptionRepo struct {
	store *Store
}

func NewSubscriptionRepo(s *Store) *SubscriptionRepo {
	return &SubscriptionRepo{store: s}
}

func (r *SubscriptionRepo) Save(ctx context.Context, qx repository.Tx, s *model.Subscription) error {
	if s == nil || s.ID == "" {
		return domain.ErrInvalidArgument
	}
	tx, err := asTx(qx)
	if err != nil {
		return err
	}
	if tx != nil {
		tx.subs[s.ID] = *s
		return nil
	}
	r.store.mu.Lock()
	r.store.subs[s.ID] = *s
	r.store.mu.Unlock()
	return nil
}

// rows returns the merged view for one user. Caller holds store.mu.
func (r *SubscriptionRepo) rows(tx *Tx, userID string) []model.Subscription {
	seen := map[string]bool{}
	var out []model.Subscription
	if tx != nil {
		for id, s := range tx.subs {
			seen[id] = true
			if userID == "" || s.UserID == userID {
				out = append(out, s)
			}
		}
	}
	for id, s := range r.store.subs {
		if seen[id] {
			continue
		}
		if userID == "" || s.UserID == userID {
			out = append(out, s)
		}
	}
	return out
}

func (r *SubscriptionRepo) FindActiveAt(ctx context.Context, qx repository.Tx, userID string, at time.Time) (*model.Subscription, error) {
	tx, err := asTx(qx)
	if err != nil {
		return nil, err
	}
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var best *model.Subscription
	for _, s := range r.rows(tx, userID) {
		if !s.Covers(at) {
			continue
		}
		if best == nil || s.EndAt.After(best.EndAt) {
			s := s
			best = &s
		}
	}
	if best == nil {
		return nil, domain.ErrSubscriptionNotFound
	}
	return best, nil
}

func (r *SubscriptionRepo) ExistsActiveAt(ctx context.Context, qx repository.Tx, userID string, at time.Time) (bool, error) {
	_, err := r.FindActiveAt(ctx, qx, userID, at)
	if errors.Is(err, domain.ErrSubscriptionNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (r *SubscriptionRepo) ListActiveUserIDs(ctx context.Context, qx repository.Tx, at time.Time) ([]string, error) {
	tx, err := asTx(qx)
	if err != nil {
		return nil, err
	}
	r.store.mu.RLock()
	set := map[string]struct{}{}
	for _, s := range r.rows(tx, "") {
		if s.Covers(at) {
			set[s.UserID] = struct{}{}
		}
	}
	r.store.mu.RUnlock()

	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

func (r *SubscriptionRepo) FindByID(ctx context.Context, qx repository.Tx, id string) (*model.Subscription, error) {
	tx, err := asTx(qx)
	if err != nil {
		return nil, err
	}
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	if tx != nil {
		if s, ok := tx.subs[id]; ok {
			return &s, nil
		}
	}
	s, ok := r.store.subs[id]
	if !ok {
		return nil, domain.ErrSubscriptionNotFound
	}
	return &s, nil
}

func (r *SubscriptionRepo) LockUser(ctx context.Context, qx repository.Tx, userID string) error {
	tx, err := asTx(qx)
	if err != nil {
		return err
	}
	if tx == nil {
		return domain.ErrNoTransaction
	}
	return tx.lock(ctx, "user:"+userID)
}

func (r *SubscriptionRepo) FindActivation(ctx context.Context, qx repository.Tx, txID string) (string, error) {
	tx, err := asTx(qx)
	if err != nil {
		return "", err
	}
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	if tx != nil {
		if a, ok := tx.activations[txID]; ok {
			return a.subscriptionID, nil
		}
	}
	a, ok := r.store.activations[txID]
	if !ok {
		return "", domain.ErrNotFound
	}
	return a.subscriptionID, nil
}

func (r *SubscriptionRepo) RecordActivation(ctx context.Context, qx repository.Tx, txID, subscriptionID string, at time.Time) error {
	if txID == "" || subscriptionID == "" {
		return domain.ErrInvalidArgument
	}
	tx, err := asTx(qx)
	if err != nil {
		return err
	}
	a := activation{subscriptionID: subscriptionID, at: at}
	if tx != nil {
		tx.activations[txID] = a
		return nil
	}
	r.store.mu.Lock()
	r.store.activations[txID] = a
	r.store.mu.Unlock()
	return nil
}
