package repository

import (
	"context"
	"time"

	"nova-payments/internal/domain/model"
)

type SubscriptionRepository interface {
	Save(ctx context.Context, tx Tx, s *model.Subscription) error
	// FindActiveAt returns the ACTIVE row covering at with the latest end.
	FindActiveAt(ctx context.Context, tx Tx, userID string, at time.Time) (*model.Subscription, error)
	ExistsActiveAt(ctx context.Context, tx Tx, userID string, at time.Time) (bool, error)
	ListActiveUserIDs(ctx context.Context, tx Tx, at time.Time) ([]string, error)
	FindByID(ctx context.Context, tx Tx, id string) (*model.Subscription, error)

	// LockUser serializes writers for one user until tx ends.
	LockUser(ctx context.Context, tx Tx, userID string) error

	// FindActivation returns the subscription ID recorded for an activation
	// key, or domain.ErrNotFound.
	FindActivation(ctx context.Context, tx Tx, txID string) (string, error)
	RecordActivation(ctx context.Context, tx Tx, txID, subscriptionID string, at time.Time) error
}
