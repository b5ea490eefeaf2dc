package repository

import (
	"context"

	"nova-payments/internal/domain/model"
)

// PaymentRepository stores payments of one rail.
type PaymentRepository interface {
	// Save inserts or updates p.
	Save(ctx context.Context, tx Tx, p *model.Payment) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Payment, error)
	// FindByIDForUpdate reads the row and holds an exclusive lock on it until
	// tx ends. tx must be a transaction handle.
	FindByIDForUpdate(ctx context.Context, tx Tx, id string) (*model.Payment, error)
	FindByIDAndUser(ctx context.Context, tx Tx, id, userID string) (*model.Payment, error)
	FindByExternalRef(ctx context.Context, tx Tx, ref string) (*model.Payment, error)
	ListByStatus(ctx context.Context, tx Tx, status model.PaymentStatus, limit int) ([]*model.Payment, error)
}
