package domain

import (
	"errors"
	"fmt"
)

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrOperationFailed    = errors.New("operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrInvalidExecContext = errors.New("invalid execution context")
	ErrNoTransaction      = errors.New("no active transaction in context")
	ErrLockNotAcquired    = errors.New("lock not acquired")

	// Payments
	ErrPaymentNotFound     = fmt.Errorf("payment %w", ErrNotFound)
	ErrInvalidPaymentState = errors.New("payment is not in pending state")
	// Both wrap ErrInvalidPaymentState; callers that tolerate re-confirmation
	// match ErrPaymentAlreadyConfirmed and report the rest.
	ErrPaymentAlreadyConfirmed = fmt.Errorf("%w: already confirmed", ErrInvalidPaymentState)
	ErrPaymentAlreadyFailed    = fmt.Errorf("%w: already failed", ErrInvalidPaymentState)
	ErrInvalidPlan             = errors.New("invalid plan")
	ErrInvalidAmount           = errors.New("invalid amount")
	ErrInvalidSignature        = errors.New("invalid webhook signature")
	ErrWebhookSecretMissing    = errors.New("webhook secret is not configured")

	// Subscriptions
	ErrSubscriptionNotFound         = fmt.Errorf("subscription %w", ErrNotFound)
	ErrSubscriptionActivationFailed = errors.New("subscription activation failed")
)
