package model

import (
	"time"

	"github.com/google/uuid"

	"nova-payments/internal/domain"
)

type SubscriptionStatus string

const (
	SubscriptionStatusActive    SubscriptionStatus = "ACTIVE"
	SubscriptionStatusCancelled SubscriptionStatus = "CANCELLED"
)

// Subscription is a user's entitlement window.
type Subscription struct {
	ID        string // UUID
	UserID    string // UUID of user
	Plan      Plan
	Status    SubscriptionStatus
	StartAt   time.Time
	EndAt     time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewSubscription opens a fresh ACTIVE window [now, now+days].
func NewSubscription(userID string, plan string, durationDays int, now time.Time) (*Subscription, error) {
	if userID == "" || plan == "" || durationDays < 1 {
		return nil, domain.ErrInvalidArgument
	}
	return &Subscription{
		ID:        uuid.NewString(),
		UserID:    userID,
		Plan:      Plan(plan),
		Status:    SubscriptionStatusActive,
		StartAt:   now,
		EndAt:     now.Add(Days(durationDays)),
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Covers reports whether s grants access at the given instant.
func (s *Subscription) Covers(at time.Time) bool {
	return s.Status == SubscriptionStatusActive && !at.Before(s.StartAt) && !at.After(s.EndAt)
}

// Extend stacks durationDays on top of the current end; the latest plan wins.
func (s *Subscription) Extend(plan string, durationDays int, now time.Time) error {
	if plan == "" || durationDays < 1 {
		return domain.ErrInvalidArgument
	}
	base := s.EndAt
	if base.Before(now) {
		base = now
	}
	s.Plan = Plan(plan)
	s.Status = SubscriptionStatusActive
	s.EndAt = base.Add(Days(durationDays))
	s.UpdatedAt = now
	return nil
}

// Cancel closes the window at now.
func (s *Subscription) Cancel(now time.Time) {
	s.Status = SubscriptionStatusCancelled
	s.EndAt = now
	s.UpdatedAt = now
}

// Days converts a whole-day count into a duration.
func Days(n int) time.Duration { return time.Duration(n) * 24 * time.Hour }
