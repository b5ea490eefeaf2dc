package usecase

import (
	"errors"
	"time"

	"nova-payments/internal/domain/ports/adapter"
)

// RetryPolicy bounds the activation call: MaxAttempts calls in total with
// exponential backoff between them.
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	Multiplier     float64
	MaxBackoff     time.Duration
}

// DefaultRetryPolicy gives 3 attempts waiting 1s then 2s.
var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts:    3,
	InitialBackoff: time.Second,
	Multiplier:     2,
	MaxBackoff:     10 * time.Second,
}

// Backoff returns the wait after the given failed attempt (1-based).
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	d := float64(p.InitialBackoff)
	for i := 1; i < attempt; i++ {
		d *= p.Multiplier
	}
	if p.MaxBackoff > 0 && time.Duration(d) > p.MaxBackoff {
		return p.MaxBackoff
	}
	return time.Duration(d)
}

func (p RetryPolicy) normalized() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultRetryPolicy.MaxAttempts
	}
	if p.InitialBackoff <= 0 {
		p.InitialBackoff = DefaultRetryPolicy.InitialBackoff
	}
	if p.Multiplier < 1 {
		p.Multiplier = DefaultRetryPolicy.Multiplier
	}
	return p
}

// IsTransient reports whether err is worth another attempt: network and IO
// failures and 5xx answers are, 4xx answers and ErrPermanent are not.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, adapter.ErrPermanent) {
		return false
	}
	var re *adapter.RemoteError
	if errors.As(err, &re) {
		return re.Temporary()
	}
	return true
}
