package model

import "time"

const EventPaymentConfirmed = "payment.confirmed"

// PaymentConfirmed carries the payment snapshot taken at confirmation time.
type PaymentConfirmed struct {
	Payment    Payment
	OccurredAt time.Time
}

func (PaymentConfirmed) EventName() string { return EventPaymentConfirmed }
