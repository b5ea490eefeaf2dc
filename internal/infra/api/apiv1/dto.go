package apiv1

import (
	"time"

	"github.com/shopspring/decimal"

	"nova-payments/internal/domain/model"
)

type createIntentRequest struct {
	Plan string `json:"plan" validate:"required,max=32"`
}

type createIntentResponse struct {
	PaymentID    string `json:"paymentId"`
	ClientSecret string `json:"clientSecret"`
	AmountFiat   int64  `json:"amountFiat"`
	CurrencyFiat string `json:"currencyFiat"`
}

type createCryptoRequest struct {
	Plan      string           `json:"plan" validate:"required,max=32"`
	AmountXMR *decimal.Decimal `json:"amountXmr" validate:"required"`
}

type createCryptoResponse struct {
	PaymentID      string          `json:"paymentId"`
	PaymentAddress string          `json:"paymentAddress"`
	AmountXMR      decimal.Decimal `json:"amountXmr"`
	ExpiresAt      *time.Time      `json:"expiresAt,omitempty"`
}

type paymentStatusResponse struct {
	PaymentID   string              `json:"paymentId"`
	Status      model.PaymentStatus `json:"status"`
	CreatedAt   time.Time           `json:"createdAt"`
	ConfirmedAt *time.Time          `json:"confirmedAt"`
}

func toPaymentStatus(p *model.Payment) paymentStatusResponse {
	return paymentStatusResponse{
		PaymentID:   p.ID,
		Status:      p.Status,
		CreatedAt:   p.CreatedAt,
		ConfirmedAt: p.ConfirmedAt,
	}
}

type activateRequest struct {
	UserID       string `json:"userId" validate:"required,uuid"`
	Plan         string `json:"plan" validate:"required,max=32"`
	DurationDays int    `json:"durationDays" validate:"required,min=1,max=3650"`
	TxID         string `json:"txId" validate:"omitempty,max=64"`
}

type cancelRequest struct {
	UserID string `json:"userId" validate:"required,uuid"`
}

type subscriptionResponse struct {
	UserID  string                   `json:"userId"`
	Plan    string                   `json:"plan"`
	Status  model.SubscriptionStatus `json:"status"`
	StartAt time.Time                `json:"startAt"`
	EndAt   time.Time                `json:"endAt"`
}

func toSubscription(s *model.Subscription) subscriptionResponse {
	return subscriptionResponse{
		UserID:  s.UserID,
		Plan:    string(s.Plan),
		Status:  s.Status,
		StartAt: s.StartAt,
		EndAt:   s.EndAt,
	}
}

type activeUsersResponse struct {
	UserIDs []string `json:"userIds"`
}

type hasAccessResponse struct {
	HasAccess bool `json:"hasAccess"`
}
