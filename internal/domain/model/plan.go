package model

import (
	"strings"

	"nova-payments/internal/domain"
)

// Plan identifies a purchasable entitlement length.
type Plan string

const (
	PlanMonthly Plan = "monthly"
	PlanYearly  Plan = "yearly"
)

const (
	CurrencySEK = "SEK"
	CurrencyXMR = "XMR"
)

type planTerms struct {
	durationDays int
	priceMinor   int64 // fiat price in öre
}

var plans = map[Plan]planTerms{
	PlanMonthly: {durationDays: 30, priceMinor: 4900},
	PlanYearly:  {durationDays: 365, priceMinor: 49900},
}

// ParsePlan normalizes user input ("Monthly ", "YEARLY") into a known plan.
func ParsePlan(s string) (Plan, error) {
	p := Plan(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := plans[p]; !ok {
		return "", domain.ErrInvalidPlan
	}
	return p, nil
}

func (p Plan) Valid() bool {
	_, ok := plans[p]
	return ok
}

// DurationDays returns the entitlement length; 0 for an unknown plan.
func (p Plan) DurationDays() int { return plans[p].durationDays }

// PriceMinor returns the fiat price in minor units of CurrencySEK.
func (p Plan) PriceMinor() int64 { return plans[p].priceMinor }

func (p Plan) String() string { return string(p) }
