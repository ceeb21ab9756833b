package pricing

import (
	"errors"

	"github.com/shopspring/decimal"
)

var ErrSettlementMismatch = errors.New("settlement does not reconcile with booking items")

// ItemSplit is the commission/payout split of one booking item
type ItemSplit struct {
	Cost              decimal.Decimal
	CommissionPercent decimal.Decimal
	Commission        decimal.Decimal
	Payout            decimal.Decimal
}

// ItemSettlement splits cost so that commission + payout == cost exactly:
// commission = round(cost × pct / 100, 2), payout = cost − commission.
func ItemSettlement(cost, commissionPercent decimal.Decimal) ItemSplit {
	cost = Round(cost)
	commission := Round(cost.Mul(commissionPercent).Div(hundred))
	return ItemSplit{
		Cost:              cost,
		CommissionPercent: commissionPercent,
		Commission:        commission,
		Payout:            cost.Sub(commission),
	}
}

// Settlement is the per-booking aggregate owed to a provider
type Settlement struct {
	Collected        decimal.Decimal
	Commission       decimal.Decimal
	Payout           decimal.Decimal
	EffectivePercent decimal.Decimal
}

// Settle aggregates item splits. Every aggregate is a plain sum of item
// figures, so no rounding happens at booking level. EffectivePercent is the
// shared item percentage when all items agree, else the rounded ratio.
func Settle(items []ItemSplit) (Settlement, error) {
	if len(items) == 0 {
		return Settlement{}, ErrNoLines
	}

	var s Settlement
	uniform := true
	for i, it := range items {
		if !it.Commission.Add(it.Payout).Equal(it.Cost) {
			return Settlement{}, ErrSettlementMismatch
		}
		s.Collected = s.Collected.Add(it.Cost)
		s.Commission = s.Commission.Add(it.Commission)
		s.Payout = s.Payout.Add(it.Payout)
		if i > 0 && !it.CommissionPercent.Equal(items[0].CommissionPercent) {
			uniform = false
		}
	}

	if !s.Collected.Sub(s.Commission).Equal(s.Payout) {
		return Settlement{}, ErrSettlementMismatch
	}

	switch {
	case uniform:
		s.EffectivePercent = items[0].CommissionPercent
	case s.Collected.IsZero():
		s.EffectivePercent = decimal.Zero
	default:
		s.EffectivePercent = Round(s.Commission.Div(s.Collected).Mul(hundred))
	}
	return s, nil
}

// VerifySettlement checks a stored aggregate against the item splits it came from.
func VerifySettlement(s Settlement, items []ItemSplit) error {
	expected, err := Settle(items)
	if err != nil {
		return err
	}
	if !expected.Collected.Equal(s.Collected) || !expected.Commission.Equal(s.Commission) || !expected.Payout.Equal(s.Payout) {
		return ErrSettlementMismatch
	}
	return nil
}
