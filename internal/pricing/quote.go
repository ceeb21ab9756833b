package pricing

import (
	"errors"

	"github.com/hisiddique/bloodathome/internal/domain/entity"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrNoLines              = errors.New("nothing to price")
	ErrTaxBreakdownMismatch = errors.New("tax breakdown does not sum to vat")
	ErrQuoteIdentity        = errors.New("quote totals do not reconcile")
)

var hundred = decimal.NewFromInt(100)

const TaxNameVAT = "VAT"

// Round rounds money to 2 decimal places, halves away from zero (half-up
// for the non-negative amounts handled here).
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Line is one service priced from the provider's current offer
type Line struct {
	ServiceID         uuid.UUID       `json:"service_id"`
	OfferID           uuid.UUID       `json:"offer_id"`
	Name              string          `json:"name"`
	Cost              decimal.Decimal `json:"cost"`
	CommissionPercent decimal.Decimal `json:"commission_percent"`
}

type TaxComponent struct {
	Name        string          `json:"name"`
	RatePercent decimal.Decimal `json:"rate_percent"`
	Amount      decimal.Decimal `json:"amount"`
}

// Quote is an authoritative price for a draft
type Quote struct {
	Lines        []Line            `json:"lines"`
	Subtotal     decimal.Decimal   `json:"subtotal"`
	FeePercent   decimal.Decimal   `json:"fee_percent"`
	ServiceFee   decimal.Decimal   `json:"service_fee"`
	VATPercent   decimal.Decimal   `json:"vat_percent"`
	VAT          decimal.Decimal   `json:"vat"`
	Discount     decimal.Decimal   `json:"discount"`
	GrandTotal   decimal.Decimal   `json:"grand_total"`
	Currency     string            `json:"currency"`
	Promo        *entity.PromoCode `json:"-"`
	TaxBreakdown []TaxComponent    `json:"tax_breakdown"`
}

// AmountMinor is the grand total in minor units (pence)
func (q Quote) AmountMinor() int64 {
	return q.GrandTotal.Shift(2).IntPart()
}

// PromoCode returns the applied code, "" when none
func (q Quote) PromoCode() string {
	if q.Promo == nil {
		return ""
	}
	return q.Promo.Code
}

// Verify re-checks the totals identity and the tax breakdown sum.
func (q Quote) Verify() error {
	expected := q.Subtotal.Add(q.ServiceFee).Add(q.VAT).Sub(q.Discount)
	if expected.IsNegative() {
		expected = decimal.Zero
	}
	if !expected.Equal(q.GrandTotal) || q.GrandTotal.IsNegative() {
		return ErrQuoteIdentity
	}
	taxSum := decimal.Zero
	for _, t := range q.TaxBreakdown {
		taxSum = taxSum.Add(t.Amount)
	}
	if !taxSum.Equal(q.VAT) {
		return ErrTaxBreakdownMismatch
	}
	return nil
}

// Engine applies the platform fee and VAT
type Engine struct {
	FeePercent decimal.Decimal
	VATPercent decimal.Decimal
	Currency   string
}

func NewEngine(feePercent, vatPercent float64, currency string) Engine {
	return Engine{
		FeePercent: decimal.NewFromFloat(feePercent),
		VATPercent: decimal.NewFromFloat(vatPercent),
		Currency:   currency,
	}
}

// Price computes the quote in a fixed order, rounding each figure to 2dp
// before the next one uses it:
//
//	subtotal   = Σ line cost
//	serviceFee = subtotal × fee%
//	vat        = (subtotal + serviceFee) × vat%
//	discount   = promo discount on subtotal
//	grandTotal = max(0, subtotal + serviceFee + vat − discount)
//
// promo must already have passed ValidatePromo; the min-order gate is
// checked here because it depends on the subtotal.
func (e Engine) Price(lines []Line, promo *entity.PromoCode) (Quote, error) {
	if len(lines) == 0 {
		return Quote{}, ErrNoLines
	}

	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(Round(l.Cost))
	}
	subtotal = Round(subtotal)

	serviceFee := Round(subtotal.Mul(e.FeePercent).Div(hundred))
	vat := Round(subtotal.Add(serviceFee).Mul(e.VATPercent).Div(hundred))

	discount, err := Discount(promo, subtotal)
	if err != nil {
		return Quote{}, err
	}

	grandTotal := Round(subtotal.Add(serviceFee).Add(vat).Sub(discount))
	if grandTotal.IsNegative() {
		grandTotal = decimal.Zero
	}

	q := Quote{
		Lines:      lines,
		Subtotal:   subtotal,
		FeePercent: e.FeePercent,
		ServiceFee: serviceFee,
		VATPercent: e.VATPercent,
		VAT:        vat,
		Discount:   discount,
		GrandTotal: grandTotal,
		Currency:   e.Currency,
		Promo:      promo,
		TaxBreakdown: []TaxComponent{
			{Name: TaxNameVAT, RatePercent: e.VATPercent, Amount: vat},
		},
	}
	if err := q.Verify(); err != nil {
		return Quote{}, err
	}
	return q, nil
}
