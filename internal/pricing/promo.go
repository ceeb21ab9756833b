package pricing

import (
	"errors"
	"fmt"
	"time"

	"github.com/hisiddique/bloodathome/internal/domain/entity"

	"github.com/shopspring/decimal"
)

// ErrPromoInvalid is the parent of every promo rejection; callers that only
// need to know "the code cannot be used" match on it with errors.Is.
var ErrPromoInvalid = errors.New("promo code is not valid")

var (
	ErrPromoNotFound         = fmt.Errorf("%w: code not found", ErrPromoInvalid)
	ErrPromoInactive         = fmt.Errorf("%w: code is inactive", ErrPromoInvalid)
	ErrPromoNotStarted       = fmt.Errorf("%w: code is not valid yet", ErrPromoInvalid)
	ErrPromoExpired          = fmt.Errorf("%w: code has expired", ErrPromoInvalid)
	ErrPromoExhausted        = fmt.Errorf("%w: usage limit reached", ErrPromoInvalid)
	ErrPromoUserLimitReached = fmt.Errorf("%w: you have already used this code", ErrPromoInvalid)
	ErrPromoBelowMinimum     = fmt.Errorf("%w: order is below the minimum amount", ErrPromoInvalid)
)

// ValidatePromo checks whether promo may be used at now by an owner who has
// already used it userUsage times. It never writes anything.
func ValidatePromo(promo *entity.PromoCode, now time.Time, userUsage int) error {
	if promo == nil {
		return ErrPromoNotFound
	}
	if !promo.IsActive {
		return ErrPromoInactive
	}
	if now.Before(promo.ValidFrom) {
		return ErrPromoNotStarted
	}
	if promo.ValidUntil != nil && now.After(*promo.ValidUntil) {
		return ErrPromoExpired
	}
	if promo.UsageLimit != nil && promo.UsageCount >= *promo.UsageLimit {
		return ErrPromoExhausted
	}
	if promo.PerUserLimit != nil && userUsage >= *promo.PerUserLimit {
		return ErrPromoUserLimitReached
	}
	return nil
}

// Discount computes the promo discount on subtotal. Percentage discounts are
// rounded to 2dp; the result is capped by MaxDiscount and by the subtotal.
func Discount(promo *entity.PromoCode, subtotal decimal.Decimal) (decimal.Decimal, error) {
	if promo == nil {
		return decimal.Zero, nil
	}
	if promo.MinOrderAmount != nil && subtotal.LessThan(*promo.MinOrderAmount) {
		return decimal.Zero, ErrPromoBelowMinimum
	}

	var discount decimal.Decimal
	switch promo.DiscountType {
	case entity.DiscountPercentage:
		discount = Round(subtotal.Mul(promo.Value).Div(hundred))
	case entity.DiscountFixed:
		discount = Round(promo.Value)
	default:
		return decimal.Zero, fmt.Errorf("%w: unknown discount type %q", ErrPromoInvalid, promo.DiscountType)
	}

	if promo.MaxDiscount != nil && discount.GreaterThan(*promo.MaxDiscount) {
		discount = Round(*promo.MaxDiscount)
	}
	if discount.GreaterThan(subtotal) {
		discount = subtotal
	}
	if discount.IsNegative() {
		discount = decimal.Zero
	}
	return discount, nil
}
