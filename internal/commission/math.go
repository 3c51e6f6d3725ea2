package commission

import "github.com/shopspring/decimal"

// Compute splits a line's final price into platform commission and vendor
// earnings. Rounding is half away from zero on the commission side so the two
// parts always sum exactly to the input.
func Compute(finalPriceCents int, rate decimal.Decimal) (commissionCents, vendorEarningsCents int) {
	if finalPriceCents <= 0 {
		return 0, 0
	}
	commission := decimal.NewFromInt(int64(finalPriceCents)).Mul(rate).Round(0)
	commissionCents = int(commission.IntPart())
	if commissionCents < 0 {
		commissionCents = 0
	}
	if commissionCents > finalPriceCents {
		commissionCents = finalPriceCents
	}
	return commissionCents, finalPriceCents - commissionCents
}

// ReverseAmount computes how much commission to give back for a refund. The
// reversal is proportional to the refunded share of the order total and never
// exceeds the commission originally charged.
func ReverseAmount(refundCents, orderTotalCents, commissionCents int) int {
	if refundCents <= 0 || orderTotalCents <= 0 || commissionCents <= 0 {
		return 0
	}
	ratio := decimal.NewFromInt(int64(refundCents)).Div(decimal.NewFromInt(int64(orderTotalCents)))
	if ratio.GreaterThan(decimal.NewFromInt(1)) {
		ratio = decimal.NewFromInt(1)
	}
	reverse := decimal.NewFromInt(int64(commissionCents)).Mul(ratio).Round(0)
	amount := int(reverse.IntPart())
	if amount > commissionCents {
		amount = commissionCents
	}
	return amount
}
