package commission

import (
	"testing"

	"github.com/shopspring/decimal"
)

func rate(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestComputeSplitsExactly(t *testing.T) {
	tests := []struct {
		name           string
		finalPrice     int
		rate           string
		wantCommission int
	}{
		{name: "ten percent even", finalPrice: 10000, rate: "0.10", wantCommission: 1000},
		{name: "rounds half up", finalPrice: 1005, rate: "0.105", wantCommission: 106},
		{name: "rounds down below half", finalPrice: 1004, rate: "0.105", wantCommission: 105},
		{name: "zero rate", finalPrice: 5000, rate: "0", wantCommission: 0},
		{name: "full rate", finalPrice: 5000, rate: "1", wantCommission: 5000},
		{name: "one cent line", finalPrice: 1, rate: "0.15", wantCommission: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			commission, earnings := Compute(tt.finalPrice, rate(tt.rate))
			if commission != tt.wantCommission {
				t.Fatalf("expected commission %d got %d", tt.wantCommission, commission)
			}
			if commission+earnings != tt.finalPrice {
				t.Fatalf("commission %d + earnings %d != final price %d", commission, earnings, tt.finalPrice)
			}
		})
	}
}

func TestComputeNonPositivePrice(t *testing.T) {
	if c, e := Compute(0, rate("0.10")); c != 0 || e != 0 {
		t.Fatalf("zero price should split to zero, got %d/%d", c, e)
	}
	if c, e := Compute(-100, rate("0.10")); c != 0 || e != 0 {
		t.Fatalf("negative price should split to zero, got %d/%d", c, e)
	}
}

func TestReverseAmountProportional(t *testing.T) {
	tests := []struct {
		name       string
		refund     int
		total      int
		commission int
		want       int
	}{
		{name: "full refund reverses all", refund: 10000, total: 10000, commission: 1000, want: 1000},
		{name: "half refund reverses half", refund: 5000, total: 10000, commission: 1000, want: 500},
		{name: "refund over total is capped", refund: 20000, total: 10000, commission: 1000, want: 1000},
		{name: "tiny refund rounds", refund: 1, total: 10000, commission: 1000, want: 0},
		{name: "rounding never exceeds commission", refund: 9999, total: 10000, commission: 3, want: 3},
		{name: "zero refund", refund: 0, total: 10000, commission: 1000, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ReverseAmount(tt.refund, tt.total, tt.commission)
			if got != tt.want {
				t.Fatalf("expected reversal %d got %d", tt.want, got)
			}
			if got > tt.commission {
				t.Fatalf("reversal %d exceeds commission %d", got, tt.commission)
			}
		})
	}
}
