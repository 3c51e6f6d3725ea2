package square

import (
	"strings"

	sq "github.com/square/square-go-sdk"
)

// RefundParams encapsulates the inputs for a payment refund.
type RefundParams struct {
	PaymentID      string
	AmountCents    int64
	Currency       string
	Reason         string
	IdempotencyKey string
}

func (p RefundParams) toSquareRequest(idempotencyKey, fallbackCurrency string) *sq.RefundPaymentRequest {
	currency := p.Currency
	if strings.TrimSpace(currency) == "" {
		currency = fallbackCurrency
	}
	req := &sq.RefundPaymentRequest{
		IdempotencyKey: idempotencyKey,
		AmountMoney:    moneyPtr(p.AmountCents, currency),
		PaymentID:      ptrString(p.PaymentID),
	}
	if trimmed := strings.TrimSpace(p.Reason); trimmed != "" {
		req.Reason = ptrString(trimmed)
	}
	return req
}

// RefundCompleted reports whether the gateway considers the refund settled.
func RefundCompleted(refund *sq.PaymentRefund) bool {
	return refundStatus(refund) == "COMPLETED"
}

// RefundPending reports whether the refund is still settling.
func RefundPending(refund *sq.PaymentRefund) bool {
	switch refundStatus(refund) {
	case "PENDING", "":
		return true
	default:
		return false
	}
}

// RefundFailed reports whether the gateway rejected or failed the refund.
func RefundFailed(refund *sq.PaymentRefund) bool {
	switch refundStatus(refund) {
	case "FAILED", "REJECTED":
		return true
	default:
		return false
	}
}

func refundStatus(refund *sq.PaymentRefund) string {
	if refund == nil {
		return ""
	}
	return strings.ToUpper(strings.TrimSpace(stringValue(refund.GetStatus())))
}

func ptrString(value string) *string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return &value
}

func int64Ptr(value int64) *int64 {
	return &value
}

func currencyPtr(code string) *sq.Currency {
	trimmed := strings.ToUpper(strings.TrimSpace(code))
	if trimmed == "" {
		trimmed = "USD"
	}
	c := sq.Currency(trimmed)
	return &c
}

func moneyPtr(amount int64, currency string) *sq.Money {
	if amount == 0 {
		return nil
	}
	return &sq.Money{
		Amount:   int64Ptr(amount),
		Currency: currencyPtr(currency),
	}
}
