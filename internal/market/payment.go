package market

import (
	"fmt"
	"strings"
)

// PaymentMethod is how a buyer paid at the checkout register.
type PaymentMethod string

const (
	PayCash  PaymentMethod = "cash"
	PayCard  PaymentMethod = "card"
	PayCheck PaymentMethod = "check"
)

func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch m := PaymentMethod(strings.ToLower(strings.TrimSpace(s))); m {
	case PayCash, PayCard, PayCheck:
		return m, nil
	default:
		return "", fmt.Errorf("%w: unknown payment method %q", ErrInvalidArgument, s)
	}
}

// PayoutMethod is how the organizers paid a depositor.
type PayoutMethod string

const (
	PayoutByCash     PayoutMethod = "cash"
	PayoutByCheck    PayoutMethod = "check"
	PayoutByTransfer PayoutMethod = "transfer"
)

func ParsePayoutMethod(s string) (PayoutMethod, error) {
	switch m := PayoutMethod(strings.ToLower(strings.TrimSpace(s))); m {
	case PayoutByCash, PayoutByCheck, PayoutByTransfer:
		return m, nil
	default:
		return "", fmt.Errorf("%w: unknown payout method %q", ErrInvalidArgument, s)
	}
}

func ValidateRegister(n int) error {
	if n < 1 {
		return fmt.Errorf("%w: register number must be >= 1, got %d", ErrInvalidArgument, n)
	}
	return nil
}
