package market

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// FeeRates is the commission/fee policy applied to one edition.
type FeeRates struct {
	CommissionRate decimal.Decimal `json:"commission_rate"`
	ListFee        decimal.Decimal `json:"list_fee"`
}

func (r FeeRates) Validate() error {
	if r.CommissionRate.IsNegative() || r.CommissionRate.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("%w: commission rate %s outside [0,1]", ErrInvalidArgument, r.CommissionRate)
	}
	if r.ListFee.IsNegative() {
		return fmt.Errorf("%w: negative list fee %s", ErrInvalidArgument, r.ListFee)
	}
	return nil
}

// Amounts is the money side of a payout.
type Amounts struct {
	Gross      decimal.Decimal
	Commission decimal.Decimal
	ListFees   decimal.Decimal
	Net        decimal.Decimal
}

// ComputeAmounts derives commission and net from gross. Commission is rounded
// to cents; net never goes below zero.
func ComputeAmounts(gross decimal.Decimal, r FeeRates) Amounts {
	commission := gross.Mul(r.CommissionRate).Round(2)
	net := gross.Sub(commission).Sub(r.ListFee)
	if net.IsNegative() {
		net = decimal.Zero
	}
	return Amounts{Gross: gross, Commission: commission, ListFees: r.ListFee, Net: net}
}

// Apply overwrites the amount fields of p, keeping net derived.
func (a Amounts) Apply(p *Payout) {
	p.Gross = a.Gross
	p.Commission = a.Commission
	p.ListFees = a.ListFees
	p.Net = a.Net
}
