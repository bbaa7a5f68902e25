// Package feesplit turns an agreement total and a partner commission into the
// platform fee, partner gain and funder remainder.
//
// Amounts are diamonds with two decimal places. The fee and the gain are
// rounded half-even to cents exactly once; the funder remainder absorbs the
// rounding so the three parts always add back to the total.
package feesplit

import (
	"errors"

	"github.com/shopspring/decimal"
)

const (
	// MaxCommissionPct is the highest partner commission an agreement may carry.
	MaxCommissionPct = 40
	// AmountPlaces is the number of decimal places money is kept at.
	AmountPlaces = 2
)

var (
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidCommission = errors.New("invalid commission")
)

var (
	platformFeeRate = decimal.RequireFromString("0.15")
	hundred         = decimal.NewFromInt(100)
	maxCommission   = decimal.NewFromInt(MaxCommissionPct)
)

// Split is the frozen money breakdown of one agreement.
type Split struct {
	Total       decimal.Decimal `json:"total_amount"`
	PlatformFee decimal.Decimal `json:"platform_fee_amount"`
	PartnerGain decimal.Decimal `json:"partner_gain_amount"`
	NetToFunder decimal.Decimal `json:"net_to_funder_amount"`
}

// Sum adds the three parts back together.
func (s Split) Sum() decimal.Decimal {
	return s.PlatformFee.Add(s.PartnerGain).Add(s.NetToFunder)
}

// Calculate computes the split for a whole-percent commission.
func Calculate(total decimal.Decimal, commissionPct int) (Split, error) {
	if commissionPct < 0 || commissionPct > MaxCommissionPct {
		return Split{}, ErrInvalidCommission
	}
	return CalculateRate(total, decimal.NewFromInt(int64(commissionPct)))
}

// CalculateRate computes the split for a possibly fractional commission.
// Dispute settlements use it to scale the partner share down.
func CalculateRate(total, commissionPct decimal.Decimal) (Split, error) {
	if err := ValidateAmount(total); err != nil {
		return Split{}, err
	}
	if commissionPct.IsNegative() || commissionPct.GreaterThan(maxCommission) {
		return Split{}, ErrInvalidCommission
	}

	fee := total.Mul(platformFeeRate).RoundBank(AmountPlaces)
	gain := total.Mul(commissionPct).Div(hundred).RoundBank(AmountPlaces)
	return Split{
		Total:       total,
		PlatformFee: fee,
		PartnerGain: gain,
		NetToFunder: total.Sub(fee).Sub(gain),
	}, nil
}

// ValidateAmount rejects non-positive amounts and amounts finer than a cent.
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	if !amount.Equal(amount.Truncate(AmountPlaces)) {
		return ErrInvalidAmount
	}
	return nil
}
