package pricing

import (
	"errors"

	"servipago/internal/domain/entities"
	"servipago/internal/domain/providers"

	"github.com/shopspring/decimal"
)

var (
	ErrUnsupportedMethod = errors.New("payment method not supported by provider")
	ErrInvalidAmount     = errors.New("invalid amount")
)

// Fees is the provider processing cost of a charge, in minor units.
//
//	Total == Variable + Fixed
//	Net   == amount - Total
type Fees struct {
	Variable int64
	Fixed    int64
	Total    int64
	Net      int64
}

// FeeRate resolves the variable rate a provider applies to a method:
// the per-method entry when present, otherwise the generic card rate.
func FeeRate(d providers.Descriptor, method entities.PaymentMethod) (decimal.Decimal, error) {
	if !d.Supports(method) {
		return decimal.Zero, ErrUnsupportedMethod
	}
	if rate, ok := d.MethodRates[method]; ok {
		return rate, nil
	}
	if d.CardRate.IsPositive() {
		return d.CardRate, nil
	}
	return decimal.Zero, ErrUnsupportedMethod
}

// ComputeFees calculates the provider cost of charging amount through the
// given provider and method. The variable part is rounded to the nearest
// minor unit.
func ComputeFees(d providers.Descriptor, method entities.PaymentMethod, amount int64) (Fees, error) {
	if amount <= 0 {
		return Fees{}, ErrInvalidAmount
	}
	rate, err := FeeRate(d, method)
	if err != nil {
		return Fees{}, err
	}

	variable := decimal.NewFromInt(amount).Mul(rate).Round(0).IntPart()
	total := variable + d.FixedFee
	return Fees{
		Variable: variable,
		Fixed:    d.FixedFee,
		Total:    total,
		Net:      amount - total,
	}, nil
}

// PlatformFee is the marketplace commission withheld from the professional
// payout, rounded to the nearest minor unit.
func PlatformFee(amount int64, commissionRate decimal.Decimal) int64 {
	if amount <= 0 {
		return 0
	}
	return decimal.NewFromInt(amount).Mul(commissionRate).Round(0).IntPart()
}
