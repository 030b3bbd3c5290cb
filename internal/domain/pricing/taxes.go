package pricing

import (
	"log"
	"os"
	"strings"

	"github.com/shopspring/decimal"
)

// Default Colombian rates. IVA applies on top of the service amount;
// retention (retención en la fuente) is withheld from the invoice total
// and must stay within [0%, 4%].
var (
	DefaultIVARate        = decimal.RequireFromString("0.19")
	DefaultRetentionRate  = decimal.Zero
	MaxRetentionRate      = decimal.RequireFromString("0.04")
	DefaultCommissionRate = decimal.RequireFromString("0.10")
)

// Taxes is the tax breakdown of an amount, in minor units.
type Taxes struct {
	IVA       int64
	Retention int64
}

// ComputeTaxes applies IVA and retention rates to an amount, rounding each
// tax to the nearest minor unit.
func ComputeTaxes(amount int64, ivaRate, retentionRate decimal.Decimal) Taxes {
	if amount <= 0 {
		return Taxes{}
	}
	base := decimal.NewFromInt(amount)
	return Taxes{
		IVA:       base.Mul(ivaRate).Round(0).IntPart(),
		Retention: base.Mul(retentionRate).Round(0).IntPart(),
	}
}

// ClampRetention bounds a retention rate to the legal [0, 4%] window.
func ClampRetention(rate decimal.Decimal) decimal.Decimal {
	if rate.IsNegative() {
		return decimal.Zero
	}
	if rate.GreaterThan(MaxRetentionRate) {
		return MaxRetentionRate
	}
	return rate
}

// RateFromEnv reads a decimal rate from the environment, falling back to
// def when the variable is unset or unparsable.
func RateFromEnv(key string, def decimal.Decimal) decimal.Decimal {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	rate, err := decimal.NewFromString(raw)
	if err != nil {
		log.Printf("[pricing] invalid rate in %s=%q; using default %s", key, raw, def)
		return def
	}
	return rate
}
