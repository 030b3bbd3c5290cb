package providers

import (
	"servipago/internal/domain/entities"

	"github.com/shopspring/decimal"
)

// Descriptor is the static profile of a payment provider: supported methods,
// fee schedule, amount bounds and the credential material resolved at boot.
// Descriptors are immutable after LoadRegistry.
//
// Fee schedule:
//   - MethodRates carries per-method variable rates (e.g. pse, nequi).
//   - CardRate is the generic card rate used when a supported method has no
//     dedicated entry.
//   - FixedFee is charged once per transaction, in minor units.

type Descriptor struct {
	Key      string
	Name     string
	Currency string

	MethodRates map[entities.PaymentMethod]decimal.Decimal
	CardRate    decimal.Decimal
	FixedFee    int64

	MinAmount int64
	MaxAmount int64
	Methods   []entities.PaymentMethod

	AccessToken   string
	WebhookSecret string
}

// Configured reports whether the provider has usable credentials.
func (d Descriptor) Configured() bool {
	return d.AccessToken != ""
}

func (d Descriptor) Supports(method entities.PaymentMethod) bool {
	for _, m := range d.Methods {
		if m == method {
			return true
		}
	}
	return false
}

// InBounds reports whether the provider accepts a charge of this size.
func (d Descriptor) InBounds(amount int64) bool {
	if amount < d.MinAmount {
		return false
	}
	if d.MaxAmount > 0 && amount > d.MaxAmount {
		return false
	}
	return true
}
