package providers

import (
	"log"

	"servipago/internal/domain/entities"
)

// Selection is the outcome of provider selection. Fallback marks that no
// priority candidate matched and the default provider took the charge.

type Selection struct {
	Descriptor Descriptor
	Fallback   bool
}

// Select walks the priority list for the method and returns the first
// configured provider that supports the method and accepts the amount.
// When none match, the default provider is returned with Fallback set.
func (r *Registry) Select(method entities.PaymentMethod, amount int64) (Selection, error) {
	for _, key := range r.order[method] {
		d, ok := r.descriptors[key]
		if !ok {
			continue
		}
		if !d.Configured() || !d.Supports(method) || !d.InBounds(amount) {
			continue
		}
		return Selection{Descriptor: d}, nil
	}

	def := r.Default()
	if !def.Configured() {
		return Selection{}, ErrNoProviderAvailable
	}
	log.Printf("[providers][selector] no candidate for method=%s amount=%d; falling back to %s", method, amount, def.Key)
	return Selection{Descriptor: def, Fallback: true}, nil
}
