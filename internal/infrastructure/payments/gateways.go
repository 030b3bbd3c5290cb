package payments

import (
	"log"
	"os"
	"strings"

	"servipago/internal/domain/providers"
	"servipago/internal/usecase/interfaces"
)

// GatewaySet holds one charge adapter per configured provider and resolves
// them by key for the payment and webhook flows.

type GatewaySet struct {
	gateways map[string]interfaces.IPaymentGateway
}

var _ interfaces.IPaymentGatewayResolver = (*GatewaySet)(nil)

// BuildGateways constructs adapters for every configured provider in the
// registry. In mock mode every provider gets a deterministic in-process
// gateway so the service runs without real credentials.
func BuildGateways(reg *providers.Registry) (*GatewaySet, error) {
	set := &GatewaySet{gateways: make(map[string]interfaces.IPaymentGateway)}

	if isPaymentGatewayMockEnabled() {
		log.Printf("[payment][gateway] mock mode enabled")
		for _, key := range reg.Keys() {
			d, _ := reg.Descriptor(key)
			set.gateways[key] = NewMockGateway(key, d.WebhookSecret)
		}
		return set, nil
	}

	for _, key := range reg.Keys() {
		d, ok := reg.Descriptor(key)
		if !ok || !d.Configured() {
			continue
		}
		switch key {
		case providers.ProviderWompi:
			set.gateways[key] = NewWompiGateway(d.AccessToken, d.WebhookSecret)
		case providers.ProviderMercadoPago:
			gw, err := NewMercadoPagoGateway(d.AccessToken, d.WebhookSecret)
			if err != nil {
				return nil, err
			}
			set.gateways[key] = gw
		case providers.ProviderPayU:
			set.gateways[key] = NewPayUGateway(d.AccessToken, strings.TrimSpace(os.Getenv("PAYU_API_LOGIN")), d.WebhookSecret)
		}
	}

	log.Printf("[payment][gateway] adapters ready count=%d", len(set.gateways))
	return set, nil
}

func (s *GatewaySet) ForProvider(key string) (interfaces.IPaymentGateway, bool) {
	gw, ok := s.gateways[key]
	return gw, ok
}

func isPaymentGatewayMockEnabled() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("PAYMENT_GATEWAY_MOCK")))
	switch v {
	case "1", "true", "yes", "on", "mock":
		return true
	}
	return false
}
