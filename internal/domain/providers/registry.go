package providers

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"servipago/internal/domain/entities"

	"github.com/shopspring/decimal"
)

const (
	ProviderWompi       = "wompi"
	ProviderMercadoPago = "mercadopago"
	ProviderPayU        = "payu"
)

var (
	ErrUnknownProvider      = errors.New("unknown payment provider")
	ErrDefaultNotConfigured = errors.New("default payment provider not configured")
	ErrNoProviderAvailable  = errors.New("no payment provider available")
)

// Registry holds the provider descriptors and the per-method selection order.
// It is built once at boot and read-only afterwards.

type Registry struct {
	descriptors map[string]Descriptor
	order       map[entities.PaymentMethod][]string
	defaultKey  string
}

// LoadRegistry builds the registry from the built-in descriptor table,
// resolving credentials and webhook secrets from the environment:
//
//   - WOMPI_PRIVATE_KEY / WOMPI_EVENTS_SECRET
//   - MERCADOPAGO_ACCESS_TOKEN / MERCADOPAGO_WEBHOOK_SECRET
//   - PAYU_API_KEY (+PAYU_API_LOGIN) / PAYU_WEBHOOK_SECRET
//   - DEFAULT_PROVIDER (default: wompi)
//
// With PAYMENT_GATEWAY_MOCK enabled every descriptor is treated as
// configured so the service runs without real credentials.
func LoadRegistry() (*Registry, error) {
	mockMode := isPaymentGatewayMockEnabled()

	descriptors := builtinDescriptors()
	if mockMode {
		log.Printf("[providers][registry] mock mode enabled; treating all providers as configured")
		for key, d := range descriptors {
			d.AccessToken = "mock"
			if d.WebhookSecret == "" {
				d.WebhookSecret = "mock-secret"
			}
			descriptors[key] = d
		}
	}

	defaultKey := strings.TrimSpace(getenvDefault("DEFAULT_PROVIDER", ProviderWompi))
	def, ok := descriptors[defaultKey]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, defaultKey)
	}
	if !def.Configured() {
		return nil, fmt.Errorf("%w: %s", ErrDefaultNotConfigured, defaultKey)
	}

	configured := make([]string, 0, len(descriptors))
	for key, d := range descriptors {
		if d.Configured() {
			configured = append(configured, key)
		}
	}
	log.Printf("[providers][registry] loaded providers=%d configured=%v default=%s", len(descriptors), configured, defaultKey)

	return &Registry{
		descriptors: descriptors,
		order: map[entities.PaymentMethod][]string{
			entities.PaymentMethodPSE:        {ProviderWompi, ProviderPayU, ProviderMercadoPago},
			entities.PaymentMethodNequi:      {ProviderWompi, ProviderPayU},
			entities.PaymentMethodCreditCard: {ProviderMercadoPago, ProviderWompi, ProviderPayU},
		},
		defaultKey: defaultKey,
	}, nil
}

func builtinDescriptors() map[string]Descriptor {
	return map[string]Descriptor{
		ProviderWompi: {
			Key:      ProviderWompi,
			Name:     "Wompi",
			Currency: entities.DefaultCurrency,
			MethodRates: map[entities.PaymentMethod]decimal.Decimal{
				entities.PaymentMethodPSE:   decimal.RequireFromString("0.015"),
				entities.PaymentMethodNequi: decimal.RequireFromString("0.02"),
			},
			CardRate:      decimal.RequireFromString("0.0265"),
			FixedFee:      900,
			MinAmount:     1500,
			MaxAmount:     20_000_000,
			Methods:       []entities.PaymentMethod{entities.PaymentMethodPSE, entities.PaymentMethodNequi, entities.PaymentMethodCreditCard},
			AccessToken:   strings.TrimSpace(os.Getenv("WOMPI_PRIVATE_KEY")),
			WebhookSecret: strings.TrimSpace(os.Getenv("WOMPI_EVENTS_SECRET")),
		},
		ProviderMercadoPago: {
			Key:      ProviderMercadoPago,
			Name:     "Mercado Pago",
			Currency: entities.DefaultCurrency,
			MethodRates: map[entities.PaymentMethod]decimal.Decimal{
				entities.PaymentMethodPSE: decimal.RequireFromString("0.0229"),
			},
			CardRate:      decimal.RequireFromString("0.0349"),
			FixedFee:      800,
			MinAmount:     1000,
			MaxAmount:     50_000_000,
			Methods:       []entities.PaymentMethod{entities.PaymentMethodCreditCard, entities.PaymentMethodPSE},
			AccessToken:   strings.TrimSpace(os.Getenv("MERCADOPAGO_ACCESS_TOKEN")),
			WebhookSecret: strings.TrimSpace(os.Getenv("MERCADOPAGO_WEBHOOK_SECRET")),
		},
		ProviderPayU: {
			Key:      ProviderPayU,
			Name:     "PayU Latam",
			Currency: entities.DefaultCurrency,
			MethodRates: map[entities.PaymentMethod]decimal.Decimal{
				entities.PaymentMethodPSE:   decimal.RequireFromString("0.0239"),
				entities.PaymentMethodNequi: decimal.RequireFromString("0.0249"),
			},
			CardRate:      decimal.RequireFromString("0.0349"),
			FixedFee:      900,
			MinAmount:     2000,
			MaxAmount:     10_000_000,
			Methods:       []entities.PaymentMethod{entities.PaymentMethodCreditCard, entities.PaymentMethodPSE, entities.PaymentMethodNequi},
			AccessToken:   payuCredentials(),
			WebhookSecret: strings.TrimSpace(os.Getenv("PAYU_WEBHOOK_SECRET")),
		},
	}
}

// payuCredentials requires both key and login; a half-configured PayU is
// treated as absent.
func payuCredentials() string {
	apiKey := strings.TrimSpace(os.Getenv("PAYU_API_KEY"))
	apiLogin := strings.TrimSpace(os.Getenv("PAYU_API_LOGIN"))
	if apiKey == "" || apiLogin == "" {
		return ""
	}
	return apiKey
}

// Descriptor returns the descriptor for a provider key.
func (r *Registry) Descriptor(key string) (Descriptor, bool) {
	d, ok := r.descriptors[key]
	return d, ok
}

// Default returns the fallback provider descriptor.
func (r *Registry) Default() Descriptor {
	return r.descriptors[r.defaultKey]
}

// Keys returns all registered provider keys.
func (r *Registry) Keys() []string {
	keys := make([]string, 0, len(r.descriptors))
	for k := range r.descriptors {
		keys = append(keys, k)
	}
	return keys
}

func isPaymentGatewayMockEnabled() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("PAYMENT_GATEWAY_MOCK")))
	switch v {
	case "1", "true", "yes", "on", "mock":
		return true
	}
	return false
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
