package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
	"go.opentelemetry.io/otel/attribute"
)

// Config holds all configuration for the command.
type Config struct {
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Catalog
	CatalogPath         string `envconfig:"CATALOG_PATH" default:"catalog.yaml"`
	ShippingTaxStrategy string `envconfig:"SHIPPING_TAX_STRATEGY"`
	RefreshConcurrency  int    `envconfig:"REFRESH_CONCURRENCY" default:"4"`

	// Carrier
	CarrierUseMock  bool   `envconfig:"CARRIER_USE_MOCK" default:"true"`
	CarrierCurrency string `envconfig:"CARRIER_CURRENCY" default:"USD"`

	// Freightcom
	FreightcomEnabled          bool   `envconfig:"FREIGHTCOM_ENABLED" default:"false"`
	FreightcomAPIKey           string `envconfig:"FREIGHTCOM_API_KEY"`
	FreightcomBaseURL          string `envconfig:"FREIGHTCOM_BASE_URL" default:"https://api.freightcom.com/v1"`
	FreightcomOriginCity       string `envconfig:"FREIGHTCOM_ORIGIN_CITY"`
	FreightcomOriginProvince   string `envconfig:"FREIGHTCOM_ORIGIN_PROVINCE"`
	FreightcomOriginPostalCode string `envconfig:"FREIGHTCOM_ORIGIN_POSTAL_CODE"`
	FreightcomOriginCountry    string `envconfig:"FREIGHTCOM_ORIGIN_COUNTRY" default:"CA"`

	// Telemetry
	OTELEnabled  bool   `envconfig:"OTEL_ENABLED" default:"false"`
	OTELEndpoint string `envconfig:"OTEL_ENDPOINT" default:"http://localhost:4318"`
	ServiceName  string `envconfig:"SERVICE_NAME" default:"shipping"`
	Version      string `envconfig:"SERVICE_VERSION" default:"0.0.1"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if cfg.RefreshConcurrency < 1 {
		return nil, fmt.Errorf("loading config: REFRESH_CONCURRENCY must be positive, got %d", cfg.RefreshConcurrency)
	}
	return &cfg, nil
}

// Attributes returns OpenTelemetry attributes for this configuration.
func (c *Config) Attributes() []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("service.name", c.ServiceName),
		attribute.String("service.version", c.Version),
		attribute.String("catalog.path", c.CatalogPath),
		attribute.String("shipping_tax.strategy", c.ShippingTaxStrategy),
		attribute.Int("refresh.concurrency", c.RefreshConcurrency),
		attribute.Bool("carrier.mock", c.CarrierUseMock),
		attribute.Bool("freightcom.enabled", c.FreightcomEnabled),
	}
}
