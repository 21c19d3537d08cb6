package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/tournevent/bookship/pkg/shipper"
	"go.opentelemetry.io/otel/attribute"
)

// Config holds all configuration for the service.
type Config struct {
	// Server
	Port     int    `envconfig:"PORT" default:"80"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	SiteURL  string `envconfig:"SITE_URL" default:"http://localhost:3000"`

	// Catalog
	CatalogPriceCents int64  `envconfig:"CATALOG_PRICE_CENTS" default:"3000"`
	ProductName       string `envconfig:"PRODUCT_NAME" default:"Livre"`
	ShippingLineName  string `envconfig:"SHIPPING_LINE_NAME" default:"Frais de livraison"`

	// Sendcloud
	SendcloudPublicKey string `envconfig:"SENDCLOUD_PUBLIC_KEY"`
	SendcloudSecretKey string `envconfig:"SENDCLOUD_SECRET_KEY"`
	SendcloudBaseURL   string `envconfig:"SENDCLOUD_BASE_URL" default:"https://panel.sendcloud.sc/api/v3"`
	SendcloudUseMock   bool   `envconfig:"SENDCLOUD_USE_MOCK" default:"false"`
	SendcloudBrandID   int    `envconfig:"SENDCLOUD_BRAND_ID"`

	// Rate API origin
	SenderCountry string `envconfig:"SENDCLOUD_SENDER_COUNTRY" default:"FR"`
	SenderPostal  string `envconfig:"SENDCLOUD_SENDER_POSTAL"`

	// Shipment sender identity
	SenderName        string `envconfig:"SENDCLOUD_SENDER_NAME"`
	SenderEmail       string `envconfig:"SENDCLOUD_SENDER_EMAIL"`
	SenderStreet      string `envconfig:"SENDCLOUD_SENDER_STREET"`
	SenderStreet2     string `envconfig:"SENDCLOUD_SENDER_STREET2"`
	SenderPostalCode  string `envconfig:"SENDCLOUD_SENDER_POSTAL_CODE"`
	SenderCity        string `envconfig:"SENDCLOUD_SENDER_CITY"`
	SenderCountryCode string `envconfig:"SENDCLOUD_SENDER_COUNTRY_CODE" default:"FR"`

	// Stripe
	StripeSecretKey     string `envconfig:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret string `envconfig:"STRIPE_WEBHOOK_SECRET"`
	PaymentUseMock      bool   `envconfig:"PAYMENT_USE_MOCK" default:"false"`

	// Notification
	SMTPHost        string   `envconfig:"SMTP_HOST"`
	SMTPPort        int      `envconfig:"SMTP_PORT" default:"587"`
	SMTPUser        string   `envconfig:"SMTP_USER"`
	SMTPPassword    string   `envconfig:"SMTP_PASSWORD"`
	NotifyEmailFrom string   `envconfig:"NOTIFY_EMAIL_FROM"`
	NotifyEmailTo   []string `envconfig:"NOTIFY_EMAIL_TO"`

	// Fulfillment ledger
	RedisAddr            string        `envconfig:"REDIS_ADDR"`
	RedisPassword        string        `envconfig:"REDIS_PASSWORD"`
	RedisDB              int           `envconfig:"REDIS_DB" default:"0"`
	FulfillmentLedgerTTL time.Duration `envconfig:"FULFILLMENT_LEDGER_TTL" default:"720h"`

	// Dead letters
	KafkaBrokers         []string `envconfig:"KAFKA_BROKERS"`
	KafkaDeadLetterTopic string   `envconfig:"KAFKA_DEAD_LETTER_TOPIC" default:"bookship.dead-letter"`

	// Telemetry
	OTELEnabled  bool   `envconfig:"OTEL_ENABLED" default:"true"`
	OTELEndpoint string `envconfig:"OTEL_ENDPOINT" default:"http://localhost:4318"`
	ServiceName  string `envconfig:"SERVICE_NAME" default:"bookship"`
	Version      string `envconfig:"SERVICE_VERSION" default:"0.0.1"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return &cfg, nil
}

// Validate reports settings the service cannot run without.
func (c *Config) Validate() error {
	errs := []error{c.ValidateShipping()}
	if !c.PaymentUseMock && c.StripeSecretKey == "" {
		errs = append(errs, errors.New("STRIPE_SECRET_KEY is required unless PAYMENT_USE_MOCK is set"))
	}
	if !c.PaymentUseMock && strings.TrimSpace(c.StripeWebhookSecret) == "" {
		errs = append(errs, errors.New("STRIPE_WEBHOOK_SECRET is required unless PAYMENT_USE_MOCK is set"))
	}
	if c.CatalogPriceCents <= 0 {
		errs = append(errs, fmt.Errorf("CATALOG_PRICE_CENTS must be positive, got %d", c.CatalogPriceCents))
	}
	if c.SMTPHost != "" && (c.NotifyEmailFrom == "" || len(c.NotifyEmailTo) == 0) {
		errs = append(errs, errors.New("NOTIFY_EMAIL_FROM and NOTIFY_EMAIL_TO are required when SMTP_HOST is set"))
	}
	return errors.Join(errs...)
}

// ValidateShipping reports the settings rate lookups need. The quote
// command runs with these alone.
func (c *Config) ValidateShipping() error {
	if !c.SendcloudUseMock && (c.SendcloudPublicKey == "" || c.SendcloudSecretKey == "") {
		return errors.New("SENDCLOUD_PUBLIC_KEY and SENDCLOUD_SECRET_KEY are required unless SENDCLOUD_USE_MOCK is set")
	}
	return nil
}

// AllowedOrigin returns the site origin used for CORS.
func (c *Config) AllowedOrigin() string {
	return strings.TrimRight(c.SiteURL, "/")
}

// Sender returns the shipment sender address.
func (c *Config) Sender() shipper.Address {
	return shipper.Address{
		Name:        c.SenderName,
		Email:       c.SenderEmail,
		Line1:       c.SenderStreet,
		Line2:       c.SenderStreet2,
		PostalCode:  c.SenderPostalCode,
		City:        c.SenderCity,
		CountryCode: c.SenderCountryCode,
	}
}

// Attributes returns OpenTelemetry attributes for this configuration.
func (c *Config) Attributes() []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("service.name", c.ServiceName),
		attribute.String("service.version", c.Version),
		attribute.Bool("sendcloud.mock", c.SendcloudUseMock),
		attribute.Bool("payment.mock", c.PaymentUseMock),
		attribute.Bool("ledger.redis", c.RedisAddr != ""),
		attribute.Bool("deadletter.kafka", len(c.KafkaBrokers) > 0),
		attribute.Bool("notify.smtp", c.SMTPHost != ""),
	}
}
