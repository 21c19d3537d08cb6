package main

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/tournevent/bookship/internal/config"
	"github.com/tournevent/bookship/internal/deadletter"
	"github.com/tournevent/bookship/internal/ledger"
	"github.com/tournevent/bookship/internal/notify"
	"github.com/tournevent/bookship/internal/payment"
	"github.com/tournevent/bookship/internal/telemetry"
	"github.com/tournevent/bookship/pkg/shipper"
	"github.com/tournevent/bookship/pkg/shipper/sendcloud"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

func loadConfig(validate func(*config.Config) error) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func initLogger(cfg *config.Config) (*otelzap.Logger, error) {
	return telemetry.NewLogger(cfg.LogLevel,
		zap.String("service", cfg.ServiceName),
		zap.String("version", cfg.Version),
	)
}

func initTracer(ctx context.Context, cfg *config.Config) (trace.Tracer, func(context.Context) error, error) {
	if !cfg.OTELEnabled {
		return nil, func(context.Context) error { return nil }, nil
	}
	return telemetry.InitTracer(ctx, cfg.OTELEndpoint, cfg.ServiceName, cfg.Version, cfg.Attributes()...)
}

// initShipperRegistry registers the Sendcloud carrier and returns its name.
func initShipperRegistry(cfg *config.Config, logger *otelzap.Logger, tracer trace.Tracer) (*shipper.Registry, string) {
	registry := shipper.NewRegistry()

	sc := sendcloud.New(sendcloud.Config{
		PublicKey: cfg.SendcloudPublicKey,
		SecretKey: cfg.SendcloudSecretKey,
		BaseURL:   cfg.SendcloudBaseURL,
		UseMock:   cfg.SendcloudUseMock,
	}, logger, tracer)
	registry.Register(sc)

	if cfg.SendcloudUseMock {
		logger.Warn("Sendcloud mock mode enabled, no real shipments will be created")
	}
	logger.Info("Carriers registered",
		zap.Strings("carriers", registry.Names()),
		zap.Int("count", registry.Count()),
	)
	return registry, sc.Name()
}

func initResolver(cfg *config.Config, registry *shipper.Registry, logger *otelzap.Logger) *shipper.Resolver {
	return shipper.NewResolver(registry, shipper.ResolverConfig{
		OriginCountry:    cfg.SenderCountry,
		OriginPostalCode: cfg.SenderPostal,
	}, logger)
}

func initBuilder(cfg *config.Config) *shipper.Builder {
	return shipper.NewBuilder(shipper.BuilderConfig{
		Sender:            cfg.Sender(),
		BrandID:           cfg.SendcloudBrandID,
		CatalogPriceCents: cfg.CatalogPriceCents,
	})
}

func initPaymentProvider(cfg *config.Config, logger *otelzap.Logger) (payment.Provider, error) {
	if cfg.PaymentUseMock {
		logger.Warn("Payment mock mode enabled, checkout sessions and webhooks are not real")
		return payment.NewMockProvider(), nil
	}
	provider, err := payment.NewStripeProvider(payment.StripeConfig{
		SecretKey:     cfg.StripeSecretKey,
		WebhookSecret: cfg.StripeWebhookSecret,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("initializing Stripe: %w", err)
	}
	return provider, nil
}

func initLedger(cfg *config.Config, logger *otelzap.Logger) (ledger.Ledger, func()) {
	if cfg.RedisAddr == "" {
		logger.Info("Using in-memory fulfillment ledger")
		return ledger.NewMemoryLedger(cfg.FulfillmentLedgerTTL), func() {}
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	logger.Info("Using Redis fulfillment ledger", zap.String("addr", cfg.RedisAddr))
	return ledger.NewRedisLedger(rdb, cfg.FulfillmentLedgerTTL), func() {
		if err := rdb.Close(); err != nil {
			logger.Warn("Failed to close Redis client", zap.Error(err))
		}
	}
}

func initDeadLetterSink(cfg *config.Config, logger *otelzap.Logger) (deadletter.Sink, func()) {
	logSink := deadletter.NewLogSink(logger)
	if len(cfg.KafkaBrokers) == 0 {
		return logSink, func() {}
	}

	kafkaSink := deadletter.NewKafkaSink(deadletter.NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaDeadLetterTopic))
	logger.Info("Dead letters go to Kafka",
		zap.Strings("brokers", cfg.KafkaBrokers),
		zap.String("topic", cfg.KafkaDeadLetterTopic),
	)
	return deadletter.Fallback{Primary: kafkaSink, Secondary: logSink}, func() {
		if err := kafkaSink.Close(); err != nil {
			logger.Warn("Failed to close Kafka writer", zap.Error(err))
		}
	}
}

func initNotifier(cfg *config.Config, logger *otelzap.Logger) (notify.Notifier, error) {
	if cfg.SMTPHost == "" {
		logger.Warn("SMTP_HOST not set, order notifications are only logged")
		return notify.NewLogNotifier(logger), nil
	}
	return notify.NewSMTPNotifier(notify.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUser,
		Password: cfg.SMTPPassword,
		From:     cfg.NotifyEmailFrom,
		To:       cfg.NotifyEmailTo,
	}, logger)
}
