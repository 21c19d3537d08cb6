package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/tournevent/bookship/internal/checkout"
	"github.com/tournevent/bookship/internal/config"
	"github.com/tournevent/bookship/internal/server"
	"github.com/tournevent/bookship/internal/telemetry"
	"github.com/tournevent/bookship/pkg/shipper"
	"go.uber.org/zap"
)

var version = "0.0.1"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "bookship",
	Short:   "Book checkout and shipping service",
	Version: version,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE:  runServe,
}

var quoteCmd = &cobra.Command{
	Use:   "quote",
	Short: "Print shipping options for a destination",
	RunE:  runQuote,
}

var quoteFlags struct {
	country  string
	postal   string
	pickupID string
	carrier  string
	price    bool
}

func init() {
	quoteCmd.Flags().StringVar(&quoteFlags.country, "country", shipper.HomeCountry, "destination country (ISO 3166-1 alpha-2)")
	quoteCmd.Flags().StringVar(&quoteFlags.postal, "postal", "", "destination postal code")
	quoteCmd.Flags().StringVar(&quoteFlags.pickupID, "pickup-id", "", "pickup point id")
	quoteCmd.Flags().StringVar(&quoteFlags.carrier, "carrier", "", "pickup point carrier code")
	quoteCmd.Flags().BoolVar(&quoteFlags.price, "price", false, "print the checkout price instead of the option list")
	quoteCmd.MarkFlagRequired("postal")

	rootCmd.AddCommand(serveCmd, quoteCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig((*config.Config).Validate)
	if err != nil {
		return err
	}

	logger, err := initLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	tracer, tracerShutdown, err := initTracer(ctx, cfg)
	if err != nil {
		logger.Warn("Failed to initialize tracer", zap.Error(err))
	} else {
		defer tracerShutdown(context.Background())
	}

	registry, carrier := initShipperRegistry(cfg, logger, tracer)
	metrics := telemetry.NewMetrics(prometheus.DefaultRegisterer)
	provider, err := initPaymentProvider(cfg, logger)
	if err != nil {
		return err
	}

	l, closeLedger := initLedger(cfg, logger)
	defer closeLedger()

	sink, closeSink := initDeadLetterSink(cfg, logger)
	defer closeSink()

	notifier, err := initNotifier(cfg, logger)
	if err != nil {
		return err
	}

	quotes := checkout.NewQuoteService(initResolver(cfg, registry, logger), provider, checkout.QuoteConfig{
		SiteURL:           cfg.SiteURL,
		CatalogPriceCents: cfg.CatalogPriceCents,
		ProductName:       cfg.ProductName,
		ShippingLineName:  cfg.ShippingLineName,
		BrandID:           cfg.SendcloudBrandID,
		Carrier:           carrier,
	}, logger, metrics)
	dispatcher := checkout.NewDispatcher(registry, carrier, l, logger, metrics)
	webhook := checkout.NewWebhookService(provider, initBuilder(cfg), dispatcher, notifier, sink, logger, metrics)

	logger.Info("Starting bookship",
		zap.Int("port", cfg.Port),
		zap.String("version", cfg.Version),
		zap.String("origin", cfg.AllowedOrigin()),
	)

	srv := server.New(server.Config{
		Port:          cfg.Port,
		AllowedOrigin: cfg.AllowedOrigin(),
		Gatherer:      prometheus.DefaultGatherer,
	}, quotes, webhook, logger)
	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

func runQuote(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig((*config.Config).ValidateShipping)
	if err != nil {
		return err
	}
	cfg.LogLevel = "warn"

	logger, err := initLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	registry, _ := initShipperRegistry(cfg, logger, nil)
	resolver := initResolver(cfg, registry, logger)

	dest := shipper.Destination{
		Country:           quoteFlags.country,
		PostalCode:        quoteFlags.postal,
		PickupPointID:     quoteFlags.pickupID,
		PickupCarrierCode: quoteFlags.carrier,
	}

	var out any
	if quoteFlags.price {
		out, err = resolver.SelectBestPrice(ctx, dest)
	} else {
		out, err = resolver.ListOptions(ctx, dest)
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
