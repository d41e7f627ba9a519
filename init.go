package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/tournevent/shipping/internal/catalog"
	"github.com/tournevent/shipping/internal/config"
	"github.com/tournevent/shipping/internal/refresh"
	"github.com/tournevent/shipping/internal/store"
	"github.com/tournevent/shipping/internal/telemetry"
	"github.com/tournevent/shipping/pkg/order"
	"github.com/tournevent/shipping/pkg/ordermanager"
	"github.com/tournevent/shipping/pkg/packer"
	"github.com/tournevent/shipping/pkg/processor"
	"github.com/tournevent/shipping/pkg/promotion"
	"github.com/tournevent/shipping/pkg/shipping"
	"github.com/tournevent/shipping/pkg/shipping/carrier/freightcom"
	"github.com/tournevent/shipping/pkg/shipping/method"
	"github.com/tournevent/shipping/pkg/shipping/mock"
	"github.com/tournevent/shipping/pkg/subscriber"
	"github.com/tournevent/shipping/pkg/tax"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel"
)

func loadConfig() (*config.Config, error) {
	return config.Load()
}

func initLogger(level string) (*otelzap.Logger, error) {
	return telemetry.NewLogger(level)
}

func initTracer(ctx context.Context, cfg *config.Config) (func(context.Context) error, error) {
	if !cfg.OTELEnabled {
		return func(context.Context) error { return nil }, nil
	}

	_, shutdown, err := telemetry.InitTracer(ctx, cfg.OTELEndpoint, cfg.ServiceName, cfg.Version)
	return shutdown, err
}

// app holds the wired shipping components backed by the in-memory store.
type app struct {
	store    *store.Memory
	packers  *packer.Manager
	orders   *ordermanager.Manager
	rates    *shipping.Manager
	pipeline *refresh.Pipeline
	workflow *subscriber.Workflow
	registry *prometheus.Registry
	logger   *otelzap.Logger

	concurrency int
}

func newApp(ctx context.Context, cfg *config.Config, logger *otelzap.Logger) (*app, error) {
	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return nil, err
	}

	mem := store.NewMemory()
	registry := prometheus.NewRegistry()
	metrics := telemetry.NewMetrics(registry)
	tracer := otel.Tracer(cfg.ServiceName)

	providers := shipping.NewRegistry()
	method.RegisterDefaults(providers)
	method.RegisterCarrier(providers, initQuoters(cfg, mem, logger))
	methods, err := cat.Methods(providers)
	if err != nil {
		return nil, err
	}
	for _, m := range methods {
		if err := mem.SaveMethod(ctx, m); err != nil {
			return nil, fmt.Errorf("saving shipping method %s: %w", m.ID, err)
		}
	}

	offers := promotion.NewRegistry()
	promotion.RegisterDefaults(offers, mem, nil)
	promotions, err := cat.BuildPromotions(offers)
	if err != nil {
		return nil, err
	}
	for _, p := range promotions {
		if err := mem.SavePromotion(ctx, p); err != nil {
			return nil, fmt.Errorf("saving promotion %s: %w", p.ID, err)
		}
	}

	taxTypes, err := cat.BuildTaxTypes()
	if err != nil {
		return nil, err
	}
	for _, t := range taxTypes {
		if err := mem.SaveTaxType(ctx, t); err != nil {
			return nil, fmt.Errorf("saving tax type %s: %w", t.ID, err)
		}
	}

	packers := cat.PackerManager()
	orders := ordermanager.New(packers, mem, mem, cat.OrderTypeSettings(), logger)
	rates := shipping.NewManager(mem, logger,
		shipping.WithTracer(tracer),
		shipping.WithMetrics(metrics),
		shipping.WithRatesHook(promotion.NewRatePreview(mem, mem, logger).OnRates),
	)

	procs := refresh.Processors{
		Early:     processor.NewEarly(orders, rates, logger),
		Promotion: promotion.NewProcessor(mem),
		Late:      processor.NewLate(orders, logger),
	}
	if id, taxCfg, ok := cat.ShippingTaxConfig(cfg.ShippingTaxStrategy); ok {
		shippingTax, err := tax.NewShippingTaxType(id, taxCfg, orders, mem, nil, logger)
		if err != nil {
			return nil, err
		}
		procs.Tax = tax.NewProcessor(shippingTax)
	}

	return &app{
		store:    mem,
		packers:  packers,
		orders:   orders,
		rates:    rates,
		pipeline: refresh.New(procs, mem, logger, refresh.WithTracer(tracer), refresh.WithMetrics(metrics)),
		workflow: subscriber.NewWorkflow(orders, logger),
		registry: registry,
		logger:   logger,

		concurrency: cfg.RefreshConcurrency,
	}, nil
}

func initQuoters(cfg *config.Config, profiles freightcom.ProfileLoader, logger *otelzap.Logger) map[string]method.Quoter {
	quoters := make(map[string]method.Quoter)
	if cfg.CarrierUseMock {
		quoters["mock"] = mock.NewQuoter("mock", cfg.CarrierCurrency)
	}
	if cfg.FreightcomEnabled {
		fc := freightcom.New(freightcom.Config{
			APIKey:  cfg.FreightcomAPIKey,
			BaseURL: cfg.FreightcomBaseURL,
			Origin: freightcom.Location{
				City:       cfg.FreightcomOriginCity,
				Province:   cfg.FreightcomOriginProvince,
				PostalCode: cfg.FreightcomOriginPostalCode,
				Country:    cfg.FreightcomOriginCountry,
			},
		}, profiles, logger, nil)
		quoters[fc.Name()] = fc
	}
	return quoters
}

// seed saves the fixture as an order. The shipping profile of the fixture
// is saved and the order packed for it unless the fixture lists its own
// shipments.
func (a *app) seed(ctx context.Context, f *catalog.Fixture) (*order.Order, error) {
	o, err := f.Order(a.packers.ShipmentType(f.Type))
	if err != nil {
		return nil, err
	}
	if err := a.store.SaveOrder(ctx, o); err != nil {
		return nil, fmt.Errorf("saving order: %w", err)
	}

	if values := f.Profile(); values != nil {
		profile := a.orders.CreateProfile(o, *values)
		if err := a.store.SaveProfile(ctx, profile); err != nil {
			return nil, fmt.Errorf("saving shipping profile: %w", err)
		}
		if len(o.Shipments) == 0 {
			if o.Shipments, err = a.orders.Pack(ctx, o, profile); err != nil {
				return nil, err
			}
		}
		for _, s := range o.Shipments {
			s.SetShippingProfileID(profile.ID)
		}
	}
	o.ForceShippingRefresh = true
	if err := a.store.SaveOrder(ctx, o); err != nil {
		return nil, fmt.Errorf("saving order: %w", err)
	}
	return o, nil
}
