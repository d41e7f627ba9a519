package shipping

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tracerName = "github.com/tournevent/shipping/pkg/shipping"

// RatesEvent carries the rates calculated by one shipping method.
// Hooks may rewrite rate amounts or replace Rates entirely.
type RatesEvent struct {
	Rates    []*Rate
	Method   *Method
	Shipment *Shipment
}

// RatesHook is called with every batch of calculated rates.
type RatesHook func(ctx context.Context, event *RatesEvent) error

// MetricsRecorder records rate calculation metrics.
type MetricsRecorder interface {
	RecordRateCalculation(method, status string, duration float64)
	RecordProviderError(method, kind string)
}

// Manager calculates, selects and applies shipping rates.
type Manager struct {
	methods MethodStorage
	logger  *otelzap.Logger
	tracer  trace.Tracer
	metrics MetricsRecorder
	hooks   []RatesHook
}

// Option configures a Manager.
type Option func(*Manager)

// WithTracer sets the tracer.
func WithTracer(t trace.Tracer) Option {
	return func(m *Manager) { m.tracer = t }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(r MetricsRecorder) Option {
	return func(m *Manager) { m.metrics = r }
}

// WithRatesHook adds a rates hook.
func WithRatesHook(h RatesHook) Option {
	return func(m *Manager) { m.hooks = append(m.hooks, h) }
}

// NewManager creates a new Manager.
func NewManager(methods MethodStorage, logger *otelzap.Logger, opts ...Option) *Manager {
	m := &Manager{
		methods: methods,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.tracer == nil {
		m.tracer = otel.Tracer(tracerName)
	}
	return m
}

// AddRatesHook registers a hook called after each method calculates rates.
// Hooks run in registration order.
func (m *Manager) AddRatesHook(h RatesHook) {
	m.hooks = append(m.hooks, h)
}

// CalculateRates calculates the rates of every method available to the shipment.
//
// A method that fails is logged and skipped. Each method's rates are sorted
// by original amount, ascending, and merged in method order.
func (m *Manager) CalculateRates(ctx context.Context, s *Shipment) (*RateSet, error) {
	ctx, span := m.tracer.Start(ctx, "shipping.CalculateRates")
	defer span.End()
	span.SetAttributes(attribute.String("shipment.id", s.ID))

	methods, err := m.methods.LoadForShipment(ctx, s)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("loading shipping methods: %w", err)
	}

	all := NewRateSet()
	for _, method := range methods {
		start := time.Now()
		rates, err := method.Plugin.CalculateRates(ctx, s)
		if err != nil {
			m.logger.Ctx(ctx).Error("Failed to calculate rates",
				zap.String("method_name", method.Name),
				zap.String("message", err.Error()),
				zap.String("plugin", method.Plugin.PluginID()),
				zap.String("shipment_id", s.ID),
			)
			span.RecordError(err)
			m.record(method.ID, "error", start)
			if m.metrics != nil {
				m.metrics.RecordProviderError(method.ID, ErrorKind(err))
			}
			continue
		}

		rates = m.dispatch(ctx, &RatesEvent{Rates: rates, Method: method, Shipment: s})
		sortRates(rates)
		for _, r := range rates {
			all.Put(r)
		}
		m.record(method.ID, "success", start)
	}

	span.SetAttributes(attribute.Int("rates.count", all.Len()))
	return all, nil
}

func (m *Manager) dispatch(ctx context.Context, event *RatesEvent) []*Rate {
	for _, hook := range m.hooks {
		before := cloneRates(event.Rates)
		if err := hook(ctx, event); err != nil {
			m.logger.Ctx(ctx).Error("Rates hook failed",
				zap.String("method_name", event.Method.Name),
				zap.String("shipment_id", event.Shipment.ID),
				zap.Error(err),
			)
			event.Rates = before
		}
	}
	return event.Rates
}

func (m *Manager) record(method, status string, start time.Time) {
	if m.metrics != nil {
		m.metrics.RecordRateCalculation(method, status, time.Since(start).Seconds())
	}
}

// SelectDefaultRate returns the rate matching the shipment's selected method
// and service, or the first rate.
func (m *Manager) SelectDefaultRate(s *Shipment, rates *RateSet) (*Rate, error) {
	if rates.Len() == 0 {
		return nil, ErrNoRates
	}
	if s.ShippingMethodID != "" && s.ShippingService != "" {
		for _, r := range rates.All() {
			if r.ShippingMethodID() == s.ShippingMethodID && r.Service().ID == s.ShippingService {
				return r, nil
			}
		}
	}
	return rates.First(), nil
}

// ApplyRate stores the rate on the shipment through the owning method's plugin.
// A shipment without a package type receives the plugin's default one.
func (m *Manager) ApplyRate(ctx context.Context, s *Shipment, r *Rate) error {
	method, err := m.methods.Load(ctx, r.ShippingMethodID())
	if err != nil {
		return fmt.Errorf("applying rate %s: %w", r.ID(), err)
	}
	if s.PackageType == nil {
		if pt := method.Plugin.DefaultPackageType(); pt != nil {
			s.SetPackageType(pt)
		}
	}
	method.Plugin.SelectRate(s, r)
	return nil
}

func sortRates(rates []*Rate) {
	sort.SliceStable(rates, func(i, j int) bool {
		a, b := rates[i].OriginalAmount(), rates[j].OriginalAmount()
		if a.CurrencyCode != b.CurrencyCode {
			return false
		}
		return a.LessThan(b)
	})
}

func cloneRates(rates []*Rate) []*Rate {
	result := make([]*Rate, len(rates))
	for i, r := range rates {
		result[i] = r.Clone()
	}
	return result
}
