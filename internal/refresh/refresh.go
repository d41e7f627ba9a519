// Package refresh runs the shipping processors over an order in the order
// the pricing pipeline requires.
package refresh

import (
	"context"
	"fmt"
	"time"

	"github.com/tournevent/shipping/pkg/order"
	"github.com/tournevent/shipping/pkg/processor"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tracerName = "github.com/tournevent/shipping/internal/refresh"

// Processor names, used as span and metric labels.
const (
	StepEarly      = "shipping_early"
	StepPromotion  = "promotion"
	StepTax        = "tax"
	StepLate       = "shipping_late"
	outcomeSuccess = "success"
	outcomeError   = "error"
)

// OrderStorage persists refreshed orders.
type OrderStorage interface {
	SaveOrder(ctx context.Context, o *order.Order) error
}

// MetricsRecorder records processor runs.
type MetricsRecorder interface {
	RecordProcessorRun(processor, outcome string, duration float64)
}

// Processors holds the processors of one refresh, run in field order.
type Processors struct {
	Early     processor.Processor
	Promotion processor.Processor
	Tax       processor.Processor
	Late      processor.Processor
}

type step struct {
	name string
	proc processor.Processor
}

// Pipeline refreshes orders.
type Pipeline struct {
	steps   []step
	orders  OrderStorage
	logger  *otelzap.Logger
	tracer  trace.Tracer
	metrics MetricsRecorder
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithTracer sets the tracer.
func WithTracer(t trace.Tracer) Option {
	return func(p *Pipeline) { p.tracer = t }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(r MetricsRecorder) Option {
	return func(p *Pipeline) { p.metrics = r }
}

// New creates a pipeline. Nil processors are skipped.
func New(procs Processors, orders OrderStorage, logger *otelzap.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{orders: orders, logger: logger}
	for _, s := range []step{
		{StepEarly, procs.Early},
		{StepPromotion, procs.Promotion},
		{StepTax, procs.Tax},
		{StepLate, procs.Late},
	} {
		if s.proc != nil {
			p.steps = append(p.steps, s)
		}
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.tracer == nil {
		p.tracer = otel.Tracer(tracerName)
	}
	return p
}

// Refresh clears the order's unlocked adjustments, runs every processor and
// saves the order. The order is not saved when a processor fails.
func (p *Pipeline) Refresh(ctx context.Context, o *order.Order) error {
	ctx, span := p.tracer.Start(ctx, "refresh.Order")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", o.ID))

	o.ClearAdjustments()
	for _, s := range p.steps {
		if err := p.run(ctx, s, o); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return err
		}
	}

	if err := p.orders.SaveOrder(ctx, o); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("saving order: %w", err)
	}

	p.logger.Ctx(ctx).Info("Refreshed order",
		zap.String("order_id", o.ID),
		zap.Int("shipments", len(o.Shipments)),
		zap.Int("adjustments", len(o.Adjustments)),
	)
	return nil
}

func (p *Pipeline) run(ctx context.Context, s step, o *order.Order) error {
	ctx, span := p.tracer.Start(ctx, "processor."+s.name)
	defer span.End()

	start := time.Now()
	err := s.proc.Process(ctx, o)
	outcome := outcomeSuccess
	if err != nil {
		outcome = outcomeError
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		p.logger.Ctx(ctx).Error("Order processor failed",
			zap.String("processor", s.name),
			zap.String("order_id", o.ID),
			zap.Error(err),
		)
	}
	if p.metrics != nil {
		p.metrics.RecordProcessorRun(s.name, outcome, time.Since(start).Seconds())
	}
	if err != nil {
		return fmt.Errorf("%s processor: %w", s.name, err)
	}
	return nil
}
