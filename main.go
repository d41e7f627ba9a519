package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"
	"github.com/tournevent/shipping/internal/catalog"
	"github.com/tournevent/shipping/pkg/order"
	"github.com/tournevent/shipping/pkg/shipping"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var version = "0.0.1"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

type options struct {
	catalogPath string
	strategy    string
	metrics     bool
}

func newRootCmd() *cobra.Command {
	var opts options
	root := &cobra.Command{
		Use:     "shipping",
		Short:   "Pack, rate, discount and tax order shipments",
		Version: version,
	}
	root.PersistentFlags().StringVar(&opts.catalogPath, "catalog", "", "catalog file (overrides CATALOG_PATH)")
	root.PersistentFlags().StringVar(&opts.strategy, "tax-strategy", "", "shipping tax strategy (overrides SHIPPING_TAX_STRATEGY)")
	root.PersistentFlags().BoolVar(&opts.metrics, "metrics", false, "write metrics to stderr on exit")

	root.AddCommand(
		&cobra.Command{
			Use:   "refresh FILE...",
			Short: "Refresh the shipments of order fixtures and print the orders",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return run(cmd, opts, func(ctx context.Context, a *app) error {
					return runRefresh(ctx, a, cmd.OutOrStdout(), args)
				})
			},
		},
		&cobra.Command{
			Use:   "rates FILE",
			Short: "Print the rates available to each shipment of an order fixture",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return run(cmd, opts, func(ctx context.Context, a *app) error {
					return runRates(ctx, a, cmd.OutOrStdout(), args[0])
				})
			},
		},
		&cobra.Command{
			Use:       "transition EVENT FILE",
			Short:     "Refresh an order fixture, then apply an order workflow event to its shipments",
			Args:      cobra.ExactArgs(2),
			ValidArgs: []string{"place", "validate", "fulfill", "cancel"},
			RunE: func(cmd *cobra.Command, args []string) error {
				return run(cmd, opts, func(ctx context.Context, a *app) error {
					return runTransition(ctx, a, cmd.OutOrStdout(), args[0], args[1])
				})
			},
		},
	)
	return root
}

// run loads the configuration, wires the app and calls fn with it.
func run(cmd *cobra.Command, opts options, fn func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if opts.catalogPath != "" {
		cfg.CatalogPath = opts.catalogPath
	}
	if opts.strategy != "" {
		cfg.ShippingTaxStrategy = opts.strategy
	}

	logger, err := initLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	tracerShutdown, err := initTracer(ctx, cfg)
	if err != nil {
		logger.Warn("Failed to initialize tracer", zap.Error(err))
	} else {
		defer tracerShutdown(context.WithoutCancel(ctx))
	}

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to load catalog", zap.String("path", cfg.CatalogPath), zap.Error(err))
		return err
	}

	logger.Debug("Loaded catalog",
		zap.String("path", cfg.CatalogPath),
		zap.String("version", cfg.Version),
	)

	err = fn(ctx, a)
	if opts.metrics {
		if merr := writeMetrics(cmd.ErrOrStderr(), a.registry); merr != nil {
			logger.Warn("Failed to write metrics", zap.Error(merr))
		}
	}
	return err
}

func runRefresh(ctx context.Context, a *app, w io.Writer, paths []string) error {
	refreshed := make([]*order.Order, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for i, path := range paths {
		g.Go(func() error {
			o, err := a.refreshFixture(ctx, path)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			refreshed[i] = o
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return writeJSON(w, refreshed)
}

func (a *app) refreshFixture(ctx context.Context, path string) (*order.Order, error) {
	f, err := catalog.LoadFixture(path)
	if err != nil {
		return nil, err
	}
	o, err := a.seed(ctx, f)
	if err != nil {
		return nil, err
	}
	if err := a.pipeline.Refresh(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

type rateOutput struct {
	ID             string     `json:"id"`
	Method         string     `json:"shipping_method_id"`
	Service        string     `json:"service"`
	Amount         string     `json:"amount"`
	OriginalAmount string     `json:"original_amount"`
	Description    string     `json:"description,omitempty"`
	DeliveryDate   *time.Time `json:"delivery_date,omitempty"`
}

type shipmentRates struct {
	Shipment string       `json:"shipment"`
	Rates    []rateOutput `json:"rates"`
}

func runRates(ctx context.Context, a *app, w io.Writer, path string) error {
	f, err := catalog.LoadFixture(path)
	if err != nil {
		return err
	}
	o, err := a.seed(ctx, f)
	if err != nil {
		return err
	}

	result := make([]shipmentRates, 0, len(o.Shipments))
	for _, s := range o.Shipments {
		rates, err := a.rates.CalculateRates(ctx, s)
		if err != nil {
			return fmt.Errorf("shipment %s: %w", s.Title, err)
		}
		entry := shipmentRates{Shipment: s.Title, Rates: make([]rateOutput, 0, rates.Len())}
		for _, r := range rates.All() {
			entry.Rates = append(entry.Rates, rateOf(r))
		}
		result = append(result, entry)
	}
	return writeJSON(w, result)
}

func rateOf(r *shipping.Rate) rateOutput {
	return rateOutput{
		ID:             r.ID(),
		Method:         r.ShippingMethodID(),
		Service:        r.Service().Label,
		Amount:         r.Amount().String(),
		OriginalAmount: r.OriginalAmount().String(),
		Description:    r.Description(),
		DeliveryDate:   r.DeliveryDate(),
	}
}

func runTransition(ctx context.Context, a *app, w io.Writer, event, path string) error {
	o, err := a.refreshFixture(ctx, path)
	if err != nil {
		return err
	}

	switch event {
	case "place":
		o.State = order.StateFulfillment
		err = a.workflow.OnPlace(ctx, o, o.State)
	case "validate":
		err = a.workflow.OnValidate(ctx, o)
	case "fulfill":
		o.State = order.StateCompleted
		err = a.workflow.OnFulfill(ctx, o)
	case "cancel":
		o.State = order.StateCanceled
		err = a.workflow.OnCancel(ctx, o)
	default:
		return fmt.Errorf("unknown event %q", event)
	}
	if err != nil {
		return err
	}
	if err := a.store.SaveOrder(ctx, o); err != nil {
		return fmt.Errorf("saving order: %w", err)
	}
	return writeJSON(w, o)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeMetrics(w io.Writer, reg *prometheus.Registry) error {
	families, err := reg.Gather()
	if err != nil {
		return err
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}
