package tax

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/tournevent/shipping/pkg/adjustment"
	"github.com/tournevent/shipping/pkg/order"
	"github.com/tournevent/shipping/pkg/price"
	"github.com/tournevent/shipping/pkg/shipping"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// Shipping tax strategies.
const (
	StrategyDefault      = "default"
	StrategyHighest      = "highest"
	StrategyProportional = "proportional"
)

// Store filters.
const (
	StoreFilterNone    = "none"
	StoreFilterInclude = "include"
	StoreFilterExclude = "exclude"
)

// Config configures the shipping tax type.
type Config struct {
	Strategy    string   `yaml:"strategy" validate:"omitempty,oneof=default highest proportional"`
	StoreFilter string   `yaml:"store_filter" validate:"omitempty,oneof=none include exclude"`
	Stores      []string `yaml:"stores"` // store UUIDs
}

// ShippingTaxType taxes shipments using the tax adjustments already present
// on the order items.
type ShippingTaxType struct {
	id      string
	config  Config
	orders  OrderManager
	repo    Repository
	rounder price.Rounder
	logger  *otelzap.Logger
}

// NewShippingTaxType creates the shipping tax type. A nil rounder uses
// price.DefaultRounder.
func NewShippingTaxType(id string, cfg Config, orders OrderManager, repo Repository, rounder price.Rounder, logger *otelzap.Logger) (*ShippingTaxType, error) {
	if cfg.Strategy == "" {
		cfg.Strategy = StrategyDefault
	}
	if cfg.StoreFilter == "" {
		cfg.StoreFilter = StoreFilterNone
	}
	switch cfg.Strategy {
	case StrategyDefault, StrategyHighest, StrategyProportional:
	default:
		return nil, fmt.Errorf("%w: unknown tax strategy %q", shipping.ErrInvalidConfiguration, cfg.Strategy)
	}
	if rounder == nil {
		rounder = price.DefaultRounder
	}
	return &ShippingTaxType{
		id:      id,
		config:  cfg,
		orders:  orders,
		repo:    repo,
		rounder: rounder,
		logger:  logger,
	}, nil
}

// ID returns the tax type id.
func (t *ShippingTaxType) ID() string { return t.id }

// Strategy returns the configured strategy.
func (t *ShippingTaxType) Strategy() string { return t.config.Strategy }

// Applies reports whether the order is shippable, has shipments and passes
// the store filter.
func (t *ShippingTaxType) Applies(o *order.Order) bool {
	if !t.orders.IsShippable(o) || !t.orders.HasShipments(o) {
		return false
	}
	if t.config.StoreFilter == StoreFilterNone {
		return true
	}
	match := slices.Contains(t.config.Stores, o.Store.UUID)
	if t.config.StoreFilter == StoreFilterInclude {
		return match
	}
	return !match
}

// Apply adds tax adjustments to the eligible shipments of the order.
func (t *ShippingTaxType) Apply(ctx context.Context, o *order.Order) error {
	taxAdjustments := usableTaxAdjustments(o.CollectAdjustments(adjustment.TypeTax))
	if len(taxAdjustments) == 0 {
		return nil
	}

	var err error
	switch t.config.Strategy {
	case StrategyDefault:
		err = t.applyDefault(ctx, o, taxAdjustments)
	case StrategyHighest:
		t.applyHighest(o, taxAdjustments)
	case StrategyProportional:
		t.applyProportional(o, taxAdjustments)
	}
	if err != nil {
		return err
	}

	t.logger.Ctx(ctx).Debug("Applied shipping tax",
		zap.String("order_id", o.ID),
		zap.String("tax_type", t.id),
		zap.String("strategy", t.config.Strategy),
	)
	return nil
}

// applyDefault applies the default rate of the zone found on the first tax
// adjustment. All tax adjustments are assumed to share the tax type and zone.
func (t *ShippingTaxType) applyDefault(ctx context.Context, o *order.Order, taxAdjustments []adjustment.Adjustment) error {
	source, _ := adjustment.ParseTaxSource(taxAdjustments[0].SourceID)
	taxType, err := t.repo.LocalTaxType(ctx, source.TaxTypeID)
	if errors.Is(err, ErrTaxTypeNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading tax type %s: %w", source.TaxTypeID, err)
	}
	zone, ok := taxType.Zone(source.ZoneID)
	if !ok {
		return nil
	}
	rate, ok := zone.DefaultRate()
	if !ok {
		return nil
	}

	sourceID := adjustment.TaxSource{TaxTypeID: taxType.ID, ZoneID: zone.ID, RateID: rate.ID}.String()
	for _, s := range eligibleShipments(o) {
		amount := t.rounder.Round(taxAmount(s, rate.Percentage, taxType.DisplayInclusive))
		s.AddAdjustment(adjustment.Adjustment{
			Type:       adjustment.TypeTax,
			Label:      zone.DisplayLabel,
			Amount:     amount,
			Percentage: rate.Percentage.String(),
			SourceID:   sourceID,
			Included:   taxType.DisplayInclusive,
		})
	}
	return nil
}

// applyHighest applies the highest percentage found on the order.
func (t *ShippingTaxType) applyHighest(o *order.Order, taxAdjustments []adjustment.Adjustment) {
	bySource := distinctSources(taxAdjustments)
	sort.SliceStable(bySource, func(i, j int) bool {
		return bySource[i].PercentageDecimal().GreaterThan(bySource[j].PercentageDecimal())
	})
	highest := bySource[0]

	for _, s := range eligibleShipments(o) {
		amount := taxAmount(s, highest.PercentageDecimal(), highest.Included)
		s.AddAdjustment(highest.WithAmount(t.rounder.Round(amount)))
	}
}

type taxGroup struct {
	percentage decimal.Decimal
	itemTotal  price.Price
	definition adjustment.Adjustment
	ratio      decimal.Decimal
}

// applyProportional splits the shipment tax between the percentages found on
// the order items, weighted by the share of the subtotal of each percentage.
func (t *ShippingTaxType) applyProportional(o *order.Order, taxAdjustments []adjustment.Adjustment) {
	if len(distinctSources(taxAdjustments)) == 1 {
		t.applyHighest(o, taxAdjustments)
		return
	}

	var groups []*taxGroup
	index := make(map[string]*taxGroup)
	for _, item := range o.Items {
		itemTax, ok := firstUsable(item.AdjustmentsOf(adjustment.TypeTax))
		if !ok {
			continue
		}
		pct := itemTax.PercentageDecimal()
		key := pct.String()
		if g, ok := index[key]; ok {
			g.itemTotal = g.itemTotal.Add(item.TotalPrice())
			continue
		}
		g := &taxGroup{percentage: pct, itemTotal: item.TotalPrice(), definition: itemTax}
		index[key] = g
		groups = append(groups, g)
	}
	subtotal := o.SubtotalPrice()
	if len(groups) == 0 || subtotal == nil || subtotal.IsZero() {
		return
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].percentage.GreaterThan(groups[j].percentage)
	})
	for _, g := range groups {
		g.ratio = g.itemTotal.Number.Div(subtotal.Number)
	}

	for _, s := range eligibleShipments(o) {
		for _, g := range groups {
			amount := taxAmount(s, g.percentage, g.definition.Included).Multiply(g.ratio)
			s.AddAdjustment(g.definition.WithAmount(t.rounder.Round(amount)))
		}
	}
}

// taxAmount returns the unrounded tax of the shipment at the percentage.
// The base is the amount adjusted by the shipping promotions not included in it.
func taxAmount(s *shipping.Shipment, percentage decimal.Decimal, included bool) price.Price {
	base := s.AdjustedAmount(adjustment.TypeShippingPromotion)
	amount := base.Multiply(percentage)
	if included {
		amount = amount.Divide(decimal.NewFromInt(1).Add(percentage))
	}
	return amount
}

// usableTaxAdjustments drops adjustments without a percentage or with a
// source that is not a local "{type}|{zone}|{rate}" id.
func usableTaxAdjustments(adjustments []adjustment.Adjustment) []adjustment.Adjustment {
	var usable []adjustment.Adjustment
	for _, a := range adjustments {
		if isUsable(a) {
			usable = append(usable, a)
		}
	}
	return usable
}

func isUsable(a adjustment.Adjustment) bool {
	if !a.HasPercentage() {
		return false
	}
	_, ok := adjustment.ParseTaxSource(a.SourceID)
	return ok
}

func firstUsable(adjustments []adjustment.Adjustment) (adjustment.Adjustment, bool) {
	for _, a := range adjustments {
		if isUsable(a) {
			return a, true
		}
	}
	return adjustment.Adjustment{}, false
}

// distinctSources keeps one adjustment per source id. The last adjustment of
// a source wins, at the position where the source was first seen.
func distinctSources(adjustments []adjustment.Adjustment) []adjustment.Adjustment {
	var result []adjustment.Adjustment
	position := make(map[string]int)
	for _, a := range adjustments {
		if i, ok := position[a.SourceID]; ok {
			result[i] = a
			continue
		}
		position[a.SourceID] = len(result)
		result = append(result, a)
	}
	return result
}

// eligibleShipments returns the shipments with both a method and an amount.
func eligibleShipments(o *order.Order) []*shipping.Shipment {
	var result []*shipping.Shipment
	for _, s := range o.Shipments {
		if s.ShippingMethodID != "" && s.Amount != nil {
			result = append(result, s)
		}
	}
	return result
}
