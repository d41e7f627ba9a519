// Package tax applies order taxes to shipments.
package tax

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"github.com/tournevent/shipping/pkg/order"
)

// ErrTaxTypeNotFound is returned by a Repository for unknown or remote tax types.
var ErrTaxTypeNotFound = errors.New("tax type not found")

// Rate is a tax rate of a zone.
type Rate struct {
	ID         string
	Label      string
	Percentage decimal.Decimal
}

// Zone is a territory with its tax rates.
type Zone struct {
	ID            string
	DisplayLabel  string
	DefaultRateID string
	Rates         []Rate
}

// DefaultRate returns the rate marked as default, or the first rate.
func (z *Zone) DefaultRate() (Rate, bool) {
	for _, r := range z.Rates {
		if r.ID == z.DefaultRateID {
			return r, true
		}
	}
	if len(z.Rates) > 0 && z.DefaultRateID == "" {
		return z.Rates[0], true
	}
	return Rate{}, false
}

// LocalTaxType is a tax type whose zones and rates are known locally.
type LocalTaxType struct {
	ID               string
	Label            string
	DisplayInclusive bool
	Zones            []Zone
}

// Zone returns the zone with the given id.
func (t *LocalTaxType) Zone(id string) (*Zone, bool) {
	for i := range t.Zones {
		if t.Zones[i].ID == id {
			return &t.Zones[i], true
		}
	}
	return nil, false
}

// Repository loads local tax types.
type Repository interface {
	// LocalTaxType returns the tax type or an error wrapping ErrTaxTypeNotFound.
	LocalTaxType(ctx context.Context, id string) (*LocalTaxType, error)
}

// OrderManager reports on the shipping state of an order.
type OrderManager interface {
	IsShippable(o *order.Order) bool
	HasShipments(o *order.Order) bool
}

// Type is a tax type that can be applied during an order refresh.
type Type interface {
	ID() string
	Applies(o *order.Order) bool
	Apply(ctx context.Context, o *order.Order) error
}
