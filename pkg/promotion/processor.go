package promotion

import (
	"context"
	"fmt"

	"github.com/tournevent/shipping/pkg/order"
)

// Processor applies the promotions available to an order, in storage order.
type Processor struct {
	promotions Storage
}

// NewProcessor creates the promotion processor.
func NewProcessor(promotions Storage) *Processor {
	return &Processor{promotions: promotions}
}

// Process applies every promotion that applies to the order.
func (p *Processor) Process(ctx context.Context, o *order.Order) error {
	promotions, err := p.promotions.LoadAvailable(ctx, o)
	if err != nil {
		return fmt.Errorf("loading promotions: %w", err)
	}
	for _, promo := range promotions {
		if !promo.Applies(o) {
			continue
		}
		if err := promo.Apply(ctx, o); err != nil {
			return fmt.Errorf("applying promotion %s: %w", promo.ID, err)
		}
	}
	return nil
}
