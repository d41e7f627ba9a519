package tax

import (
	"context"
	"fmt"

	"github.com/tournevent/shipping/pkg/order"
)

// Processor applies every tax type that applies to the order.
type Processor struct {
	types []Type
}

// NewProcessor creates a tax processor running the types in order.
func NewProcessor(types ...Type) *Processor {
	return &Processor{types: types}
}

// Process applies the tax types.
func (p *Processor) Process(ctx context.Context, o *order.Order) error {
	for _, t := range p.types {
		if !t.Applies(o) {
			continue
		}
		if err := t.Apply(ctx, o); err != nil {
			return fmt.Errorf("applying tax type %s: %w", t.ID(), err)
		}
	}
	return nil
}
