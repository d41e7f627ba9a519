package shipping

import "fmt"

// State is a shipment lifecycle state.
type State string

const (
	StateDraft    State = "draft"
	StateReady    State = "ready"
	StateShipped  State = "shipped"
	StateCanceled State = "canceled"
)

// Transition is a shipment workflow transition.
type Transition string

const (
	TransitionFinalize Transition = "finalize"
	TransitionShip     Transition = "ship"
	TransitionCancel   Transition = "cancel"
)

var transitions = map[Transition]struct {
	from []State
	to   State
}{
	TransitionFinalize: {from: []State{StateDraft}, to: StateReady},
	TransitionShip:     {from: []State{StateReady}, to: StateShipped},
	TransitionCancel:   {from: []State{StateDraft, StateReady}, to: StateCanceled},
}

// CanApply reports whether the transition is allowed from the current state.
func (s *Shipment) CanApply(t Transition) bool {
	def, ok := transitions[t]
	if !ok {
		return false
	}
	for _, from := range def.from {
		if s.State == from {
			return true
		}
	}
	return false
}

// ApplyTransition moves the shipment to the transition's target state.
func (s *Shipment) ApplyTransition(t Transition) error {
	if !s.CanApply(t) {
		return fmt.Errorf("%w: %s from %s", ErrInvalidTransition, t, s.State)
	}
	s.State = transitions[t].to
	s.changed = true
	return nil
}
