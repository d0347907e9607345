package fsm

import (
	"context"
	"errors"

	loopfsm "github.com/looplab/fsm"

	"github.com/neomorfeo/stanzaq/internal/domain"
)

// Compile-time checks: the validators implement their domain ports.
var (
	_ domain.InterestTransitionValidator = (*InterestValidator)(nil)
	_ domain.ListingTransitionValidator  = (*ListingValidator)(nil)
)

// edge is the library-agnostic form of one transition, used to convert
// the domain transition tables into looplab/fsm EventDesc values.
type edge struct {
	event, src, dst string
}

// buildEvents consolidates edges with the same event+destination into a
// single EventDesc with multiple source states (e.g. "withdraw" from
// both "active" and "waiting" lands on "withdrawn").
func buildEvents(edges []edge) []loopfsm.EventDesc {
	type key struct {
		event string
		dst   string
	}
	grouped := make(map[key][]string)
	order := make([]key, 0)

	for _, e := range edges {
		k := key{event: e.event, dst: e.dst}
		if _, exists := grouped[k]; !exists {
			order = append(order, k)
		}
		grouped[k] = append(grouped[k], e.src)
	}

	out := make([]loopfsm.EventDesc, 0, len(order))
	for _, k := range order {
		out = append(out, loopfsm.EventDesc{
			Name: k.event,
			Src:  grouped[k],
			Dst:  k.dst,
		})
	}
	return out
}

// apply runs one event through a short-lived FSM seeded with the
// current state. looplab/fsm is stateful, so each call builds a fresh
// machine; rejected is true when the event is simply not allowed from
// the current state (as opposed to an internal failure).
func apply(ctx context.Context, events []loopfsm.EventDesc, current, event string) (next string, rejected bool, err error) {
	machine := loopfsm.NewFSM(current, events, nil)

	if err := machine.Event(ctx, event); err != nil {
		var invalidEvent loopfsm.InvalidEventError
		var noTransition loopfsm.NoTransitionError
		if errors.As(err, &invalidEvent) || errors.As(err, &noTransition) {
			return "", true, nil
		}
		return "", false, err
	}
	return machine.Current(), false, nil
}

var interestEvents = func() []loopfsm.EventDesc {
	edges := make([]edge, 0, len(domain.InterestTransitions))
	for _, t := range domain.InterestTransitions {
		edges = append(edges, edge{event: string(t.Event), src: string(t.Src), dst: string(t.Dst)})
	}
	return buildEvents(edges)
}()

var listingEvents = func() []loopfsm.EventDesc {
	edges := make([]edge, 0, len(domain.ListingTransitions))
	for _, t := range domain.ListingTransitions {
		edges = append(edges, edge{event: string(t.Event), src: string(t.Src), dst: string(t.Dst)})
	}
	return buildEvents(edges)
}()

// InterestValidator implements domain.InterestTransitionValidator
// using looplab/fsm over domain.InterestTransitions.
type InterestValidator struct{}

// NewInterestValidator creates an FSM-backed interest validator.
func NewInterestValidator() *InterestValidator {
	return &InterestValidator{}
}

// Apply checks the event against the current status and returns the
// destination, or a domain.InterestTransitionError when not allowed.
func (v *InterestValidator) Apply(ctx context.Context, current domain.InterestStatus, event domain.InterestEvent) (domain.InterestStatus, error) {
	next, rejected, err := apply(ctx, interestEvents, string(current), string(event))
	if err != nil {
		return "", err
	}
	if rejected {
		return "", &domain.InterestTransitionError{Event: event, Current: current}
	}
	return domain.InterestStatus(next), nil
}

// ListingValidator implements domain.ListingTransitionValidator using
// looplab/fsm over domain.ListingTransitions.
type ListingValidator struct{}

// NewListingValidator creates an FSM-backed listing validator.
func NewListingValidator() *ListingValidator {
	return &ListingValidator{}
}

// Apply checks the event against the current status and returns the
// destination, or a domain.ListingTransitionError when not allowed.
func (v *ListingValidator) Apply(ctx context.Context, current domain.ListingStatus, event domain.ListingEvent) (domain.ListingStatus, error) {
	next, rejected, err := apply(ctx, listingEvents, string(current), string(event))
	if err != nil {
		return "", err
	}
	if rejected {
		return "", &domain.ListingTransitionError{Event: event, Current: current}
	}
	return domain.ListingStatus(next), nil
}
