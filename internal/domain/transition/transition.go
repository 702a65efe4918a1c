// Package transition holds the status graphs for every lifecycle entity and the
// single function that decides whether a requested status change is legal.
//
// The tables below are the only place where legal edges are defined. Callers never
// compare statuses to decide legality themselves.
package transition

import (
	"slices"

	"github.com/emberwick/storefront/internal/model"
	apperrors "github.com/emberwick/storefront/internal/utils/errors"
)

// Graph is a directed status graph. A status with an empty edge list is terminal.
type Graph[S ~string] map[S][]S

// Allowed returns the statuses reachable from current in one step.
func (g Graph[S]) Allowed(current S) []S {
	return slices.Clone(g[current])
}

// IsKnown reports whether s is a node of the graph.
func (g Graph[S]) IsKnown(s S) bool {
	_, ok := g[s]
	return ok
}

// IsTerminal reports whether s is known and has no outgoing edges.
func (g Graph[S]) IsTerminal(s S) bool {
	next, ok := g[s]
	return ok && len(next) == 0
}

// CanTransition reports whether current -> requested is an explicitly listed edge.
func (g Graph[S]) CanTransition(current, requested S) bool {
	if current == requested {
		return false
	}
	return slices.Contains(g[current], requested)
}

// Transition returns requested when the edge is legal, or an InvalidTransition error.
func (g Graph[S]) Transition(kind model.EntityKind, current, requested S) (S, error) {
	if !g.CanTransition(current, requested) {
		var zero S
		return zero, apperrors.InvalidTransition(kind.String(), string(current), string(requested), toStrings(g[current]))
	}
	return requested, nil
}

// OrderGraph is the order lifecycle.
var OrderGraph = Graph[model.OrderStatus]{
	model.OrderStatusPending:    {model.OrderStatusProcessing, model.OrderStatusCancelled},
	model.OrderStatusProcessing: {model.OrderStatusShipped, model.OrderStatusCancelled},
	model.OrderStatusShipped:    {model.OrderStatusDelivered},
	model.OrderStatusDelivered:  {},
	model.OrderStatusCancelled:  {},
}

// ReturnGraph is the return shipping pipeline. REJECTED is reachable from every
// non-terminal status as an admin override.
var ReturnGraph = Graph[model.ReturnStatus]{
	model.ReturnStatusRequested: {
		model.ReturnStatusInstructionsSent,
		model.ReturnStatusRejected,
	},
	model.ReturnStatusInstructionsSent: {
		model.ReturnStatusReturnShippingSent,
		model.ReturnStatusRejected,
	},
	model.ReturnStatusReturnShippingSent: {
		model.ReturnStatusReturnInTransit,
		model.ReturnStatusRejected,
	},
	model.ReturnStatusReturnInTransit: {
		model.ReturnStatusReturnDelivered,
		model.ReturnStatusRejected,
	},
	model.ReturnStatusReturnDelivered: {
		model.ReturnStatusProcessing,
		model.ReturnStatusCompleted,
		model.ReturnStatusRejected,
	},
	model.ReturnStatusProcessing: {
		model.ReturnStatusCompleted,
		model.ReturnStatusRejected,
	},
	model.ReturnStatusCompleted: {},
	model.ReturnStatusRejected:  {},
}

// RefundGraph is the refund axis of a return. FAILED -> PENDING is the operator reset
// that allows a manual retry.
var RefundGraph = Graph[model.RefundStatus]{
	model.RefundStatusPending:    {model.RefundStatusProcessing, model.RefundStatusCompleted, model.RefundStatusFailed},
	model.RefundStatusProcessing: {model.RefundStatusCompleted, model.RefundStatusFailed},
	model.RefundStatusFailed:     {model.RefundStatusPending},
	model.RefundStatusCompleted:  {},
}

// Order validates an order status change.
func Order(current, requested model.OrderStatus) (model.OrderStatus, error) {
	return OrderGraph.Transition(model.EntityOrder, current, requested)
}

// Return validates a return status change.
func Return(current, requested model.ReturnStatus) (model.ReturnStatus, error) {
	return ReturnGraph.Transition(model.EntityReturn, current, requested)
}

// Refund validates a refund status change.
func Refund(current, requested model.RefundStatus) (model.RefundStatus, error) {
	return RefundGraph.Transition(model.EntityRefund, current, requested)
}

// Transition is the untyped entry point keyed by entity kind. It returns requested on
// success. Unknown kinds and statuses are rejected as invalid transitions.
func Transition(kind model.EntityKind, current, requested string) (string, error) {
	switch kind {
	case model.EntityOrder:
		s, err := Order(model.OrderStatus(current), model.OrderStatus(requested))
		return string(s), err
	case model.EntityReturn:
		s, err := Return(model.ReturnStatus(current), model.ReturnStatus(requested))
		return string(s), err
	case model.EntityRefund:
		s, err := Refund(model.RefundStatus(current), model.RefundStatus(requested))
		return string(s), err
	}
	return "", apperrors.InvalidTransition(kind.String(), current, requested, nil)
}

// Allowed returns the statuses reachable from current for the given kind.
func Allowed(kind model.EntityKind, current string) []string {
	switch kind {
	case model.EntityOrder:
		return toStrings(OrderGraph[model.OrderStatus(current)])
	case model.EntityReturn:
		return toStrings(ReturnGraph[model.ReturnStatus(current)])
	case model.EntityRefund:
		return toStrings(RefundGraph[model.RefundStatus(current)])
	}
	return []string{}
}

func toStrings[S ~string](in []S) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = string(s)
	}
	return out
}
