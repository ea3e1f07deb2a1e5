package models

import "strings"

// TransitionKind is a kind of order status mutation
type TransitionKind int

const (
	// TransitionSet sets any settable status regardless of the current one
	TransitionSet TransitionKind = iota
	// TransitionAction confirms or cancels a pending order
	TransitionAction
	// TransitionCustomerCancel cancels an order on behalf of the customer
	TransitionCustomerCancel
)

// order actions
const (
	ActionConfirmed = "confirmed"
	ActionCancelled = "cancelled"
)

// TransitionRequest describes requested status mutation
type TransitionRequest struct {
	Kind   TransitionKind
	Status OrderStatus
	Action string
}

// TransitionResult is the outcome of applying a TransitionRequest
type TransitionResult struct {
	From OrderStatus
	To   OrderStatus
	// EnteredCancelled is true when the order was not cancelled before
	EnteredCancelled bool
	// AlreadyCancelled is true for a customer cancellation of a cancelled order
	AlreadyCancelled bool
}

type transitionRule struct {
	allowed func(from OrderStatus) bool
	target  func(req TransitionRequest) (OrderStatus, error)
}

var settableStatuses = map[OrderStatus]struct{}{
	OrderStatusPending:    {},
	OrderStatusProcessing: {},
	OrderStatusShipped:    {},
	OrderStatusDelivered:  {},
	OrderStatusCancelled:  {},
}

var actionTargets = map[string]OrderStatus{
	ActionConfirmed: OrderStatusConfirmed,
	ActionCancelled: OrderStatusCancelled,
}

var transitionTable = map[TransitionKind]transitionRule{
	TransitionSet: {
		allowed: func(OrderStatus) bool { return true },
		target: func(req TransitionRequest) (OrderStatus, error) {
			if _, ok := settableStatuses[req.Status]; !ok {
				return "", ErrInvalidStatus
			}
			return req.Status, nil
		},
	},
	TransitionAction: {
		allowed: func(from OrderStatus) bool { return from == OrderStatusPending },
		target: func(req TransitionRequest) (OrderStatus, error) {
			to, ok := actionTargets[req.Action]
			if !ok {
				return "", ErrInvalidAction
			}
			return to, nil
		},
	},
	TransitionCustomerCancel: {
		allowed: func(from OrderStatus) bool { return from != OrderStatusCancelled },
		target: func(TransitionRequest) (OrderStatus, error) {
			return OrderStatusCancelled, nil
		},
	},
}

// Transition is the only place where order status changes are decided.
func Transition(current OrderStatus, req TransitionRequest) (TransitionResult, error) {
	rule, ok := transitionTable[req.Kind]
	if !ok {
		return TransitionResult{}, ErrInvalidTransition
	}

	// request itself is validated before the current state
	to, err := rule.target(req)
	if err != nil {
		return TransitionResult{}, err
	}

	res := TransitionResult{From: current, To: to}

	if !rule.allowed(current) {
		if req.Kind == TransitionCustomerCancel {
			res.To = current
			res.AlreadyCancelled = true
			return res, nil
		}
		return TransitionResult{}, ErrInvalidTransition
	}

	res.EnteredCancelled = to == OrderStatusCancelled && current != OrderStatusCancelled

	return res, nil
}

// ParseOrderStatus returns status by its name, ignoring case
func ParseOrderStatus(s string) (OrderStatus, bool) {
	for _, st := range []OrderStatus{
		OrderStatusPending,
		OrderStatusProcessing,
		OrderStatusShipped,
		OrderStatusDelivered,
		OrderStatusCancelled,
		OrderStatusConfirmed,
	} {
		if strings.EqualFold(string(st), strings.TrimSpace(s)) {
			return st, true
		}
	}
	return "", false
}
