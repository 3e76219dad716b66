package orders

import "errors"

var (
	// ErrDuplicateProduct signals that an order already carries a line for
	// the product being added.
	ErrDuplicateProduct = errors.New("orders: product already on order")
	// ErrOrderFinal signals a line mutation against an invoiced or voided
	// order.
	ErrOrderFinal = errors.New("orders: order is final, lines are immutable")
	// ErrInvalidStatus signals a status transition the lifecycle forbids.
	ErrInvalidStatus = errors.New("orders: invalid status transition")
	// ErrLineNotFound signals a mutation against a line the order does not
	// have.
	ErrLineNotFound = errors.New("orders: line not found")
	// ErrEmptyOrder signals an order created without lines.
	ErrEmptyOrder = errors.New("orders: at least one line required")
)
