package core

// IsTerminal reports whether automatic derivation is frozen for the status
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	default:
		return false
	}
}

// Valid reports whether s is a known order status
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusPartial, OrderStatusConfirmed,
		OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	default:
		return false
	}
}

// DeriveStatus computes an order's status from its item receipt counts.
// Terminal statuses are returned unchanged.
func DeriveStatus(total, received int, current OrderStatus) OrderStatus {
	if current.IsTerminal() {
		return current
	}

	switch {
	case total <= 0:
		return OrderStatusPending
	case received >= total:
		return OrderStatusConfirmed
	case received > 0:
		return OrderStatusPartial
	default:
		return OrderStatusPending
	}
}

// CanTransition reports whether an external terminal transition is allowed
func CanTransition(from, to OrderStatus) bool {
	if !to.IsTerminal() {
		return false
	}

	switch from {
	case OrderStatusDelivered, OrderStatusCancelled:
		return false
	case OrderStatusShipped:
		return to == OrderStatusDelivered || to == OrderStatusCancelled
	default:
		return true
	}
}
