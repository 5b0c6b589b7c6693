package status

import "github.com/unibazaar/shipsync/internal/models"

// Fixed forward order for tracking-derived transitions.
var priorities = map[models.OrderStatus]int{
	models.OrderStatusPending:    1,
	models.OrderStatusProcessing: 2,
	models.OrderStatusShipped:    3,
	models.OrderStatusDelivered:  4,
	models.OrderStatusCancelled:  5,
}

func Priority(s models.OrderStatus) int {
	return priorities[s]
}

// IsAdvance reports whether a tracking-derived transition from current to
// candidate is strictly forward. Cancelled is terminal: nothing moves out of
// it, and tracking data never moves an order into it — cancellation happens
// only through an explicit seller/admin action.
func IsAdvance(current, candidate models.OrderStatus) bool {
	if current == models.OrderStatusCancelled {
		return false
	}
	if candidate == models.OrderStatusCancelled {
		return false
	}
	return Priority(candidate) > Priority(current)
}
