package status

import (
	"strings"

	"github.com/unibazaar/shipsync/internal/models"
)

type rule struct {
	substr string
	status models.OrderStatus
}

// Ordered: first matching entry wins. Matching is a case-insensitive
// substring search against whatever text the provider sent.
var rules = []rule{
	{"delivered", models.OrderStatusDelivered},
	{"completed", models.OrderStatusDelivered},
	{"out for delivery", models.OrderStatusShipped},
	{"in transit", models.OrderStatusShipped},
	{"attempt fail", models.OrderStatusShipped},
	{"exception", models.OrderStatusShipped},
	{"generated", models.OrderStatusProcessing},
	{"printed", models.OrderStatusProcessing},
	{"info received", models.OrderStatusPending},
	{"available for pickup", models.OrderStatusPending},
	{"pending", models.OrderStatusPending},
	{"cancelled", models.OrderStatusCancelled},
	{"returned", models.OrderStatusCancelled},
	{"expired", models.OrderStatusCancelled},
}

// Classify maps a checkpoint's free-text status to a coarse order status.
// Text we cannot place defaults to "processing": the shipment exists but we
// do not know more than that.
func Classify(detailed string) models.OrderStatus {
	low := strings.ToLower(detailed)
	for _, r := range rules {
		if strings.Contains(low, r.substr) {
			return r.status
		}
	}
	return models.OrderStatusProcessing
}
