package messages

import "time"

// Sync trigger reasons; both funnel into the same engine entry point.
const (
	SyncReasonScheduled = "scheduled"
	SyncReasonWebhook   = "webhook"
	SyncReasonManual    = "manual"
)

// SyncRequested asks the API side to run a tracking sync for one order.
// Published by the worker's poller and by webhook simulation.
type SyncRequested struct {
	OrderID     string    `json:"order_id"`
	Reason      string    `json:"reason,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
}

// OrderStatusChanged is emitted after a monotonic status advance, for
// consumers outside this subsystem (notifications, seller dashboard).
type OrderStatusChanged struct {
	OrderID        string    `json:"order_id"`
	PreviousStatus string    `json:"previous_status"`
	Status         string    `json:"status"`
	DetailedStatus string    `json:"detailed_status,omitempty"`
	ChangedAt      time.Time `json:"changed_at"`
}
