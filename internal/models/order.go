package models

import (
	"encoding/json"
	"time"
)

// Coarse order lifecycle. Tracking-derived updates only ever move it forward
// (see internal/status); cancellation is an explicit seller/admin action.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// Payment is a separate axis and is never touched by the sync engine.
// "pending" here means "awaiting payment", not "awaiting courier pickup".
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

type Order struct {
	ID            string
	Status        OrderStatus
	PaymentStatus PaymentStatus

	TrackingNumber string
	CourierCode    string
	CourierName    string

	ShortLink              *string
	DetailedTrackingStatus *string

	LastCheckedAt  *time.Time
	NextCheckAt    time.Time
	CheckFailCount int32
	LastError      *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Shippable reports whether the order carries a tracking identity.
func (o *Order) Shippable() bool {
	return o.TrackingNumber != "" && o.CourierCode != ""
}

// Checkpoint is one provider-sourced shipment event before persistence.
type Checkpoint struct {
	Time     time.Time
	Status   string
	Details  string
	Location string
	Raw      json.RawMessage
}

type TrackingHistoryEntry struct {
	ID             uint64
	OrderID        string
	TrackingNumber string
	CheckpointTime time.Time
	Status         string
	Details        string
	Location       string
	PayloadJSON    *string
	CreatedAt      time.Time
}

type OrderCreateInput struct {
	ID            string
	PaymentStatus PaymentStatus
}
