package status

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/unibazaar/shipsync/internal/models"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		in   string
		want models.OrderStatus
	}{
		{"Delivered", models.OrderStatusDelivered},
		{"Package delivered to recipient", models.OrderStatusDelivered},
		{"Shipment Completed", models.OrderStatusDelivered},
		{"In Transit", models.OrderStatusShipped},
		{"Out for Delivery", models.OrderStatusShipped},
		{"Delivery Exception", models.OrderStatusShipped},
		{"Attempt Failed", models.OrderStatusShipped},
		{"Label Generated", models.OrderStatusProcessing},
		{"Label Printed", models.OrderStatusProcessing},
		{"Info Received", models.OrderStatusPending},
		{"Pending pickup", models.OrderStatusPending},
		{"Available for Pickup", models.OrderStatusPending},
		{"Cancelled by sender", models.OrderStatusCancelled},
		{"Returned to sender", models.OrderStatusCancelled},
		{"Tracking Expired", models.OrderStatusCancelled},
	}
	for _, c := range cases {
		require.Equal(t, c.want, Classify(c.in), "input: %q", c.in)
	}
}

func TestClassify_CaseInsensitive(t *testing.T) {
	require.Equal(t, models.OrderStatusDelivered, Classify("DELIVERED"))
	require.Equal(t, models.OrderStatusShipped, Classify("in transit"))
}

func TestClassify_FirstMatchWins(t *testing.T) {
	// "Delivered" outranks the "out for delivery" entry further down.
	require.Equal(t, models.OrderStatusDelivered, Classify("Delivered after out for delivery"))
}

func TestClassify_DefaultsToProcessing(t *testing.T) {
	require.Equal(t, models.OrderStatusProcessing, Classify("Arrived at facility"))
	require.Equal(t, models.OrderStatusProcessing, Classify(""))
}
