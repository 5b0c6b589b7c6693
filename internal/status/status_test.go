package status

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/unibazaar/shipsync/internal/models"
)

func TestPriority_Order(t *testing.T) {
	require.Less(t, Priority(models.OrderStatusPending), Priority(models.OrderStatusProcessing))
	require.Less(t, Priority(models.OrderStatusProcessing), Priority(models.OrderStatusShipped))
	require.Less(t, Priority(models.OrderStatusShipped), Priority(models.OrderStatusDelivered))
	require.Less(t, Priority(models.OrderStatusDelivered), Priority(models.OrderStatusCancelled))
	require.Zero(t, Priority(models.OrderStatus("bogus")))
}

func TestIsAdvance_Forward(t *testing.T) {
	require.True(t, IsAdvance(models.OrderStatusPending, models.OrderStatusProcessing))
	require.True(t, IsAdvance(models.OrderStatusPending, models.OrderStatusShipped))
	require.True(t, IsAdvance(models.OrderStatusProcessing, models.OrderStatusShipped))
	require.True(t, IsAdvance(models.OrderStatusShipped, models.OrderStatusDelivered))
}

func TestIsAdvance_NeverBackward(t *testing.T) {
	require.False(t, IsAdvance(models.OrderStatusShipped, models.OrderStatusPending))
	require.False(t, IsAdvance(models.OrderStatusShipped, models.OrderStatusProcessing))
	require.False(t, IsAdvance(models.OrderStatusShipped, models.OrderStatusShipped))
	require.False(t, IsAdvance(models.OrderStatusDelivered, models.OrderStatusShipped))
}

func TestIsAdvance_CancelledIsTerminalAndNeverInferred(t *testing.T) {
	// Nothing leaves cancelled.
	require.False(t, IsAdvance(models.OrderStatusCancelled, models.OrderStatusDelivered))
	// Tracking data never moves an order into cancelled, even though its
	// priority is highest.
	require.False(t, IsAdvance(models.OrderStatusShipped, models.OrderStatusCancelled))
	require.False(t, IsAdvance(models.OrderStatusPending, models.OrderStatusCancelled))
}
