package provider

import (
	"context"
	"encoding/json"
)

type RegisterResult struct {
	OK bool
	// The provider reports "already registered" separately, but callers treat
	// it the same as a fresh registration.
	AlreadyRegistered bool
	ShortLink         string
}

// Client is the courier-tracking provider capability. The HTTP implementation
// lives in trackhubhttp; tests and local runs use the scripted fake.
type Client interface {
	// Register makes the shipment known to the provider. Safe to repeat.
	Register(ctx context.Context, trackingNumber, courierCode string) (RegisterResult, error)

	// GetByCourier queries the courier-specific endpoint. Returns the raw
	// response body; shapes vary, so normalization happens separately.
	GetByCourier(ctx context.Context, courierCode, trackingNumber string) (json.RawMessage, error)

	// GetByNumber queries the generic endpoint by tracking number alone.
	GetByNumber(ctx context.Context, trackingNumber string) (json.RawMessage, error)

	// ListAll returns every registered shipment as raw list entries.
	ListAll(ctx context.Context) ([]json.RawMessage, error)
}
