package fake

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/unibazaar/shipsync/internal/integrations/provider"
)

// Client is a scripted stand-in for the tracking provider. With no script it
// behaves deterministically per (courier, track number), so local runs without
// a real provider still produce believable checkpoint flows.
type Client struct {
	RegisterResult *provider.RegisterResult
	RegisterErr    error

	// Keyed "courier|number" and by bare number respectively.
	ByCourier map[string]json.RawMessage
	ByNumber  map[string]json.RawMessage
	Entries   []json.RawMessage

	ByCourierErr error
	ByNumberErr  error
	ListErr      error

	RegisterCalls  int
	ByCourierCalls int
	ByNumberCalls  int
	ListCalls      int
}

func New() *Client { return &Client{} }

func (c *Client) Register(ctx context.Context, trackingNumber, courierCode string) (provider.RegisterResult, error) {
	c.RegisterCalls++
	if c.RegisterErr != nil {
		return provider.RegisterResult{}, c.RegisterErr
	}
	if c.RegisterResult != nil {
		return *c.RegisterResult, nil
	}
	return provider.RegisterResult{
		OK:        true,
		ShortLink: fmt.Sprintf("https://trk.example/%s", trackingNumber),
	}, nil
}

func (c *Client) GetByCourier(ctx context.Context, courierCode, trackingNumber string) (json.RawMessage, error) {
	c.ByCourierCalls++
	if c.ByCourierErr != nil {
		return nil, c.ByCourierErr
	}
	if c.ByCourier != nil {
		if b, ok := c.ByCourier[courierCode+"|"+trackingNumber]; ok {
			return b, nil
		}
		return nil, fmt.Errorf("fake provider: no tracking %s/%s", courierCode, trackingNumber)
	}
	return synthPayload(courierCode, trackingNumber), nil
}

func (c *Client) GetByNumber(ctx context.Context, trackingNumber string) (json.RawMessage, error) {
	c.ByNumberCalls++
	if c.ByNumberErr != nil {
		return nil, c.ByNumberErr
	}
	if c.ByNumber != nil {
		if b, ok := c.ByNumber[trackingNumber]; ok {
			return b, nil
		}
		return nil, fmt.Errorf("fake provider: no tracking %s", trackingNumber)
	}
	return synthPayload("", trackingNumber), nil
}

func (c *Client) ListAll(ctx context.Context) ([]json.RawMessage, error) {
	c.ListCalls++
	if c.ListErr != nil {
		return nil, c.ListErr
	}
	return c.Entries, nil
}

// synthPayload mirrors the provider's data.checkpoints shape. Roughly a fifth
// of track numbers come back delivered, the rest in transit.
func synthPayload(courierCode, trackingNumber string) json.RawMessage {
	h := fnv.New32a()
	_, _ = h.Write([]byte(courierCode))
	_, _ = h.Write([]byte("|"))
	_, _ = h.Write([]byte(trackingNumber))

	msg := "In Transit"
	if h.Sum32()%5 == 0 {
		msg = "Delivered"
	}

	now := time.Now().UTC()
	payload := map[string]any{
		"data": map[string]any{
			"checkpoints": []map[string]any{
				{
					"checkpoint_time": now.Format(time.RFC3339),
					"message":         msg,
					"location":        "Sorting center",
				},
				{
					"checkpoint_time": now.Add(-24 * time.Hour).Format(time.RFC3339),
					"message":         "Info Received",
				},
			},
		},
	}
	b, _ := json.Marshal(payload)
	return b
}
