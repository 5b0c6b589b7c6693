package trackhubhttp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/unibazaar/shipsync/internal/integrations/provider"
)

const maxResponseBytes = 4 << 20

type Client struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
}

func New(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:9100"
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpc: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type registerReq struct {
	TrackingNumber string `json:"tracking_number"`
	CourierCode    string `json:"courier_code"`
}

type registerResp struct {
	Meta struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"meta"`
	Data struct {
		Tracking struct {
			ShortLink string `json:"short_link"`
		} `json:"tracking"`
	} `json:"data"`
}

func (c *Client) Register(ctx context.Context, trackingNumber, courierCode string) (provider.RegisterResult, error) {
	body, err := json.Marshal(registerReq{
		TrackingNumber: trackingNumber,
		CourierCode:    strings.ToLower(courierCode),
	})
	if err != nil {
		return provider.RegisterResult{}, errors.Wrap(err, "marshal register body")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/trackings", bytes.NewReader(body))
	if err != nil {
		return provider.RegisterResult{}, errors.Wrap(err, "new request")
	}
	req.Header.Set("Content-Type", "application/json")
	c.auth(req)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return provider.RegisterResult{}, errors.Wrap(err, "do request")
	}
	defer resp.Body.Close()

	var rb registerResp
	_ = json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&rb)

	switch {
	case resp.StatusCode/100 == 2:
		return provider.RegisterResult{OK: true, ShortLink: rb.Data.Tracking.ShortLink}, nil
	case alreadyRegistered(resp.StatusCode, rb):
		// Re-registering an existing shipment is success, not failure.
		return provider.RegisterResult{OK: true, AlreadyRegistered: true, ShortLink: rb.Data.Tracking.ShortLink}, nil
	default:
		return provider.RegisterResult{}, fmt.Errorf("provider register http %d: %s", resp.StatusCode, rb.Meta.Message)
	}
}

// 4003 is the provider's "tracking already exists" code; older deployments
// answer 409 without a meta block.
func alreadyRegistered(statusCode int, rb registerResp) bool {
	if statusCode == http.StatusConflict {
		return true
	}
	if rb.Meta.Code == 4003 {
		return true
	}
	return strings.Contains(strings.ToLower(rb.Meta.Message), "already exist")
}

func (c *Client) GetByCourier(ctx context.Context, courierCode, trackingNumber string) (json.RawMessage, error) {
	path := fmt.Sprintf("/trackings/%s/%s", url.PathEscape(strings.ToLower(courierCode)), url.PathEscape(trackingNumber))
	return c.get(ctx, path)
}

func (c *Client) GetByNumber(ctx context.Context, trackingNumber string) (json.RawMessage, error) {
	return c.get(ctx, "/trackings/"+url.PathEscape(trackingNumber))
}

type listResp struct {
	Trackings []json.RawMessage `json:"trackings"`
	Data      struct {
		Trackings []json.RawMessage `json:"trackings"`
	} `json:"data"`
}

func (c *Client) ListAll(ctx context.Context) ([]json.RawMessage, error) {
	body, err := c.get(ctx, "/trackings")
	if err != nil {
		return nil, err
	}
	var lr listResp
	if err := json.Unmarshal(body, &lr); err != nil {
		return nil, errors.Wrap(err, "decode list")
	}
	if len(lr.Trackings) > 0 {
		return lr.Trackings, nil
	}
	return lr.Data.Trackings, nil
}

func (c *Client) get(ctx context.Context, path string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, errors.Wrap(err, "new request")
	}
	c.auth(req)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "do request")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("provider rate limit (429)")
	}
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("provider http %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, errors.Wrap(err, "read body")
	}
	return body, nil
}

func (c *Client) auth(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Tracking-Api-Key", c.apiKey)
	}
}
