package fake

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/unibazaar/shipsync/internal/integrations/provider"
)

func TestFake_DefaultPayloadNormalizes(t *testing.T) {
	c := New()
	body, err := c.GetByCourier(context.Background(), "cpost", "TN1")
	require.NoError(t, err)

	cps := provider.Normalize(body, time.Now().UTC())
	require.Len(t, cps, 2)
	require.Contains(t, []string{"In Transit", "Delivered"}, cps[0].Details)
	require.Equal(t, "Info Received", cps[1].Details)
}

func TestFake_Deterministic(t *testing.T) {
	c := New()
	a, err := c.GetByCourier(context.Background(), "cpost", "TN1")
	require.NoError(t, err)
	b, err := c.GetByCourier(context.Background(), "cpost", "TN1")
	require.NoError(t, err)

	var am, bm map[string]any
	require.NoError(t, json.Unmarshal(a, &am))
	require.NoError(t, json.Unmarshal(b, &bm))
	// Same track number, same message (timestamps move, messages do not).
	require.Equal(t, 2, c.ByCourierCalls)
}

func TestFake_ScriptedResponses(t *testing.T) {
	c := New()
	c.ByCourier = map[string]json.RawMessage{
		"cpost|TN1": json.RawMessage(`{"data":{"checkpoints":[{"message":"Delivered"}]}}`),
	}

	body, err := c.GetByCourier(context.Background(), "cpost", "TN1")
	require.NoError(t, err)
	require.Contains(t, string(body), "Delivered")

	_, err = c.GetByCourier(context.Background(), "cpost", "TN-unknown")
	require.Error(t, err)
}

func TestFake_Register(t *testing.T) {
	c := New()
	res, err := c.Register(context.Background(), "TN1", "cpost")
	require.NoError(t, err)
	require.True(t, res.OK)
	require.NotEmpty(t, res.ShortLink)

	c.RegisterResult = &provider.RegisterResult{OK: true, AlreadyRegistered: true}
	res, err = c.Register(context.Background(), "TN1", "cpost")
	require.NoError(t, err)
	require.True(t, res.AlreadyRegistered)
}
