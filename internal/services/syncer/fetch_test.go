package syncer

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"github.com/unibazaar/shipsync/internal/integrations/provider/fake"
	"github.com/unibazaar/shipsync/internal/models"
)

func shippedOrder() *models.Order {
	return &models.Order{
		ID:             "ord_1",
		Status:         models.OrderStatusProcessing,
		TrackingNumber: "TN1",
		CourierCode:    "cpost",
	}
}

func TestFetch_CourierEndpointWins(t *testing.T) {
	fp := fake.New()
	fp.ByCourier = map[string]json.RawMessage{
		"cpost|TN1": json.RawMessage(`{"data":{"checkpoints":[{"message":"In Transit"}],"status":"InTransit","courier_name":"Campus Post"}}`),
	}
	fp.ByNumber = map[string]json.RawMessage{}

	s := New(nil, fp)
	res, err := s.fetchCheckpoints(context.Background(), shippedOrder())
	require.NoError(t, err)
	require.Len(t, res.Checkpoints, 1)
	require.Equal(t, "In Transit", res.Checkpoints[0].Details)
	require.Equal(t, "InTransit", res.ProviderStatus)
	require.Equal(t, "Campus Post", res.CourierName)
	require.Equal(t, 1, fp.ByCourierCalls)
	require.Zero(t, fp.ByNumberCalls)
	require.Zero(t, fp.ListCalls)
}

func TestFetch_FallsBackToGenericEndpoint(t *testing.T) {
	fp := fake.New()
	fp.ByCourierErr = errors.New("courier endpoint down")
	fp.ByNumber = map[string]json.RawMessage{
		"TN1": json.RawMessage(`{"tracking":{"checkpoints":[{"content":"Out for Delivery"}]}}`),
	}

	s := New(nil, fp)
	res, err := s.fetchCheckpoints(context.Background(), shippedOrder())
	require.NoError(t, err)
	require.Len(t, res.Checkpoints, 1)
	require.Equal(t, "Out for Delivery", res.Checkpoints[0].Details)
	require.Equal(t, 1, fp.ByNumberCalls)
	require.Zero(t, fp.ListCalls)
}

func TestFetch_EmptyResponseCountsAsStageFailure(t *testing.T) {
	fp := fake.New()
	// Both direct endpoints answer, but with nothing usable.
	fp.ByCourier = map[string]json.RawMessage{"cpost|TN1": json.RawMessage(`{}`)}
	fp.ByNumber = map[string]json.RawMessage{"TN1": json.RawMessage(`{"data":{"checkpoints":[]}}`)}
	fp.Entries = []json.RawMessage{
		json.RawMessage(`{"tracking_number":"TN1","courier":"cpost","latest_checkpoint":{"message":"In Transit"}}`),
	}

	s := New(nil, fp)
	res, err := s.fetchCheckpoints(context.Background(), shippedOrder())
	require.NoError(t, err)
	require.Len(t, res.Checkpoints, 1)
	require.Equal(t, "In Transit", res.Checkpoints[0].Details)
	require.Equal(t, 1, fp.ListCalls)
}

func TestFetch_ListMatchRequeriesWithMatchedCourier(t *testing.T) {
	fp := fake.New()
	fp.ByCourier = map[string]json.RawMessage{
		// The order thinks it is cpost but the provider knows it as bikex.
		"bikex|TN1": json.RawMessage(`{"data":{"checkpoints":[{"message":"Rider picked up"}]}}`),
	}
	fp.ByNumber = map[string]json.RawMessage{}
	fp.Entries = []json.RawMessage{
		json.RawMessage(`{"tracking_number":"TN-other"}`),
		json.RawMessage(`{"tracking_number":"TN1","courier":"bikex","status":"InTransit"}`),
	}

	s := New(nil, fp)
	res, err := s.fetchCheckpoints(context.Background(), shippedOrder())
	require.NoError(t, err)
	require.Len(t, res.Checkpoints, 1)
	require.Equal(t, "Rider picked up", res.Checkpoints[0].Details)
	require.Equal(t, "InTransit", res.ProviderStatus)
	// First query under cpost, re-query under bikex.
	require.Equal(t, 2, fp.ByCourierCalls)
}

func TestFetch_SummaryCheckpointWhenRequeryFails(t *testing.T) {
	fp := fake.New()
	fp.ByCourier = map[string]json.RawMessage{} // every detail query misses
	fp.ByNumber = map[string]json.RawMessage{}
	fp.Entries = []json.RawMessage{
		json.RawMessage(`{"tracking_number":"TN1","courier":"bikex","latest_checkpoint":{"message":"At depot","checkpoint_time":"2025-05-30T10:00:00Z"}}`),
	}

	s := New(nil, fp)
	res, err := s.fetchCheckpoints(context.Background(), shippedOrder())
	require.NoError(t, err)
	require.Len(t, res.Checkpoints, 1)
	require.Equal(t, "At depot", res.Checkpoints[0].Details)
}

func TestFetch_AllStagesFailNamesEachStage(t *testing.T) {
	fp := fake.New()
	fp.ByCourierErr = errors.New("courier boom")
	fp.ByNumberErr = errors.New("generic boom")
	fp.ListErr = errors.New("list boom")

	s := New(nil, fp)
	_, err := s.fetchCheckpoints(context.Background(), shippedOrder())
	require.Error(t, err)
	require.Contains(t, err.Error(), "courier boom")
	require.Contains(t, err.Error(), "generic boom")
	require.Contains(t, err.Error(), "list boom")
}

func TestFetch_NumberNotInList(t *testing.T) {
	fp := fake.New()
	fp.ByCourier = map[string]json.RawMessage{}
	fp.ByNumber = map[string]json.RawMessage{}
	fp.Entries = []json.RawMessage{json.RawMessage(`{"tracking_number":"TN-other"}`)}

	s := New(nil, fp)
	_, err := s.fetchCheckpoints(context.Background(), shippedOrder())
	require.Error(t, err)
	require.Contains(t, err.Error(), "not in shipment list")
}

func TestFetch_RegisterShortLinkSurvivesFetchFailure(t *testing.T) {
	fp := fake.New()
	fp.ByCourierErr = errors.New("down")
	fp.ByNumberErr = errors.New("down")
	fp.ListErr = errors.New("down")

	s := New(nil, fp)
	res, err := s.fetchCheckpoints(context.Background(), shippedOrder())
	require.Error(t, err)
	require.Equal(t, "https://trk.example/TN1", res.ShortLink)
	require.Equal(t, 1, fp.RegisterCalls)
}

func TestFetch_RegisterFailureIsIgnored(t *testing.T) {
	fp := fake.New()
	fp.RegisterErr = errors.New("registration refused")
	fp.ByCourier = map[string]json.RawMessage{
		"cpost|TN1": json.RawMessage(`{"data":{"checkpoints":[{"message":"In Transit"}]}}`),
	}

	s := New(nil, fp)
	res, err := s.fetchCheckpoints(context.Background(), shippedOrder())
	require.NoError(t, err)
	require.Len(t, res.Checkpoints, 1)
}
