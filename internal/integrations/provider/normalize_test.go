package provider

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestNormalize_DataCheckpoints(t *testing.T) {
	payload := []byte(`{"data":{"checkpoints":[
		{"checkpoint_time":"2025-05-30T10:00:00Z","message":"In Transit","location":"Hub A"},
		{"checkpoint_time":"2025-05-29T08:00:00Z","message":"Info Received"}
	]}}`)

	cps := Normalize(payload, testNow)
	require.Len(t, cps, 2)
	require.Equal(t, "In Transit", cps[0].Details)
	require.Equal(t, "Hub A", cps[0].Location)
	require.Equal(t, time.Date(2025, 5, 30, 10, 0, 0, 0, time.UTC), cps[0].Time)
	require.NotEmpty(t, cps[0].Raw)
}

func TestNormalize_TrackingCheckpoints(t *testing.T) {
	payload := []byte(`{"tracking":{"checkpoints":[{"time":"2025-05-30 10:00:00","content":"Out for Delivery"}]}}`)

	cps := Normalize(payload, testNow)
	require.Len(t, cps, 1)
	require.Equal(t, "Out for Delivery", cps[0].Details)
	require.Equal(t, time.Date(2025, 5, 30, 10, 0, 0, 0, time.UTC), cps[0].Time)
}

func TestNormalize_LatestCheckpointWrapped(t *testing.T) {
	payload := []byte(`{"tracking":{"latest_checkpoint":{"created_at":"2025-05-30T10:00:00Z","description":"Delivered"}}}`)

	cps := Normalize(payload, testNow)
	require.Len(t, cps, 1)
	require.Equal(t, "Delivered", cps[0].Details)
}

func TestNormalize_OriginalDataFallback(t *testing.T) {
	payload := []byte(`{"originalData":{"data":{"checkpoints":[{"status":"InTransit","checkpoint_time":"2025-05-30T10:00:00Z"}]}}}`)

	cps := Normalize(payload, testNow)
	require.Len(t, cps, 1)
	// No message/content/description, so the status label doubles as details.
	require.Equal(t, "InTransit", cps[0].Details)
	require.Equal(t, "InTransit", cps[0].Status)
}

func TestNormalize_ShapePrecedence(t *testing.T) {
	// data.checkpoints wins over tracking.checkpoints when both exist.
	payload := []byte(`{
		"data":{"checkpoints":[{"message":"from data"}]},
		"tracking":{"checkpoints":[{"message":"from tracking"}]}
	}`)

	cps := Normalize(payload, testNow)
	require.Len(t, cps, 1)
	require.Equal(t, "from data", cps[0].Details)
}

func TestNormalize_FieldFallbacks(t *testing.T) {
	// message beats content beats description beats status.
	payload := []byte(`{"data":{"checkpoints":[{"content":"B","description":"C","status":"D"}]}}`)
	cps := Normalize(payload, testNow)
	require.Len(t, cps, 1)
	require.Equal(t, "B", cps[0].Details)
}

func TestNormalize_Defaults(t *testing.T) {
	payload := []byte(`{"data":{"checkpoints":[{}]}}`)
	cps := Normalize(payload, testNow)
	require.Len(t, cps, 1)
	require.Equal(t, testNow, cps[0].Time)
	require.Equal(t, "Status update", cps[0].Details)
	require.Empty(t, cps[0].Location)
}

func TestNormalize_BadTimeFallsBackToNow(t *testing.T) {
	payload := []byte(`{"data":{"checkpoints":[{"checkpoint_time":"not a time","message":"x"}]}}`)
	cps := Normalize(payload, testNow)
	require.Len(t, cps, 1)
	require.Equal(t, testNow, cps[0].Time)
}

func TestNormalize_NoUsableShape(t *testing.T) {
	require.Nil(t, Normalize([]byte(`{"data":{"something":"else"}}`), testNow))
	require.Nil(t, Normalize([]byte(`{"data":{"checkpoints":[]}}`), testNow))
	require.Nil(t, Normalize([]byte(`not json`), testNow))
}

func TestStatusOf(t *testing.T) {
	require.Equal(t, "InTransit", StatusOf([]byte(`{"data":{"status":"InTransit"}}`)))
	require.Equal(t, "Delivered", StatusOf([]byte(`{"tracking":{"status":"Delivered"}}`)))
	require.Empty(t, StatusOf([]byte(`{}`)))
}

func TestCourierNameOf(t *testing.T) {
	require.Equal(t, "Campus Post", CourierNameOf([]byte(`{"data":{"courier_name":"Campus Post"}}`)))
	require.Equal(t, "cpost", CourierNameOf([]byte(`{"tracking":{"courier":"cpost"}}`)))
}

func TestEntryMatchesNumber_BothVariants(t *testing.T) {
	require.True(t, EntryMatchesNumber(json.RawMessage(`{"tracking_number":"TN1"}`), "TN1"))
	require.True(t, EntryMatchesNumber(json.RawMessage(`{"trackingNumber":"TN1"}`), "TN1"))
	require.False(t, EntryMatchesNumber(json.RawMessage(`{"tracking_number":"TN2"}`), "TN1"))
	require.False(t, EntryMatchesNumber(json.RawMessage(`{"tracking_number":"tn1"}`), "TN1")) // exact match only
}

func TestEntryLatestCheckpoint(t *testing.T) {
	entry := json.RawMessage(`{"tracking_number":"TN1","latest_checkpoint":{"message":"In Transit","checkpoint_time":"2025-05-30T10:00:00Z"}}`)
	cp, ok := EntryLatestCheckpoint(entry, testNow)
	require.True(t, ok)
	require.Equal(t, "In Transit", cp.Details)

	_, ok = EntryLatestCheckpoint(json.RawMessage(`{"tracking_number":"TN1"}`), testNow)
	require.False(t, ok)
}

func TestEntryCourier(t *testing.T) {
	require.Equal(t, "cpost", EntryCourierCode(json.RawMessage(`{"courier":"cpost"}`)))
	require.Equal(t, "cpost", EntryCourierCode(json.RawMessage(`{"courier_code":"cpost"}`)))
	require.Equal(t, "Pending", EntryStatus(json.RawMessage(`{"status":"Pending"}`)))
}
