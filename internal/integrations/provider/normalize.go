package provider

import (
	"encoding/json"
	"time"

	"github.com/unibazaar/shipsync/internal/models"
)

// The provider returns checkpoints under several nestings depending on the
// endpoint (and sometimes on provider version). Each strategy is tried in
// order until one yields a non-empty list.
var checkpointPaths = [][]string{
	{"data", "checkpoints"},
	{"tracking", "checkpoints"},
	{"tracking", "latest_checkpoint"},
	{"originalData", "data", "checkpoints"},
}

// Normalize converts one raw provider payload into canonical checkpoints.
// Input order is passed through as-is; callers must not trust it beyond the
// provider's "element 0 is most recent" convention.
func Normalize(payload json.RawMessage, now time.Time) []models.Checkpoint {
	var root map[string]any
	if err := json.Unmarshal(payload, &root); err != nil {
		return nil
	}

	for _, path := range checkpointPaths {
		items := checkpointsAt(root, path)
		if len(items) == 0 {
			continue
		}
		out := make([]models.Checkpoint, 0, len(items))
		for _, it := range items {
			m, ok := it.(map[string]any)
			if !ok {
				continue
			}
			out = append(out, normalizeOne(m, now))
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

// checkpointsAt walks path into root. A terminal array is returned as-is; a
// terminal object (the latest_checkpoint case) is wrapped as one element.
func checkpointsAt(root map[string]any, path []string) []any {
	var cur any = root
	for _, key := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = m[key]
	}
	switch v := cur.(type) {
	case []any:
		return v
	case map[string]any:
		return []any{v}
	default:
		return nil
	}
}

func normalizeOne(m map[string]any, now time.Time) models.Checkpoint {
	cp := models.Checkpoint{
		Time:    now,
		Details: "Status update",
	}

	if raw, ok := firstString(m, "checkpoint_time", "time", "created_at"); ok {
		if t, ok := parseCheckpointTime(raw); ok {
			cp.Time = t
		}
	}
	if txt, ok := firstString(m, "message", "content", "description", "status"); ok {
		cp.Details = txt
	}
	if st, ok := stringField(m, "status"); ok {
		cp.Status = st
	}
	if loc, ok := stringField(m, "location"); ok {
		cp.Location = loc
	}

	if b, err := json.Marshal(m); err == nil {
		cp.Raw = b
	}
	return cp
}

var checkpointTimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseCheckpointTime(s string) (time.Time, bool) {
	for _, layout := range checkpointTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// StatusOf pulls the provider's own coarse status label out of a payload,
// wherever the endpoint happened to put it.
func StatusOf(payload json.RawMessage) string {
	var root map[string]any
	if err := json.Unmarshal(payload, &root); err != nil {
		return ""
	}
	for _, path := range [][]string{{"data", "status"}, {"tracking", "status"}} {
		if s := stringAt(root, path); s != "" {
			return s
		}
	}
	return ""
}

// CourierNameOf pulls the courier display name, when the payload carries one.
func CourierNameOf(payload json.RawMessage) string {
	var root map[string]any
	if err := json.Unmarshal(payload, &root); err != nil {
		return ""
	}
	for _, path := range [][]string{
		{"data", "courier_name"}, {"tracking", "courier_name"},
		{"data", "courier"}, {"tracking", "courier"},
	} {
		if s := stringAt(root, path); s != "" {
			return s
		}
	}
	return ""
}

func stringAt(root map[string]any, path []string) string {
	var cur any = root
	for _, key := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return ""
		}
		cur = m[key]
	}
	s, _ := cur.(string)
	return s
}

func firstString(m map[string]any, keys ...string) (string, bool) {
	for _, k := range keys {
		if s, ok := stringField(m, k); ok {
			return s, true
		}
	}
	return "", false
}

func stringField(m map[string]any, key string) (string, bool) {
	s, ok := m[key].(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}
