package provider

import (
	"encoding/json"
	"time"

	"github.com/unibazaar/shipsync/internal/models"
)

// Helpers over raw entries of the list-all endpoint. The provider is not
// consistent about field naming there, so the tracking number is checked
// under both variants it has been seen to use.

func EntryMatchesNumber(entry json.RawMessage, trackingNumber string) bool {
	m := decodeEntry(entry)
	if m == nil {
		return false
	}
	if n, ok := stringField(m, "tracking_number"); ok && n == trackingNumber {
		return true
	}
	if n, ok := stringField(m, "trackingNumber"); ok && n == trackingNumber {
		return true
	}
	return false
}

func EntryCourierCode(entry json.RawMessage) string {
	m := decodeEntry(entry)
	if m == nil {
		return ""
	}
	if c, ok := firstString(m, "courier", "courier_code"); ok {
		return c
	}
	return ""
}

func EntryStatus(entry json.RawMessage) string {
	m := decodeEntry(entry)
	if m == nil {
		return ""
	}
	s, _ := stringField(m, "status")
	return s
}

func EntryCourierName(entry json.RawMessage) string {
	m := decodeEntry(entry)
	if m == nil {
		return ""
	}
	if c, ok := firstString(m, "courier_name", "courier"); ok {
		return c
	}
	return ""
}

// EntryLatestCheckpoint synthesizes a single checkpoint from the entry's own
// summary field, for shipments whose detail fetch yields nothing.
func EntryLatestCheckpoint(entry json.RawMessage, now time.Time) (models.Checkpoint, bool) {
	m := decodeEntry(entry)
	if m == nil {
		return models.Checkpoint{}, false
	}
	cp, ok := m["latest_checkpoint"].(map[string]any)
	if !ok {
		return models.Checkpoint{}, false
	}
	return normalizeOne(cp, now), true
}

func decodeEntry(entry json.RawMessage) map[string]any {
	var m map[string]any
	if err := json.Unmarshal(entry, &m); err != nil {
		return nil
	}
	return m
}
