package pgorders

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/pkg/errors"
	"github.com/unibazaar/shipsync/internal/models"
)

// AppendCheckpoints inserts checkpoints into the ledger, skipping any whose
// dedup key (order, tracking number, checkpoint time, details) already
// exists. A failed row is logged and skipped; the batch never aborts.
// Returns the number of rows actually inserted.
//
// With no checkpoints at all, a single synthetic "Info Received" row is
// written iff the order has no history yet, so a registered shipment always
// has at least one visible event.
func (s *Storage) AppendCheckpoints(ctx context.Context, orderID, trackingNumber string, cps []models.Checkpoint) (int, error) {
	now := time.Now().UTC()

	if len(cps) == 0 {
		n, err := s.countHistory(ctx, orderID)
		if err != nil {
			return 0, err
		}
		if n > 0 {
			return 0, nil
		}
		cps = []models.Checkpoint{{
			Time:    now,
			Status:  "InfoReceived",
			Details: "Info Received",
		}}
	}

	inserted := 0
	for _, cp := range cps {
		var payload any
		if len(cp.Raw) > 0 {
			var m any
			if json.Unmarshal(cp.Raw, &m) == nil {
				payload = m
			}
		}

		tag, err := s.db.Exec(ctx, `
INSERT INTO tracking_history (
  order_id, tracking_number, checkpoint_time, status, details, location, payload, created_at
)
VALUES ($1,$2,$3,$4,$5,$6,$7, now())
ON CONFLICT (order_id, tracking_number, checkpoint_time, details) DO NOTHING
`, orderID, trackingNumber, cp.Time.UTC(), cp.Status, cp.Details, cp.Location, payload)
		if err != nil {
			slog.Error("insert checkpoint", "order_id", orderID, "checkpoint_time", cp.Time, "error", err.Error())
			continue
		}
		inserted += int(tag.RowsAffected())
	}
	return inserted, nil
}

func (s *Storage) ReadHistory(ctx context.Context, orderID string) ([]*models.TrackingHistoryEntry, error) {
	rows, err := s.db.Query(ctx, `
SELECT
  id, order_id, tracking_number, checkpoint_time,
  status, details, location, payload, created_at
FROM tracking_history
WHERE order_id = $1
ORDER BY checkpoint_time DESC, id DESC
`, orderID)
	if err != nil {
		return nil, errors.Wrap(err, "select history")
	}
	defer rows.Close()

	var out []*models.TrackingHistoryEntry
	for rows.Next() {
		var e models.TrackingHistoryEntry
		var payload any
		if err := rows.Scan(
			&e.ID, &e.OrderID, &e.TrackingNumber, &e.CheckpointTime,
			&e.Status, &e.Details, &e.Location, &payload, &e.CreatedAt,
		); err != nil {
			return nil, errors.Wrap(err, "scan history entry")
		}

		if payload != nil {
			b, _ := json.Marshal(payload)
			s := string(b)
			e.PayloadJSON = &s
		}

		out = append(out, &e)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

func (s *Storage) countHistory(ctx context.Context, orderID string) (int, error) {
	var n int
	err := s.db.QueryRow(ctx, `SELECT count(*) FROM tracking_history WHERE order_id = $1`, orderID).Scan(&n)
	if err != nil {
		return 0, errors.Wrap(err, "count history")
	}
	return n, nil
}
