package pgorders

import (
	"context"

	"github.com/pkg/errors"
)

func (s *Storage) initSchema(ctx context.Context) error {
	stmts := []string{
		`
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  status TEXT NOT NULL,
  payment_status TEXT NOT NULL,
  tracking_number TEXT NOT NULL DEFAULT '',
  courier_code TEXT NOT NULL DEFAULT '',
  courier_name TEXT NOT NULL DEFAULT '',
  short_link TEXT NULL,
  detailed_tracking_status TEXT NULL,
  last_checked_at TIMESTAMPTZ NULL,
  next_check_at TIMESTAMPTZ NOT NULL,
  check_fail_count INT NOT NULL DEFAULT 0,
  last_error TEXT NULL,
  created_at TIMESTAMPTZ NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_next_check_at ON orders(next_check_at)`,
		`
CREATE TABLE IF NOT EXISTS tracking_history (
  id BIGSERIAL PRIMARY KEY,
  order_id TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
  tracking_number TEXT NOT NULL,
  checkpoint_time TIMESTAMPTZ NOT NULL,
  status TEXT NOT NULL DEFAULT '',
  details TEXT NOT NULL DEFAULT '',
  location TEXT NOT NULL DEFAULT '',
  payload JSONB NULL,
  created_at TIMESTAMPTZ NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_tracking_history_order_time ON tracking_history(order_id, checkpoint_time DESC)`,
		// The ledger is append-only; this index is what makes inserts idempotent.
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_tracking_history_dedup ON tracking_history(order_id, tracking_number, checkpoint_time, details)`,
	}

	for _, q := range stmts {
		if _, err := s.db.Exec(ctx, q); err != nil {
			return errors.Wrap(err, "init schema")
		}
	}
	return nil
}
