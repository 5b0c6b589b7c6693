package pgorders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
	"github.com/unibazaar/shipsync/internal/models"
)

// prioExpr renders the fixed status priority order in SQL, so the monotonic
// guard holds under concurrent writers without any locking on our side.
func prioExpr(col string) string {
	return fmt.Sprintf(`CASE %s
  WHEN 'pending' THEN 1
  WHEN 'processing' THEN 2
  WHEN 'shipped' THEN 3
  WHEN 'delivered' THEN 4
  WHEN 'cancelled' THEN 5
  ELSE 0 END`, col)
}

const orderColumns = `
  id, status, payment_status,
  tracking_number, courier_code, courier_name,
  short_link, detailed_tracking_status,
  last_checked_at, next_check_at, check_fail_count, last_error,
  created_at, updated_at`

func (s *Storage) CreateOrder(ctx context.Context, in models.OrderCreateInput) (*models.Order, error) {
	id := in.ID
	if id == "" {
		id = "ord_" + uuid.NewString()
	}
	pay := in.PaymentStatus
	if pay == "" {
		pay = models.PaymentStatusPending
	}
	now := time.Now().UTC()

	_, err := s.db.Exec(ctx, `
INSERT INTO orders (id, status, payment_status, next_check_at, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $5)
`, id, models.OrderStatusPending, pay, now, now)
	if err != nil {
		return nil, errors.Wrap(err, "insert order")
	}
	return s.GetOrder(ctx, id)
}

func (s *Storage) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	row := s.db.QueryRow(ctx, `SELECT`+orderColumns+` FROM orders WHERE id = $1`, id)
	o, err := scanOrder(row)
	if err == pgx.ErrNoRows {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "select order")
	}
	return o, nil
}

// AssignShipment stores the tracking identity set by the seller's "mark as
// shipped" action. The bump to processing goes through the same forward-only
// guard as every other transition.
func (s *Storage) AssignShipment(ctx context.Context, orderID, trackingNumber, courierCode, courierName string) error {
	tag, err := s.db.Exec(ctx, `
UPDATE orders
SET
  tracking_number = $2,
  courier_code = $3,
  courier_name = $4,
  status = CASE WHEN `+prioExpr("status")+` < 2 THEN 'processing' ELSE status END,
  next_check_at = now(),
  updated_at = now()
WHERE id = $1 AND status <> 'cancelled'
`, orderID, trackingNumber, courierCode, courierName)
	if err != nil {
		return errors.Wrap(err, "assign shipment")
	}
	if tag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (s *Storage) SetShortLink(ctx context.Context, orderID, shortLink string) error {
	_, err := s.db.Exec(ctx, `
UPDATE orders SET short_link = $2, updated_at = now() WHERE id = $1
`, orderID, shortLink)
	return errors.Wrap(err, "set short link")
}

// AdvanceStatus applies a tracking-derived transition if and only if the
// candidate is strictly later in the fixed order. A stale or concurrent
// lower-priority write matches zero rows and is a no-op, never a regression.
// Cancellation cannot be reached through here.
func (s *Storage) AdvanceStatus(ctx context.Context, orderID string, candidate models.OrderStatus, detailed string) (bool, error) {
	tag, err := s.db.Exec(ctx, `
UPDATE orders
SET status = $2, detailed_tracking_status = $3, updated_at = now()
WHERE id = $1
  AND $2 <> 'cancelled'
  AND status <> 'cancelled'
  AND `+prioExpr("status")+` < `+prioExpr("$2::text")+`
`, orderID, string(candidate), detailed)
	if err != nil {
		return false, errors.Wrap(err, "advance status")
	}
	return tag.RowsAffected() > 0, nil
}

// CancelOrder is the explicit terminal override; tracking data never infers
// it. Delivered orders stay delivered.
func (s *Storage) CancelOrder(ctx context.Context, orderID string) (bool, error) {
	tag, err := s.db.Exec(ctx, `
UPDATE orders
SET status = 'cancelled', updated_at = now()
WHERE id = $1 AND status NOT IN ('delivered', 'cancelled')
`, orderID)
	if err != nil {
		return false, errors.Wrap(err, "cancel order")
	}
	return tag.RowsAffected() > 0, nil
}

// RecordSyncOutcome stores the bookkeeping of one sync attempt: last check
// time, failure counter and the next scheduled re-check.
func (s *Storage) RecordSyncOutcome(ctx context.Context, orderID string, checkedAt time.Time, syncErr *string, nextCheckAt time.Time) error {
	if syncErr != nil && *syncErr != "" {
		_, err := s.db.Exec(ctx, `
UPDATE orders
SET
  last_checked_at = $2,
  check_fail_count = check_fail_count + 1,
  last_error = $3,
  next_check_at = $4,
  updated_at = now()
WHERE id = $1
`, orderID, checkedAt.UTC(), *syncErr, nextCheckAt.UTC())
		return errors.Wrap(err, "record sync outcome (error)")
	}

	_, err := s.db.Exec(ctx, `
UPDATE orders
SET
  last_checked_at = $2,
  check_fail_count = 0,
  last_error = NULL,
  next_check_at = $3,
  updated_at = now()
WHERE id = $1
`, orderID, checkedAt.UTC(), nextCheckAt.UTC())
	return errors.Wrap(err, "record sync outcome (ok)")
}

// ClaimDueOrders picks a batch of orders ready for a scheduled re-check and
// leases them so a concurrent worker does not pick them up again.
// Uses SELECT ... FOR UPDATE SKIP LOCKED.
func (s *Storage) ClaimDueOrders(ctx context.Context, now time.Time, limit int, lease time.Duration) ([]*models.Order, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, `
SELECT`+orderColumns+`
FROM orders
WHERE next_check_at <= $1
  AND tracking_number <> ''
  AND courier_code <> ''
  AND status NOT IN ('delivered', 'cancelled')
ORDER BY next_check_at ASC
LIMIT $2
FOR UPDATE SKIP LOCKED
`, now.UTC(), limit)
	if err != nil {
		return nil, errors.Wrap(err, "select due orders")
	}
	defer rows.Close()

	var picked []*models.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan due order")
		}
		picked = append(picked, o)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}

	leaseUntil := now.UTC().Add(lease)
	for _, o := range picked {
		_, err := tx.Exec(ctx, `UPDATE orders SET next_check_at = $2, updated_at = now() WHERE id = $1`, o.ID, leaseUntil)
		if err != nil {
			return nil, errors.Wrap(err, "lease order")
		}
		o.NextCheckAt = leaseUntil
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, errors.Wrap(err, "commit tx")
	}
	return picked, nil
}

func scanOrder(row pgx.Row) (*models.Order, error) {
	var o models.Order
	if err := row.Scan(
		&o.ID, &o.Status, &o.PaymentStatus,
		&o.TrackingNumber, &o.CourierCode, &o.CourierName,
		&o.ShortLink, &o.DetailedTrackingStatus,
		&o.LastCheckedAt, &o.NextCheckAt, &o.CheckFailCount, &o.LastError,
		&o.CreatedAt, &o.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &o, nil
}
