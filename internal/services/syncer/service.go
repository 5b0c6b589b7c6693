package syncer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/pkg/errors"
	"github.com/unibazaar/shipsync/internal/broker/messages"
	"github.com/unibazaar/shipsync/internal/cache"
	"github.com/unibazaar/shipsync/internal/integrations/provider"
	"github.com/unibazaar/shipsync/internal/models"
	"github.com/unibazaar/shipsync/internal/status"
	"github.com/unibazaar/shipsync/internal/storage/pgorders"
)

type Repository interface {
	GetOrder(ctx context.Context, id string) (*models.Order, error)
	CreateOrder(ctx context.Context, in models.OrderCreateInput) (*models.Order, error)
	AssignShipment(ctx context.Context, orderID, trackingNumber, courierCode, courierName string) error
	SetShortLink(ctx context.Context, orderID, shortLink string) error
	AdvanceStatus(ctx context.Context, orderID string, candidate models.OrderStatus, detailed string) (bool, error)
	CancelOrder(ctx context.Context, orderID string) (bool, error)
	RecordSyncOutcome(ctx context.Context, orderID string, checkedAt time.Time, syncErr *string, nextCheckAt time.Time) error
	AppendCheckpoints(ctx context.Context, orderID, trackingNumber string, cps []models.Checkpoint) (int, error)
	ReadHistory(ctx context.Context, orderID string) ([]*models.TrackingHistoryEntry, error)
}

type Producer interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error)
}

// Service is the synchronization engine. Manual refresh, webhook simulation
// and the scheduled path all enter through Sync, so side effects are
// identical no matter who triggered it.
type Service struct {
	repo     Repository
	provider provider.Client

	cache   cache.BytesCache
	viewTTL time.Duration

	producer    Producer
	statusTopic string

	rl                 RateLimiter
	rateLimitPerMinute int64

	planner *Planner
}

func New(repo Repository, prov provider.Client) *Service {
	return &Service{
		repo:     repo,
		provider: prov,
		planner:  NewPlanner(DefaultPlannerConfig(), nil),
	}
}

func (s *Service) WithCache(c cache.BytesCache, ttl time.Duration) *Service {
	s.cache = c
	s.viewTTL = ttl
	return s
}

func (s *Service) WithProducer(p Producer, statusTopic string) *Service {
	s.producer = p
	s.statusTopic = statusTopic
	return s
}

func (s *Service) WithRateLimiter(rl RateLimiter, perMinute int64) *Service {
	s.rl = rl
	s.rateLimitPerMinute = perMinute
	return s
}

func (s *Service) WithPlanner(cfg PlannerConfig) *Service {
	s.planner = NewPlanner(cfg, nil)
	return s
}

type CheckpointView struct {
	Time     time.Time `json:"time"`
	Status   string    `json:"status,omitempty"`
	Details  string    `json:"details"`
	Location string    `json:"location,omitempty"`
}

type SyncResult struct {
	OrderID        string               `json:"orderId"`
	Status         models.OrderStatus   `json:"status"`
	PaymentStatus  models.PaymentStatus `json:"paymentStatus"`
	Shippable      bool                 `json:"shippable"`
	TrackingNumber string               `json:"trackingNumber,omitempty"`
	CourierName    string               `json:"courierName,omitempty"`
	ShortLink      string               `json:"shortLink,omitempty"`
	DetailedStatus string               `json:"detailedStatus,omitempty"`
	Checkpoints    []CheckpointView     `json:"checkpoints"`
	Warning        string               `json:"warning,omitempty"`
}

// Sync pulls fresh tracking data for one order, records it in the ledger and
// advances the order status if the data says it moved forward. Every external
// failure degrades; the only error a caller sees is an unknown or unreadable
// order.
func (s *Service) Sync(ctx context.Context, orderID string) (*SyncResult, error) {
	if orderID == "" {
		return nil, errors.New("orderId is required")
	}
	o, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	res := &SyncResult{
		OrderID:        o.ID,
		Status:         o.Status,
		PaymentStatus:  o.PaymentStatus,
		Shippable:      o.Shippable(),
		TrackingNumber: o.TrackingNumber,
		CourierName:    o.CourierName,
		Checkpoints:    []CheckpointView{},
	}
	if o.ShortLink != nil {
		res.ShortLink = *o.ShortLink
	}
	if o.DetailedTrackingStatus != nil {
		res.DetailedStatus = *o.DetailedTrackingStatus
	}

	// Nothing to sync until the seller ships: no ledger writes, no status
	// change, and not an error.
	if !o.Shippable() {
		res.Warning = "order has no tracking information yet"
		return res, nil
	}

	s.throttleProvider(ctx, o.CourierCode)

	now := time.Now().UTC()
	fres, ferr := s.fetchCheckpoints(ctx, o)

	if fres.ShortLink != "" && (o.ShortLink == nil || *o.ShortLink == "") {
		if err := s.repo.SetShortLink(ctx, o.ID, fres.ShortLink); err != nil {
			slog.Warn("persist short link", "order_id", o.ID, "error", err.Error())
		} else {
			res.ShortLink = fres.ShortLink
		}
	}
	if fres.CourierName != "" {
		res.CourierName = fres.CourierName
	}

	if ferr != nil {
		// Degrade to ledger-only display. The order status is left alone:
		// stale absence of data is not evidence of anything.
		slog.Warn("fetch checkpoints", "order_id", o.ID, "tracking_number", o.TrackingNumber, "error", ferr.Error())
		res.Warning = "live tracking is temporarily unavailable; showing stored history"
	} else {
		if _, err := s.repo.AppendCheckpoints(ctx, o.ID, o.TrackingNumber, fres.Checkpoints); err != nil {
			slog.Error("append checkpoints", "order_id", o.ID, "error", err.Error())
		}

		if len(fres.Checkpoints) > 0 {
			// Provider convention: element 0 is the most recent checkpoint.
			latest := fres.Checkpoints[0]
			res.DetailedStatus = latest.Details

			candidate := status.Classify(latest.Details)
			if status.IsAdvance(o.Status, candidate) {
				advanced, err := s.repo.AdvanceStatus(ctx, o.ID, candidate, latest.Details)
				if err != nil {
					slog.Error("advance status", "order_id", o.ID, "candidate", candidate, "error", err.Error())
				} else if advanced {
					s.publishStatusChanged(ctx, o, candidate, latest.Details)
					res.Status = candidate
				}
			}
		}
	}

	s.recordOutcome(ctx, o, res.Status, ferr, now)

	history, err := s.repo.ReadHistory(ctx, o.ID)
	if err != nil {
		slog.Error("read history", "order_id", o.ID, "error", err.Error())
		// Live data is all we have; better a partial timeline than none.
		for _, cp := range fres.Checkpoints {
			res.Checkpoints = append(res.Checkpoints, CheckpointView{
				Time:     cp.Time,
				Status:   cp.Status,
				Details:  cp.Details,
				Location: cp.Location,
			})
		}
	} else {
		for _, e := range history {
			res.Checkpoints = append(res.Checkpoints, CheckpointView{
				Time:     e.CheckpointTime,
				Status:   e.Status,
				Details:  e.Details,
				Location: e.Location,
			})
		}
	}

	if res.DetailedStatus == "" && len(res.Checkpoints) > 0 {
		res.DetailedStatus = res.Checkpoints[0].Details
	}

	s.storeView(ctx, res)
	return res, nil
}

// ApplySyncRequest handles one message from the sync-request topic. The
// webhook-simulation and scheduled paths both land here and funnel straight
// into Sync. An unknown order is logged and dropped rather than poisoning
// the consumer.
func (s *Service) ApplySyncRequest(ctx context.Context, msg messages.SyncRequested) error {
	if msg.OrderID == "" {
		return errors.New("order_id is required")
	}
	_, err := s.Sync(ctx, msg.OrderID)
	if errors.Is(err, pgorders.ErrOrderNotFound) {
		slog.Warn("sync request for unknown order", "order_id", msg.OrderID, "reason", msg.Reason)
		return nil
	}
	return err
}

// CurrentView returns the customer-facing tracking view, served from cache
// when fresh and recomputed through Sync otherwise.
func (s *Service) CurrentView(ctx context.Context, orderID string) (*SyncResult, error) {
	if s.cache != nil && s.viewTTL > 0 {
		if b, ok, err := s.cache.Get(ctx, viewKey(orderID)); err == nil && ok {
			var res SyncResult
			if json.Unmarshal(b, &res) == nil {
				return &res, nil
			}
		}
	}
	return s.Sync(ctx, orderID)
}

func (s *Service) ReadHistory(ctx context.Context, orderID string) ([]*models.TrackingHistoryEntry, error) {
	if orderID == "" {
		return nil, errors.New("orderId is required")
	}
	return s.repo.ReadHistory(ctx, orderID)
}

func (s *Service) CreateOrder(ctx context.Context, in models.OrderCreateInput) (*models.Order, error) {
	switch in.PaymentStatus {
	case "", models.PaymentStatusPending, models.PaymentStatusPaid, models.PaymentStatusRefunded:
	default:
		return nil, errors.Errorf("unknown payment status %q", in.PaymentStatus)
	}
	return s.repo.CreateOrder(ctx, in)
}

// AssignShipment stores the tracking identity and immediately runs a first
// sync, which registers the shipment with the provider and pulls whatever
// checkpoints already exist.
func (s *Service) AssignShipment(ctx context.Context, orderID, trackingNumber, courierCode, courierName string) (*SyncResult, error) {
	if orderID == "" {
		return nil, errors.New("orderId is required")
	}
	if trackingNumber == "" {
		return nil, errors.New("trackingNumber is required")
	}
	if courierCode == "" {
		return nil, errors.New("courierCode is required")
	}
	if err := s.repo.AssignShipment(ctx, orderID, trackingNumber, courierCode, courierName); err != nil {
		return nil, err
	}
	return s.Sync(ctx, orderID)
}

func (s *Service) CancelOrder(ctx context.Context, orderID string) (bool, error) {
	if orderID == "" {
		return false, errors.New("orderId is required")
	}
	o, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return false, err
	}
	cancelled, err := s.repo.CancelOrder(ctx, orderID)
	if err != nil {
		return false, err
	}
	if cancelled {
		if s.cache != nil {
			_ = s.cache.Delete(ctx, viewKey(orderID))
		}
		s.publishStatusChanged(ctx, o, models.OrderStatusCancelled, "")
	}
	return cancelled, nil
}

func (s *Service) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	if orderID == "" {
		return nil, errors.New("orderId is required")
	}
	return s.repo.GetOrder(ctx, orderID)
}

// throttleProvider keeps provider calls under the per-courier budget. Going
// over the budget slows the call down instead of failing it.
func (s *Service) throttleProvider(ctx context.Context, courierCode string) {
	if s.rl == nil || s.rateLimitPerMinute <= 0 {
		return
	}
	key := fmt.Sprintf("rl:provider:%s:%s", courierCode, time.Now().UTC().Format("200601021504"))
	allowed, n, err := s.rl.Allow(ctx, key, s.rateLimitPerMinute, 70*time.Second)
	if err != nil {
		slog.Warn("provider rate limiter", "error", err.Error())
		return
	}
	if !allowed {
		slog.Warn("provider rate limit exceeded", "courier", courierCode, "count", n)
		time.Sleep(500 * time.Millisecond)
	}
}

func (s *Service) recordOutcome(ctx context.Context, o *models.Order, finalStatus models.OrderStatus, ferr error, checkedAt time.Time) {
	var errText *string
	var next time.Time
	if ferr != nil {
		e := ferr.Error()
		errText = &e
		next = checkedAt.Add(s.planner.BackoffDelay(o.CheckFailCount + 1))
	} else {
		next = checkedAt.Add(s.planner.NextCheckDelay(finalStatus))
	}
	if err := s.repo.RecordSyncOutcome(ctx, o.ID, checkedAt, errText, next); err != nil {
		slog.Error("record sync outcome", "order_id", o.ID, "error", err.Error())
	}
}

func (s *Service) publishStatusChanged(ctx context.Context, o *models.Order, newStatus models.OrderStatus, detailed string) {
	if s.producer == nil || s.statusTopic == "" {
		return
	}
	msg := messages.OrderStatusChanged{
		OrderID:        o.ID,
		PreviousStatus: string(o.Status),
		Status:         string(newStatus),
		DetailedStatus: detailed,
		ChangedAt:      time.Now().UTC(),
	}
	b, err := json.Marshal(msg)
	if err != nil {
		return
	}
	if err := s.producer.Publish(ctx, s.statusTopic, []byte(o.ID), b); err != nil {
		slog.Warn("publish status change", "order_id", o.ID, "error", err.Error())
	}
}

func (s *Service) storeView(ctx context.Context, res *SyncResult) {
	if s.cache == nil || s.viewTTL <= 0 {
		return
	}
	b, err := json.Marshal(res)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, viewKey(res.OrderID), b, s.viewTTL); err != nil {
		slog.Warn("cache tracking view", "order_id", res.OrderID, "error", err.Error())
	}
}

func viewKey(orderID string) string {
	return fmt.Sprintf("order:%s:trackview", orderID)
}
