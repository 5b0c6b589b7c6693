package poller

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/unibazaar/shipsync/internal/broker/messages"
	"github.com/unibazaar/shipsync/internal/models"
)

type Repository interface {
	ClaimDueOrders(ctx context.Context, now time.Time, limit int, lease time.Duration) ([]*models.Order, error)
}

type Producer interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

// Poller periodically claims orders due for a tracking re-check and publishes
// a sync request for each. It never talks to the provider or the ledger
// itself; all effects happen on the consumer side, through the same engine
// entry point a manual refresh uses.
type Poller struct {
	repo     Repository
	producer Producer

	topic string

	pollInterval time.Duration
	batchSize    int
	concurrency  int
	lease        time.Duration

	triggerCh chan struct{}

	startedAtUnixNano   int64
	lastCycleUnixNano   atomic.Int64
	lastTriggerUnixNano atomic.Int64
	totalClaimed        atomic.Int64
	totalPublished      atomic.Int64
	totalErrors         atomic.Int64
	inFlight            atomic.Int64
	lastErrorMu         sync.Mutex
	lastError           string
}

func New(repo Repository, producer Producer, topic string) *Poller {
	return &Poller{
		repo:              repo,
		producer:          producer,
		topic:             topic,
		pollInterval:      15 * time.Second,
		batchSize:         100,
		concurrency:       10,
		lease:             120 * time.Second,
		triggerCh:         make(chan struct{}, 1),
		startedAtUnixNano: time.Now().UTC().UnixNano(),
	}
}

func (p *Poller) WithSettings(pollInterval time.Duration, batchSize, concurrency int, lease time.Duration) *Poller {
	if pollInterval > 0 {
		p.pollInterval = pollInterval
	}
	if batchSize > 0 {
		p.batchSize = batchSize
	}
	if concurrency > 0 {
		p.concurrency = concurrency
	}
	if lease > 0 {
		p.lease = lease
	}
	return p
}

// Trigger forces an immediate poll cycle (best-effort, non-blocking).
func (p *Poller) Trigger() {
	p.lastTriggerUnixNano.Store(time.Now().UTC().UnixNano())
	select {
	case p.triggerCh <- struct{}{}:
	default:
	}
}

type Stats struct {
	StartedAt      time.Time  `json:"startedAt"`
	LastCycleAt    *time.Time `json:"lastCycleAt,omitempty"`
	LastTriggerAt  *time.Time `json:"lastTriggerAt,omitempty"`
	TotalClaimed   int64      `json:"totalClaimed"`
	TotalPublished int64      `json:"totalPublished"`
	TotalErrors    int64      `json:"totalErrors"`
	InFlight       int64      `json:"inFlight"`
	LastError      string     `json:"lastError,omitempty"`
}

func (p *Poller) Stats() Stats {
	st := Stats{
		StartedAt:      time.Unix(0, p.startedAtUnixNano).UTC(),
		TotalClaimed:   p.totalClaimed.Load(),
		TotalPublished: p.totalPublished.Load(),
		TotalErrors:    p.totalErrors.Load(),
		InFlight:       p.inFlight.Load(),
	}
	if n := p.lastCycleUnixNano.Load(); n > 0 {
		t := time.Unix(0, n).UTC()
		st.LastCycleAt = &t
	}
	if n := p.lastTriggerUnixNano.Load(); n > 0 {
		t := time.Unix(0, n).UTC()
		st.LastTriggerAt = &t
	}
	p.lastErrorMu.Lock()
	st.LastError = p.lastError
	p.lastErrorMu.Unlock()
	return st
}

func (p *Poller) Run(ctx context.Context) error {
	t := time.NewTicker(p.pollInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			p.runOnce(ctx)
		case <-p.triggerCh:
			p.runOnce(ctx)
		}
	}
}

func (p *Poller) runOnce(ctx context.Context) {
	now := time.Now().UTC()
	p.lastCycleUnixNano.Store(now.UnixNano())

	orders, err := p.repo.ClaimDueOrders(ctx, now, p.batchSize, p.lease)
	if err != nil {
		slog.Error("claim due orders", "error", err.Error())
		p.noteError(err)
		return
	}
	p.totalClaimed.Add(int64(len(orders)))

	sem := make(chan struct{}, p.concurrency)
	var wg sync.WaitGroup
	for _, o := range orders {
		sem <- struct{}{}
		wg.Add(1)
		oCopy := o
		p.inFlight.Add(1)
		go func() {
			defer func() {
				p.inFlight.Add(-1)
				<-sem
				wg.Done()
			}()
			if err := p.publishOne(ctx, oCopy); err != nil {
				p.totalErrors.Add(1)
				p.noteError(err)
				slog.Error("publish sync request", "order_id", oCopy.ID, "error", err.Error())
				return
			}
			p.totalPublished.Add(1)
		}()
	}
	wg.Wait()
}

func (p *Poller) publishOne(ctx context.Context, o *models.Order) error {
	msg := messages.SyncRequested{
		OrderID:     o.ID,
		Reason:      messages.SyncReasonScheduled,
		RequestedAt: time.Now().UTC(),
	}
	b, err := json.Marshal(msg)
	if err != nil {
		return errors.Wrap(err, "marshal sync request")
	}

	// Kafka may not be ready right after startup; a short retry keeps the
	// claimed batch from being wasted.
	var pubErr error
	for i := 0; i < 10; i++ {
		if err := p.producer.Publish(ctx, p.topic, []byte(o.ID), b); err == nil {
			return nil
		} else {
			pubErr = err
			time.Sleep(time.Duration(150*(i+1)) * time.Millisecond)
		}
	}
	return pubErr
}

func (p *Poller) noteError(err error) {
	p.lastErrorMu.Lock()
	p.lastError = err.Error()
	p.lastErrorMu.Unlock()
}
