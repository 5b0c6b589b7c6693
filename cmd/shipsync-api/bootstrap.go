package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/unibazaar/shipsync/config"
	"github.com/unibazaar/shipsync/internal/broker/kafka"
	"github.com/unibazaar/shipsync/internal/cache/rediscache"
	"github.com/unibazaar/shipsync/internal/integrations/provider"
	"github.com/unibazaar/shipsync/internal/integrations/provider/fake"
	"github.com/unibazaar/shipsync/internal/integrations/provider/trackhubhttp"
	"github.com/unibazaar/shipsync/internal/services/syncer"
	"github.com/unibazaar/shipsync/internal/storage/pgorders"
)

type apiApp struct {
	ctx      context.Context
	cancel   context.CancelFunc
	opts     apiOpts
	svc      *syncer.Service
	consumer *kafka.Consumer
	closeDB  func()
}

func mustBootstrapAPI() *apiApp {
	cfgPath := os.Getenv("configPath")
	if cfgPath == "" {
		panic("configPath env var is required")
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	httpAddr := cfg.ShipSync.HTTPAddr
	if httpAddr == "" {
		httpAddr = ":8080"
	}
	consumerGroup := cfg.ShipSync.KafkaConsumerGroup
	if consumerGroup == "" {
		consumerGroup = "shipsync-api"
	}
	syncTopic := cfg.Kafka.SyncRequestedTopicName
	if syncTopic == "" {
		syncTopic = "order.sync.requested"
	}
	statusTopic := cfg.Kafka.StatusChangedTopicName
	if statusTopic == "" {
		statusTopic = "order.status.changed"
	}
	viewTTL := time.Duration(cfg.ShipSync.CurrentViewTTLSeconds) * time.Second
	if viewTTL <= 0 {
		viewTTL = 5 * time.Minute
	}

	st := mustOpenPostgresWithRetry(connString(cfg), 60*time.Second)

	redisAddr := fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)
	rc := rediscache.New(redisAddr)
	rl := rediscache.NewRateLimiter(redisAddr)

	brokers := []string{fmt.Sprintf("%s:%d", cfg.Kafka.Host, cfg.Kafka.Port)}
	producer := kafka.NewProducer(brokers)
	consumer := kafka.NewConsumer(brokers, syncTopic, consumerGroup)

	rlPerMinute := int64(cfg.ShipSync.ProviderRateLimitPerMinute)
	if rlPerMinute <= 0 {
		rlPerMinute = 120
	}

	svc := syncer.New(st, newProviderClient(cfg)).
		WithCache(rc, viewTTL).
		WithProducer(producer, statusTopic).
		WithRateLimiter(rl, rlPerMinute).
		WithPlanner(plannerConfig(cfg))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	return &apiApp{
		ctx:    ctx,
		cancel: cancel,
		opts: apiOpts{
			httpAddr:      httpAddr,
			topic:         syncTopic,
			consumerGroup: consumerGroup,
		},
		svc:      svc,
		consumer: consumer,
		closeDB:  st.Close,
	}
}

func newProviderClient(cfg *config.Config) provider.Client {
	// Without a configured provider we run on the deterministic fake, so dev
	// environments work with no external dependency.
	if cfg.ShipSync.ProviderMode == "fake" || cfg.ShipSync.ProviderBaseURL == "" {
		return fake.New()
	}
	return trackhubhttp.New(cfg.ShipSync.ProviderBaseURL, cfg.ShipSync.ProviderAPIKey)
}

func plannerConfig(cfg *config.Config) syncer.PlannerConfig {
	sec := func(n int) time.Duration { return time.Duration(n) * time.Second }
	return syncer.PlannerConfig{
		ShippedMinDelay: sec(cfg.ShipSync.NextCheckShippedMinSeconds),
		ShippedMaxDelay: sec(cfg.ShipSync.NextCheckShippedMaxSeconds),
		DefaultDelay:    sec(cfg.ShipSync.NextCheckDefaultSeconds),
		Backoff1:        sec(cfg.ShipSync.Backoff1Seconds),
		Backoff2:        sec(cfg.ShipSync.Backoff2Seconds),
		Backoff3:        sec(cfg.ShipSync.Backoff3Seconds),
		Backoff4:        sec(cfg.ShipSync.Backoff4Seconds),
	}
}

func connString(cfg *config.Config) string {
	sslMode := cfg.Database.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.Database.Username, cfg.Database.Password, cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName, sslMode)
}

func mustOpenPostgresWithRetry(connString string, wait time.Duration) *pgorders.Storage {
	deadline := time.Now().Add(wait)
	var lastErr error
	for time.Now().Before(deadline) {
		st, err := pgorders.New(connString)
		if err == nil {
			return st
		}
		lastErr = err
		time.Sleep(1 * time.Second)
	}
	panic(fmt.Sprintf("postgres is not ready after %s: %v", wait, lastErr))
}

func (a *apiApp) Close() {
	if a.cancel != nil {
		a.cancel()
	}
	if a.consumer != nil {
		_ = a.consumer.Close()
	}
	if a.closeDB != nil {
		a.closeDB()
	}
}

func (a *apiApp) Run() error {
	return runAPI(a.ctx, a.opts, a.svc, a.consumer)
}
