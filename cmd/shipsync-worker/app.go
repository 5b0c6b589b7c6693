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
	"github.com/unibazaar/shipsync/internal/services/poller"
	"github.com/unibazaar/shipsync/internal/storage/pgorders"
)

type workerFactories struct {
	newStorage  func(cfg *config.Config) (repo poller.Repository, closeFn func(), err error)
	newProducer func(cfg *config.Config) poller.Producer
}

func defaultWorkerFactories() workerFactories {
	return workerFactories{
		newStorage: func(cfg *config.Config) (poller.Repository, func(), error) {
			sslMode := cfg.Database.SSLMode
			if sslMode == "" {
				sslMode = "disable"
			}
			connString := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
				cfg.Database.Username, cfg.Database.Password, cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName, sslMode)
			st, err := pgorders.New(connString)
			if err != nil {
				return nil, nil, err
			}
			return st, st.Close, nil
		},
		newProducer: func(cfg *config.Config) poller.Producer {
			brokers := []string{fmt.Sprintf("%s:%d", cfg.Kafka.Host, cfg.Kafka.Port)}
			return kafka.NewProducer(brokers)
		},
	}
}

func run() error {
	cfgPath := os.Getenv("configPath")
	if cfgPath == "" {
		panic("configPath env var is required")
	}
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	return runWorker(ctx, cfg, defaultWorkerFactories())
}

func runWorker(ctx context.Context, cfg *config.Config, f workerFactories) error {
	repo, closeFn, err := f.newStorage(cfg)
	if err != nil {
		return err
	}
	if closeFn != nil {
		defer closeFn()
	}

	topic := cfg.Kafka.SyncRequestedTopicName
	if topic == "" {
		topic = "order.sync.requested"
	}

	p := poller.New(repo, f.newProducer(cfg), topic).
		WithSettings(
			time.Duration(cfg.ShipSync.WorkerPollIntervalSeconds)*time.Second,
			cfg.ShipSync.WorkerBatchSize,
			cfg.ShipSync.WorkerConcurrency,
			time.Duration(cfg.ShipSync.WorkerLeaseSeconds)*time.Second,
		)

	httpErr := make(chan error, 1)
	go func() {
		httpErr <- runWorkerHTTPServer(ctx, workerHTTPOpts{
			httpAddr: cfg.ShipSync.WorkerHTTPAddr,
			poller:   p,
			cfg:      cfg,
		})
	}()

	pollErr := make(chan error, 1)
	go func() {
		pollErr <- p.Run(ctx)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-httpErr:
		return err
	case err := <-pollErr:
		return err
	}
}
