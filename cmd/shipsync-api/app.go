package main

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	ordersapi "github.com/unibazaar/shipsync/internal/api/orders_api"
	"github.com/unibazaar/shipsync/internal/services/syncer"
)

type apiOpts struct {
	httpAddr      string
	topic         string
	consumerGroup string

	onListen func(httpAddr string)
}

type kafkaConsumer interface {
	Consume(ctx context.Context, handler func(key, value []byte) error) error
}

func runAPI(ctx context.Context, opts apiOpts, svc *syncer.Service, consumer kafkaConsumer) error {
	api := ordersapi.New(svc)

	lis, err := net.Listen("tcp", opts.httpAddr)
	if err != nil {
		return err
	}
	if opts.onListen != nil {
		opts.onListen(lis.Addr().String())
	}

	srv := &http.Server{Handler: api.Routes()}

	httpErr := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", lis.Addr().String())
		httpErr <- srv.Serve(lis)
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		_ = lis.Close()
	}()

	consumerErr := make(chan error, 1)
	go func() {
		slog.Info("kafka consumer started", "topic", opts.topic, "group", opts.consumerGroup)
		consumerErr <- consumer.Consume(ctx, func(_key, value []byte) error {
			msg, err := ordersapi.DecodeSyncRequest(value)
			if err != nil {
				// Malformed messages are dropped, not retried forever.
				slog.Error("decode sync request", "error", err.Error())
				return nil
			}
			return svc.ApplySyncRequest(ctx, msg)
		})
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-httpErr:
		return err
	case err := <-consumerErr:
		return err
	}
}
