// Copyright (c) Microsoft. All rights reserved.

// Command worker demonstrates background dispatch: the HTTP endpoint accepts
// activities with the AsyncCloudAdapter and answers immediately, while a
// hosted service drains the queue and runs bot turns on worker goroutines.
// A second hosted service runs ad-hoc background tasks the bot schedules.
//
// Prometheus metrics are exposed on /metrics.
//
// Usage:
//
//	export BOT_SHUTDOWN_TIMEOUT_SECONDS=30   # optional, defaults to 60
//	go run .
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	bf "github.com/microsoft/botframework-go/botframework"
	"github.com/microsoft/botframework-go/connector"
)

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	metrics := bf.NewMetrics(prometheus.DefaultRegisterer)
	shutdownTimeout := bf.ShutdownTimeoutFromEnv()

	activityQueue := bf.NewActivityQueue()
	taskQueue := bf.NewBackgroundQueue()

	// The bot echoes messages and schedules a background task per turn to
	// show the second queue in action.
	bot := &bf.ActivityHandler{
		OnMessage: func(ctx context.Context, turn *bf.TurnContext) error {
			text := turn.Activity().Text
			if err := taskQueue.Enqueue(func(ctx context.Context) error {
				logger.Info("background task ran", "text", text)
				return nil
			}); err != nil {
				return err
			}
			_, err := turn.SendText(ctx, "Working on: "+text)
			return err
		},
	}

	sender := connector.New(connector.WithLogger(logger))
	adapter := bf.NewAsyncCloudAdapter(activityQueue,
		bf.WithLogger(logger),
		bf.WithReplySender(sender),
		bf.WithMetrics(metrics),
		bf.WithTurnMiddleware(bf.LoggingTurnMiddleware(logger)),
	)

	activitySvc := bf.NewHostedActivityService(activityQueue, adapter, bot,
		bf.WithHostingLogger(logger),
		bf.WithHostingMetrics(metrics),
		bf.WithShutdownTimeout(shutdownTimeout),
	)
	taskSvc := bf.NewHostedTaskService(taskQueue,
		bf.WithHostingLogger(logger),
		bf.WithHostingMetrics(metrics),
		bf.WithShutdownTimeout(shutdownTimeout),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := activitySvc.Start(ctx); err != nil {
		log.Fatalf("start activity service: %v", err)
	}
	if err := taskSvc.Start(ctx); err != nil {
		log.Fatalf("start task service: %v", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/messages", func(w http.ResponseWriter, r *http.Request) {
		if err := adapter.ProcessHTTP(w, r, bot); err != nil {
			logger.Error("process request", "error", err)
		}
	})
	mux.Handle("/metrics", promhttp.Handler())

	port := os.Getenv("PORT")
	if port == "" {
		port = "3978"
	}
	server := &http.Server{Addr: ":" + port, Handler: mux}

	go func() {
		logger.Info("worker bot listening", "addr", fmt.Sprintf("http://localhost:%s/api/messages", port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down", "timeout", shutdownTimeout)

	// Stop accepting HTTP traffic first, then drain the workers.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", "error", err)
	}
	if err := activitySvc.Stop(shutdownCtx); err != nil {
		logger.Error("activity service shutdown", "error", err)
	}
	if err := taskSvc.Stop(shutdownCtx); err != nil {
		logger.Error("task service shutdown", "error", err)
	}
	logger.Info("bye")
}
