// Copyright (c) Microsoft. All rights reserved.

// Command echo demonstrates a minimal bot served through the synchronous
// CloudAdapter: every inbound message is echoed back to the user, and
// invoke activities are answered inline.
//
// Usage against the Bot Framework Emulator (no credentials):
//
//	go run .
//
// Usage against a registered Azure bot:
//
//	export BOT_TENANT_ID=<tenant>
//	export BOT_APP_ID=<app id>
//	export BOT_APP_SECRET=<client secret>
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
	"time"

	"github.com/joho/godotenv"
	bf "github.com/microsoft/botframework-go/botframework"
	"github.com/microsoft/botframework-go/connector"
)

func main() {
	// Load .env file if present (ignored if missing).
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel(),
	}))
	slog.SetDefault(logger)

	bot := &bf.ActivityHandler{
		OnMessage: func(ctx context.Context, turn *bf.TurnContext) error {
			_, err := turn.SendText(ctx, "Echo: "+turn.Activity().Text)
			return err
		},
		OnConversationUpdate: func(ctx context.Context, turn *bf.TurnContext) error {
			bot := turn.Activity().Recipient
			for _, member := range turn.Activity().MembersAdded {
				if bot != nil && member.ID == bot.ID {
					continue
				}
				if _, err := turn.SendText(ctx, "Hello! Say anything and I'll echo it back."); err != nil {
					return err
				}
			}
			return nil
		},
		OnInvoke: func(ctx context.Context, turn *bf.TurnContext) (*bf.InvokeResponse, error) {
			return &bf.InvokeResponse{
				Status: http.StatusOK,
				Body:   map[string]string{"echo": turn.Activity().Name},
			}, nil
		},
	}

	adapter := bf.NewCloudAdapter(
		bf.WithLogger(logger),
		bf.WithReplySender(newReplySender(logger)),
		bf.WithTurnMiddleware(bf.LoggingTurnMiddleware(logger)),
	)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/messages", func(w http.ResponseWriter, r *http.Request) {
		if err := adapter.ProcessHTTP(w, r, bot); err != nil {
			logger.Error("process request", "error", err)
		}
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "3978"
	}
	server := &http.Server{Addr: ":" + port, Handler: mux}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("echo bot listening", "addr", fmt.Sprintf("http://localhost:%s/api/messages", port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", "error", err)
	}
}

// newReplySender creates a connector client, authenticated when app
// credentials are configured and anonymous otherwise (emulator mode).
func newReplySender(logger *slog.Logger) bf.ReplySender {
	tenantID := os.Getenv("BOT_TENANT_ID")
	appID := os.Getenv("BOT_APP_ID")
	secret := os.Getenv("BOT_APP_SECRET")

	if appID == "" || secret == "" {
		logger.Warn("no app credentials configured, replies go out unauthenticated")
		return connector.New(connector.WithLogger(logger))
	}
	if tenantID == "" {
		tenantID = connector.BotFrameworkTenant
	}

	cred, err := connector.NewClientSecretCredential(tenantID, appID, secret)
	if err != nil {
		log.Fatalf("create credential: %v", err)
	}
	return connector.New(
		connector.WithCredential(cred),
		connector.WithLogger(logger),
	)
}

func logLevel() slog.Level {
	if os.Getenv("DEBUG") != "" {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}
