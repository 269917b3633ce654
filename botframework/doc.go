// Copyright (c) Microsoft. All rights reserved.

// Package botframework provides the activity dispatch core of the Bot
// Framework SDK for Go: HTTP ingestion of conversational activities,
// synchronous and asynchronous turn processing, and graceful background
// hosting.
//
// # Quick Start
//
// Implement a [Bot] and serve it through a [CloudAdapter]:
//
//	bot := &botframework.ActivityHandler{
//	    OnMessage: func(ctx context.Context, turn *botframework.TurnContext) error {
//	        _, err := turn.SendText(ctx, "Echo: "+turn.Activity().Text)
//	        return err
//	    },
//	}
//
//	adapter := botframework.NewCloudAdapter(
//	    botframework.WithReplySender(connectorClient),
//	)
//
//	http.HandleFunc("/api/messages", func(w http.ResponseWriter, r *http.Request) {
//	    _ = adapter.ProcessHTTP(w, r, bot)
//	})
//
// # Background dispatch
//
// [AsyncCloudAdapter] answers most activities with an immediate 200 and
// defers the bot turn to a [HostedActivityService] draining a shared
// [ActivityQueue]. Invoke activities and expectReplies delivery stay
// synchronous, because their reply payload must travel back in the same HTTP
// response:
//
//	queue := botframework.NewActivityQueue()
//	adapter := botframework.NewAsyncCloudAdapter(queue,
//	    botframework.WithReplySender(connectorClient),
//	)
//	service := botframework.NewHostedActivityService(queue, adapter, bot)
//	_ = service.Start(ctx)
//	defer service.Stop(context.Background())
//
// The background path is fire-and-forget: processing failures are logged,
// never reported to the HTTP caller, and activities arriving once shutdown
// has begun are dropped. Bots must not assume ordering between background
// turns, even within one conversation.
//
// # Architecture
//
//   - [Activity]: the wire-level unit of conversational exchange.
//   - [ClaimsIdentity]: the authenticated principal, produced by an external
//     authentication layer.
//   - [TurnContext]: per-turn state and the reply-sending surface.
//   - [CloudAdapter] / [AsyncCloudAdapter]: the turn-level error boundary and
//     the sync/async classification split.
//   - [ActivityQueue] / [BackgroundQueue]: unbounded FIFO hand-off between
//     ingestion and hosting.
//   - [HostedActivityService] / [HostedTaskService]: long-running workers
//     with a one-way shutdown fence and bounded in-flight draining.
//
// Token acquisition and reply delivery live in the connector package.
package botframework
