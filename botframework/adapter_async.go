// Copyright (c) Microsoft. All rights reserved.

package botframework

import (
	"fmt"
	"net/http"
)

// AsyncCloudAdapter decorates [CloudAdapter] with background dispatch. Each
// POST activity is classified: invoke activities and expectReplies delivery
// must produce their reply payload inside the request's lifetime and are
// processed synchronously through the base adapter; everything else is
// enqueued onto an [ActivityQueue] and answered 200 immediately, with the
// actual bot turn running later inside [HostedActivityService].
//
// The asynchronous branch is fire-and-forget from the transport's
// perspective: the HTTP caller gets no correlation to the later processing,
// and its failures are only logged.
type AsyncCloudAdapter struct {
	*CloudAdapter
	queue *ActivityQueue
}

// NewAsyncCloudAdapter creates an [AsyncCloudAdapter] over the given queue.
// The same queue instance must be handed to the [HostedActivityService] that
// drains it.
func NewAsyncCloudAdapter(queue *ActivityQueue, opts ...AdapterOption) *AsyncCloudAdapter {
	return &AsyncCloudAdapter{
		CloudAdapter: NewCloudAdapter(opts...),
		queue:        queue,
	}
}

// ProcessHTTP classifies and dispatches one inbound request. GET delegates to
// the base adapter's transport-upgrade path unchanged.
func (a *AsyncCloudAdapter) ProcessHTTP(w http.ResponseWriter, r *http.Request, bot Bot) error {
	if w == nil || r == nil || bot == nil {
		return fmt.Errorf("%w: nil request, response, or bot", ErrInvalidArgument)
	}
	switch r.Method {
	case http.MethodGet:
		a.serveStreaming(w, r)
		return nil
	case http.MethodPost:
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
		return nil
	}

	// Classification needs Type and DeliveryMode, so deserialize eagerly.
	activity, err := ParseActivity(r.Body)
	if err != nil {
		a.logger.WarnContext(r.Context(), "rejected malformed activity", "error", err)
		w.WriteHeader(http.StatusBadRequest)
		return nil
	}

	identity := ClaimsIdentityFromContext(r.Context())

	if activity.IsInvoke() || activity.ExpectsReplies() {
		return a.serveActivity(w, r, bot, identity, activity)
	}

	if a.validator != nil {
		if err := a.validator(r.Context(), identity); err != nil {
			a.logger.WarnContext(r.Context(), "rejected activity with invalid claims", "error", err)
			w.WriteHeader(http.StatusUnauthorized)
			return nil
		}
	}

	if err := a.queue.Enqueue(identity, activity); err != nil {
		return err
	}
	a.metrics.observeQueueDepth(a.queue.Len())
	a.logger.DebugContext(r.Context(), "activity queued for background processing",
		"activity_type", activity.Type,
		"conversation_id", conversationID(activity),
	)
	w.WriteHeader(http.StatusOK)
	return nil
}
