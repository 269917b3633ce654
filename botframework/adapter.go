// Copyright (c) Microsoft. All rights reserved.

package botframework

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
)

// OnTurnErrorHandler handles an uncaught error from bot logic. It runs inside
// the turn-error boundary: whatever it does, the error never reaches the HTTP
// caller as a 500.
type OnTurnErrorHandler func(ctx context.Context, turn *TurnContext, err error)

// CloudAdapter is the synchronous activity-protocol adapter. It accepts an
// inbound HTTP request, builds a turn context, invokes the bot, and writes
// the [InvokeResponse] when the activity demands a synchronous reply payload.
//
// Create one with [NewCloudAdapter] and functional options:
//
//	adapter := botframework.NewCloudAdapter(
//	    botframework.WithReplySender(connectorClient),
//	    botframework.WithLogger(logger),
//	)
type CloudAdapter struct {
	logger      *slog.Logger
	sender      ReplySender
	onTurnError OnTurnErrorHandler
	middleware  []TurnMiddleware
	streaming   http.Handler
	validator   ClaimsValidator
	metrics     *Metrics
}

// AdapterOption configures a [CloudAdapter] or [AsyncCloudAdapter].
type AdapterOption func(*CloudAdapter)

// WithLogger sets the adapter's logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) AdapterOption {
	return func(a *CloudAdapter) { a.logger = logger }
}

// WithReplySender sets the channel service client used to deliver bot
// replies out-of-band.
func WithReplySender(sender ReplySender) AdapterOption {
	return func(a *CloudAdapter) { a.sender = sender }
}

// WithOnTurnError replaces the default turn-error handler.
func WithOnTurnError(handler OnTurnErrorHandler) AdapterOption {
	return func(a *CloudAdapter) { a.onTurnError = handler }
}

// WithTurnMiddleware adds [TurnMiddleware] to the turn pipeline.
func WithTurnMiddleware(mws ...TurnMiddleware) AdapterOption {
	return func(a *CloudAdapter) { a.middleware = append(a.middleware, mws...) }
}

// WithStreamingHandler sets the handler for GET transport-upgrade requests.
// Without one, GET answers 426 Upgrade Required.
func WithStreamingHandler(h http.Handler) AdapterOption {
	return func(a *CloudAdapter) { a.streaming = h }
}

// WithClaimsValidator sets a validator run against the caller's identity
// before any turn is accepted. Rejection surfaces as HTTP 401.
func WithClaimsValidator(v ClaimsValidator) AdapterOption {
	return func(a *CloudAdapter) { a.validator = v }
}

// WithMetrics attaches Prometheus instrumentation.
func WithMetrics(m *Metrics) AdapterOption {
	return func(a *CloudAdapter) { a.metrics = m }
}

// NewCloudAdapter creates a [CloudAdapter] with the given options.
func NewCloudAdapter(opts ...AdapterOption) *CloudAdapter {
	a := &CloudAdapter{logger: slog.Default()}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	if a.onTurnError == nil {
		a.onTurnError = a.defaultOnTurnError
	}
	return a
}

// ProcessHTTP handles one inbound request from the channel service. POST
// delivers an activity; GET is a transport-upgrade request; anything else
// answers 405. The error return covers nil arguments only — activity and
// turn failures are resolved into HTTP statuses or the turn-error boundary.
func (a *CloudAdapter) ProcessHTTP(w http.ResponseWriter, r *http.Request, bot Bot) error {
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

	activity, err := ParseActivity(r.Body)
	if err != nil {
		a.logger.WarnContext(r.Context(), "rejected malformed activity", "error", err)
		w.WriteHeader(http.StatusBadRequest)
		return nil
	}

	identity := ClaimsIdentityFromContext(r.Context())
	return a.serveActivity(w, r, bot, identity, activity)
}

// serveActivity runs the turn and writes the synchronous response. Shared by
// the base POST path and the async adapter's synchronous branch.
func (a *CloudAdapter) serveActivity(w http.ResponseWriter, r *http.Request, bot Bot, identity *ClaimsIdentity, activity *Activity) error {
	ir, err := a.ProcessActivity(r.Context(), identity, activity, bot.OnTurn)
	if err != nil {
		if errors.Is(err, ErrUnauthorized) {
			w.WriteHeader(http.StatusUnauthorized)
			return nil
		}
		return err
	}
	if err := writeInvokeResponse(w, ir); err != nil {
		a.logger.WarnContext(r.Context(), "failed to write invoke response", "error", err)
	}
	return nil
}

func (a *CloudAdapter) serveStreaming(w http.ResponseWriter, r *http.Request) {
	if a.streaming != nil {
		a.streaming.ServeHTTP(w, r)
		return
	}
	// GET is reserved for transport upgrade and no upgrade is available.
	a.logger.DebugContext(r.Context(), "streaming request received but no streaming handler configured")
	w.WriteHeader(http.StatusUpgradeRequired)
}

// ProcessActivity constructs a turn context, runs handler inside the
// turn-error boundary, and returns the [InvokeResponse] for the synchronous
// path. The response is non-nil only for invoke activities, expectReplies
// delivery, or error short-circuits on the invoke path.
//
// Apart from [ErrUnauthorized] and nil arguments, no error escapes: bot
// failures are consumed by the OnTurnError handler.
func (a *CloudAdapter) ProcessActivity(ctx context.Context, identity *ClaimsIdentity, activity *Activity, handler TurnHandler) (*InvokeResponse, error) {
	if identity == nil {
		return nil, fmt.Errorf("%w: nil claims identity", ErrInvalidArgument)
	}
	if activity == nil {
		return nil, fmt.Errorf("%w: nil activity", ErrInvalidArgument)
	}
	if handler == nil {
		return nil, fmt.Errorf("%w: nil turn handler", ErrInvalidArgument)
	}
	if a.validator != nil {
		if err := a.validator(ctx, identity); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
		}
	}

	turn := newTurnContext(a.logger, identity, activity, a.sender)
	wrapped := chainTurnMiddleware(handler, a.middleware...)

	if err := runTurn(ctx, turn, wrapped); err != nil {
		a.metrics.turnError()
		a.invokeOnTurnError(ctx, turn, err)
		if activity.IsInvoke() {
			return &InvokeResponse{Status: http.StatusInternalServerError}, nil
		}
		return nil, nil
	}

	if activity.ExpectsReplies() {
		return &InvokeResponse{
			Status: http.StatusOK,
			Body:   &ExpectedReplies{Activities: turn.bufferedReplies()},
		}, nil
	}
	if activity.IsInvoke() {
		if ir := turn.takeInvokeResponse(); ir != nil {
			return ir, nil
		}
		return &InvokeResponse{Status: http.StatusNotImplemented}, nil
	}
	return nil, nil
}

// runTurn executes the turn handler, translating panics and errors into a
// single tagged error consumed only by the turn-error boundary.
func runTurn(ctx context.Context, turn *TurnContext, handler TurnHandler) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", ErrTurn, r)
		}
	}()
	if err := handler(ctx, turn); err != nil {
		return fmt.Errorf("%w: %w", ErrTurn, err)
	}
	return nil
}

// invokeOnTurnError runs the configured turn-error handler. The handler
// itself must not take the process down, so panics are absorbed here.
func (a *CloudAdapter) invokeOnTurnError(ctx context.Context, turn *TurnContext, turnErr error) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.ErrorContext(ctx, "turn-error handler panicked", "panic", r)
		}
	}()
	a.onTurnError(ctx, turn, turnErr)
}

// defaultOnTurnError logs the failure and makes a best-effort attempt to
// notify the conversation: a user-facing error message plus a diagnostic
// trace. Failures of either send are logged and swallowed.
func (a *CloudAdapter) defaultOnTurnError(ctx context.Context, turn *TurnContext, err error) {
	a.logger.ErrorContext(ctx, "unhandled error during turn",
		"error", err,
		"activity_type", turn.Activity().Type,
		"conversation_id", conversationID(turn.Activity()),
	)
	if _, sendErr := turn.SendText(ctx, "The bot encountered an error or bug."); sendErr != nil {
		a.logger.WarnContext(ctx, "failed to send error message to conversation", "error", sendErr)
	}
	if _, sendErr := turn.SendTrace(ctx, "OnTurnError", "TurnError",
		"https://www.botframework.com/schemas/error", err.Error()); sendErr != nil {
		a.logger.WarnContext(ctx, "failed to send error trace to conversation", "error", sendErr)
	}
}

func conversationID(a *Activity) string {
	if a.Conversation == nil {
		return ""
	}
	return a.Conversation.ID
}
