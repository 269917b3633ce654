// Copyright (c) Microsoft. All rights reserved.

package botframework

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// ReplySender delivers an outbound activity to the channel service. The
// connector package provides the production implementation; tests inject
// fakes.
type ReplySender interface {
	// Send delivers the activity and returns the ID assigned by the channel.
	Send(ctx context.Context, activity *Activity) (string, error)
}

// TurnContext carries the state of one turn: the inbound activity, the
// caller's identity, and the replies produced so far. Bot logic uses it to
// send activities back into the conversation.
//
// For activities delivered with [DeliveryModeExpectReplies], sends are
// buffered and returned inline in the HTTP response instead of going through
// the channel service.
type TurnContext struct {
	activity *Activity
	identity *ClaimsIdentity
	sender   ReplySender
	logger   *slog.Logger

	mu             sync.Mutex
	buffered       []*Activity
	invokeResponse *InvokeResponse
}

func newTurnContext(logger *slog.Logger, identity *ClaimsIdentity, activity *Activity, sender ReplySender) *TurnContext {
	return &TurnContext{
		activity: activity,
		identity: identity,
		sender:   sender,
		logger:   logger,
	}
}

// Activity returns the inbound activity for this turn.
func (tc *TurnContext) Activity() *Activity { return tc.activity }

// Identity returns the authenticated principal for this turn.
func (tc *TurnContext) Identity() *ClaimsIdentity { return tc.identity }

// Logger returns the turn's logger.
func (tc *TurnContext) Logger() *slog.Logger { return tc.logger }

// SendActivity sends an activity back into the conversation. The activity is
// addressed from the inbound activity's conversation reference. It returns
// the ID assigned to the sent activity.
func (tc *TurnContext) SendActivity(ctx context.Context, activity *Activity) (string, error) {
	if activity == nil {
		return "", fmt.Errorf("%w: nil activity", ErrInvalidArgument)
	}
	activity.ApplyConversationReference(tc.activity.GetConversationReference(), false)

	if tc.activity.ExpectsReplies() {
		if activity.ID == "" {
			activity.ID = newUUID()
		}
		tc.mu.Lock()
		tc.buffered = append(tc.buffered, activity)
		tc.mu.Unlock()
		return activity.ID, nil
	}

	if tc.sender == nil {
		return "", fmt.Errorf("%w: no reply sender configured", ErrAdapter)
	}
	return tc.sender.Send(ctx, activity)
}

// SendText sends a plain message activity back into the conversation.
func (tc *TurnContext) SendText(ctx context.Context, text string) (string, error) {
	return tc.SendActivity(ctx, tc.activity.CreateReply(text))
}

// SendTrace sends a trace activity carrying diagnostic value. Channels other
// than the emulator typically discard traces.
func (tc *TurnContext) SendTrace(ctx context.Context, name, label, valueType string, value any) (string, error) {
	return tc.SendActivity(ctx, tc.activity.CreateTrace(name, label, valueType, value))
}

// SetInvokeResponse records the response payload for an invoke activity. The
// adapter writes it to the HTTP response once the turn completes.
func (tc *TurnContext) SetInvokeResponse(ir *InvokeResponse) {
	tc.mu.Lock()
	tc.invokeResponse = ir
	tc.mu.Unlock()
}

func (tc *TurnContext) takeInvokeResponse() *InvokeResponse {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	return tc.invokeResponse
}

func (tc *TurnContext) bufferedReplies() []*Activity {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	replies := make([]*Activity, len(tc.buffered))
	copy(replies, tc.buffered)
	return replies
}
