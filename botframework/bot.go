// Copyright (c) Microsoft. All rights reserved.

package botframework

import (
	"context"
	"net/http"
)

// Bot is the application's turn handler: it processes one inbound activity
// and produces zero or more replies through the [TurnContext]. The dispatch
// core treats it as opaque.
type Bot interface {
	OnTurn(ctx context.Context, turn *TurnContext) error
}

// BotFunc adapts a plain function to the [Bot] interface.
type BotFunc func(ctx context.Context, turn *TurnContext) error

// OnTurn calls f.
func (f BotFunc) OnTurn(ctx context.Context, turn *TurnContext) error {
	return f(ctx, turn)
}

// ActivityHandler is a convenience [Bot] that routes turns by activity type.
// Set the handler fields for the types the bot cares about; unhandled types
// are ignored, except invoke activities which answer 501 when no handler is
// set.
type ActivityHandler struct {
	// OnMessage handles message activities.
	OnMessage func(ctx context.Context, turn *TurnContext) error

	// OnInvoke handles invoke activities and returns the response payload
	// threaded back through the HTTP response.
	OnInvoke func(ctx context.Context, turn *TurnContext) (*InvokeResponse, error)

	// OnEvent handles event activities.
	OnEvent func(ctx context.Context, turn *TurnContext) error

	// OnConversationUpdate handles membership changes.
	OnConversationUpdate func(ctx context.Context, turn *TurnContext) error

	// OnUnrecognized handles any activity type without a dedicated handler.
	OnUnrecognized func(ctx context.Context, turn *TurnContext) error
}

// OnTurn implements [Bot].
func (h *ActivityHandler) OnTurn(ctx context.Context, turn *TurnContext) error {
	switch turn.Activity().Type {
	case ActivityTypeMessage:
		if h.OnMessage != nil {
			return h.OnMessage(ctx, turn)
		}
	case ActivityTypeInvoke:
		if h.OnInvoke == nil {
			turn.SetInvokeResponse(&InvokeResponse{Status: http.StatusNotImplemented})
			return nil
		}
		ir, err := h.OnInvoke(ctx, turn)
		if err != nil {
			return err
		}
		turn.SetInvokeResponse(ir)
	case ActivityTypeEvent:
		if h.OnEvent != nil {
			return h.OnEvent(ctx, turn)
		}
	case ActivityTypeConversationUpdate:
		if h.OnConversationUpdate != nil {
			return h.OnConversationUpdate(ctx, turn)
		}
	default:
		if h.OnUnrecognized != nil {
			return h.OnUnrecognized(ctx, turn)
		}
	}
	return nil
}
