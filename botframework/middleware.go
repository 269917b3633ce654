// Copyright (c) Microsoft. All rights reserved.

package botframework

import "context"

// TurnHandler is the function signature for processing one turn.
type TurnHandler func(ctx context.Context, turn *TurnContext) error

// TurnMiddleware wraps a [TurnHandler] to add cross-cutting behavior.
// Middleware should call next to continue the chain, or return early to
// short-circuit the turn.
type TurnMiddleware func(next TurnHandler) TurnHandler

// chainTurnMiddleware applies middleware in order (first in list = outermost wrapper).
func chainTurnMiddleware(handler TurnHandler, mws ...TurnMiddleware) TurnHandler {
	for i := len(mws) - 1; i >= 0; i-- {
		handler = mws[i](handler)
	}
	return handler
}
