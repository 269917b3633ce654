// Copyright (c) Microsoft. All rights reserved.

package botframework

import (
	"context"
	"log/slog"
	"time"
)

// LoggingTurnMiddleware returns a [TurnMiddleware] that logs turns using slog.
func LoggingTurnMiddleware(logger *slog.Logger) TurnMiddleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next TurnHandler) TurnHandler {
		return func(ctx context.Context, turn *TurnContext) error {
			start := time.Now()
			activity := turn.Activity()
			logger.InfoContext(ctx, "turn started",
				"activity_type", activity.Type,
				"channel_id", activity.ChannelID,
				"delivery_mode", activity.DeliveryMode,
			)

			err := next(ctx, turn)

			duration := time.Since(start)
			if err != nil {
				logger.ErrorContext(ctx, "turn failed",
					"duration", duration,
					"activity_type", activity.Type,
					"error", err,
				)
				return err
			}

			logger.InfoContext(ctx, "turn completed",
				"duration", duration,
				"activity_type", activity.Type,
			)
			return nil
		}
	}
}
