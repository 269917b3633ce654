// Copyright (c) Microsoft. All rights reserved.

package botframework

import (
	"errors"
	"fmt"
)

// Sentinel errors for use with errors.Is.
var (
	// ErrAdapter is the base error for adapter-level failures.
	ErrAdapter = errors.New("adapter error")

	// ErrInvalidArgument indicates a nil or empty required argument.
	ErrInvalidArgument = fmt.Errorf("%w: invalid argument", ErrAdapter)

	// ErrInvalidActivity indicates the request body was missing, unparseable,
	// or had no discernible activity type.
	ErrInvalidActivity = fmt.Errorf("%w: invalid activity", ErrAdapter)

	// ErrUnauthorized indicates the caller's claims were rejected.
	ErrUnauthorized = fmt.Errorf("%w: unauthorized", ErrAdapter)

	// ErrTurn indicates a failure raised by bot logic during a turn. It is
	// consumed by the turn-error boundary and never surfaces to HTTP callers.
	ErrTurn = fmt.Errorf("%w: turn", ErrAdapter)

	// ErrHosting is the base error for hosted service lifecycle failures.
	ErrHosting = errors.New("hosting error")

	// ErrService is the base error for channel service failures.
	ErrService = errors.New("service error")

	// ErrAuth indicates an authentication or authorization failure against
	// the channel service.
	ErrAuth = fmt.Errorf("%w: authentication", ErrService)

	// ErrInvalidRequest indicates the channel service rejected the request.
	ErrInvalidRequest = fmt.Errorf("%w: invalid request", ErrService)

	// ErrInvalidResponse indicates the channel service returned an unexpected
	// response.
	ErrInvalidResponse = fmt.Errorf("%w: invalid response", ErrService)
)

// ServiceError provides rich context for channel service failures.
// Use errors.As to extract it from a wrapped error chain.
type ServiceError struct {
	StatusCode int
	Message    string
	Code       string
	Err        error
}

func (e *ServiceError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("service error %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("service error %d: %s", e.StatusCode, e.Message)
}

func (e *ServiceError) Unwrap() error { return e.Err }
