// Copyright (c) Microsoft. All rights reserved.

package botframework

import (
	"os"
	"strconv"
	"time"
)

// ShutdownTimeoutEnvVar names the environment variable holding the shutdown
// grace period, in whole seconds.
const ShutdownTimeoutEnvVar = "BOT_SHUTDOWN_TIMEOUT_SECONDS"

// ShutdownTimeoutFromEnv reads the shutdown grace period from the process
// environment, falling back to [DefaultShutdownTimeout] when the variable is
// unset or not a positive integer.
func ShutdownTimeoutFromEnv() time.Duration {
	v := os.Getenv(ShutdownTimeoutEnvVar)
	if v == "" {
		return DefaultShutdownTimeout
	}
	seconds, err := strconv.Atoi(v)
	if err != nil || seconds <= 0 {
		return DefaultShutdownTimeout
	}
	return time.Duration(seconds) * time.Second
}
