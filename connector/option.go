// Copyright (c) Microsoft. All rights reserved.

package connector

import (
	"log/slog"
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
)

// BotFrameworkScope is the default OAuth scope for the public channel
// service.
const BotFrameworkScope = "https://api.botframework.com/.default"

// clientConfig holds resolved configuration for the connector client.
type clientConfig struct {
	httpClient *http.Client
	credential azcore.TokenCredential
	scopes     []string
	headers    map[string]string
	logger     *slog.Logger
}

// Option configures a connector [Client].
type Option func(*clientConfig)

// WithHTTPClient provides a custom http.Client for requests.
func WithHTTPClient(client *http.Client) Option {
	return func(c *clientConfig) { c.httpClient = client }
}

// WithCredential enables bearer-token authentication against the channel
// service using the provided credential. Without one, requests go out
// unauthenticated (emulator and local development).
func WithCredential(cred azcore.TokenCredential) Option {
	return func(c *clientConfig) { c.credential = cred }
}

// WithScopes overrides the OAuth scopes requested per call. Defaults to
// [BotFrameworkScope]; sovereign clouds use their own audience.
func WithScopes(scopes ...string) Option {
	return func(c *clientConfig) { c.scopes = scopes }
}

// WithHeaders adds custom headers to every request.
func WithHeaders(headers map[string]string) Option {
	return func(c *clientConfig) { c.headers = headers }
}

// WithLogger sets the client's logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *clientConfig) { c.logger = logger }
}
