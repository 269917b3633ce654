// Copyright (c) Microsoft. All rights reserved.

package connector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"

	bf "github.com/microsoft/botframework-go/botframework"
)

// transport is an unexported interface for HTTP communication.
// The default implementation uses net/http; tests inject a mock.
type transport interface {
	do(ctx context.Context, method, url string, body any) (*http.Response, error)
}

// httpTransport is the default transport using net/http.
type httpTransport struct {
	client     *http.Client
	credential azcore.TokenCredential
	scopes     []string
	headers    map[string]string
	logger     *slog.Logger
}

func newHTTPTransport(cfg *clientConfig) *httpTransport {
	t := &httpTransport{
		client:     cfg.httpClient,
		credential: cfg.credential,
		scopes:     cfg.scopes,
		headers:    cfg.headers,
		logger:     cfg.logger,
	}
	if t.client == nil {
		t.client = http.DefaultClient
	}
	if len(t.scopes) == 0 {
		t.scopes = []string{BotFrameworkScope}
	}
	if t.logger == nil {
		t.logger = slog.Default()
	}
	return t
}

func (t *httpTransport) do(ctx context.Context, method, url string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	if t.credential != nil {
		token, err := t.credential.GetToken(ctx, policy.TokenRequestOptions{
			Scopes: t.scopes,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: get channel service token: %v", bf.ErrAuth, err)
		}
		t.logger.DebugContext(ctx, "using bearer token authentication", "token_expires_on", token.ExpiresOn)
		req.Header.Set("Authorization", "Bearer "+token.Token)
	}

	for k, v := range t.headers {
		req.Header.Set(k, v)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}

	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		return nil, parseErrorResponse(resp)
	}

	return resp, nil
}

// parseErrorResponse reads an error response body and returns a typed error.
func parseErrorResponse(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	var apiErr struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	_ = json.Unmarshal(body, &apiErr)

	msg := apiErr.Error.Message
	if msg == "" {
		msg = string(body)
	}

	svcErr := &bf.ServiceError{
		StatusCode: resp.StatusCode,
		Message:    msg,
		Code:       apiErr.Error.Code,
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		svcErr.Err = bf.ErrAuth
	case resp.StatusCode == http.StatusBadRequest:
		svcErr.Err = bf.ErrInvalidRequest
	default:
		svcErr.Err = bf.ErrService
	}

	return svcErr
}
