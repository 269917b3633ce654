// Copyright (c) Microsoft. All rights reserved.

// Package connector provides the Bot Connector REST client: the channel
// service surface the dispatch core uses to deliver bot replies, plus thin
// credential constructors over azidentity.
//
// Create a client with [New] and hand it to the adapter as its reply sender:
//
//	cred, _ := connector.NewClientSecretCredential(tenantID, appID, secret)
//	client  := connector.New(connector.WithCredential(cred))
//	adapter := botframework.NewCloudAdapter(botframework.WithReplySender(client))
package connector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	bf "github.com/microsoft/botframework-go/botframework"
)

// Client talks to the channel service addressed by each activity's
// ServiceURL. Use [New] to create one.
type Client struct {
	tp transport
}

// Verify interface compliance at compile time.
var _ bf.ReplySender = (*Client)(nil)

// New creates a connector [Client] with the given options.
func New(opts ...Option) *Client {
	cfg := &clientConfig{}
	for _, o := range opts {
		o(cfg)
	}
	return &Client{tp: newHTTPTransport(cfg)}
}

// newWithTransport creates a Client with a custom transport (for testing).
func newWithTransport(tp transport) *Client {
	return &Client{tp: tp}
}

// resourceResponse is the channel service's acknowledgement payload.
type resourceResponse struct {
	ID string `json:"id"`
}

// Send implements [botframework.ReplySender]: activities carrying a
// ReplyToID are posted as replies, everything else is sent to the
// conversation.
func (c *Client) Send(ctx context.Context, activity *bf.Activity) (string, error) {
	if activity.ReplyToID != "" {
		return c.ReplyToActivity(ctx, activity)
	}
	return c.SendToConversation(ctx, activity)
}

// SendToConversation posts an activity to the end of a conversation and
// returns the ID the channel assigned to it.
func (c *Client) SendToConversation(ctx context.Context, activity *bf.Activity) (string, error) {
	u, err := conversationURL(activity, "")
	if err != nil {
		return "", err
	}
	return c.post(ctx, u, activity)
}

// ReplyToActivity posts an activity as a reply to the activity named by its
// ReplyToID. Channels that support threading attach it there; others append.
func (c *Client) ReplyToActivity(ctx context.Context, activity *bf.Activity) (string, error) {
	if activity.ReplyToID == "" {
		return "", fmt.Errorf("%w: activity has no replyToId", bf.ErrInvalidRequest)
	}
	u, err := conversationURL(activity, activity.ReplyToID)
	if err != nil {
		return "", err
	}
	return c.post(ctx, u, activity)
}

func (c *Client) post(ctx context.Context, u string, activity *bf.Activity) (string, error) {
	resp, err := c.tp.do(ctx, http.MethodPost, u, activity)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read response body: %v", bf.ErrService, err)
	}

	var rr resourceResponse
	if len(body) > 0 {
		if err := json.Unmarshal(body, &rr); err != nil {
			return "", fmt.Errorf("%w: parse response: %v", bf.ErrInvalidResponse, err)
		}
	}
	return rr.ID, nil
}

// conversationURL builds {serviceURL}/v3/conversations/{id}/activities and,
// when replyToID is set, appends the reply segment.
func conversationURL(activity *bf.Activity, replyToID string) (string, error) {
	if activity.ServiceURL == "" {
		return "", fmt.Errorf("%w: activity has no serviceUrl", bf.ErrInvalidRequest)
	}
	if activity.Conversation == nil || activity.Conversation.ID == "" {
		return "", fmt.Errorf("%w: activity has no conversation", bf.ErrInvalidRequest)
	}
	base, err := url.Parse(activity.ServiceURL)
	if err != nil {
		return "", fmt.Errorf("%w: invalid serviceUrl: %v", bf.ErrInvalidRequest, err)
	}
	u := base.JoinPath("v3", "conversations", activity.Conversation.ID, "activities")
	if replyToID != "" {
		u = u.JoinPath(replyToID)
	}
	return u.String(), nil
}
