// Copyright (c) Microsoft. All rights reserved.

package connector

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"

	bf "github.com/microsoft/botframework-go/botframework"
)

// mockTransport records the request and returns a canned response.
type mockTransport struct {
	method string
	url    string
	body   any

	status   int
	response string
	err      error
}

func (m *mockTransport) do(_ context.Context, method, url string, body any) (*http.Response, error) {
	m.method = method
	m.url = url
	m.body = body
	if m.err != nil {
		return nil, m.err
	}
	status := m.status
	if status == 0 {
		status = http.StatusOK
	}
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(m.response)),
	}, nil
}

func outboundReply() *bf.Activity {
	return &bf.Activity{
		Type:         bf.ActivityTypeMessage,
		ServiceURL:   "https://smba.example.com/teams",
		Conversation: &bf.ConversationAccount{ID: "conv-1"},
		ReplyToID:    "in-1",
		Text:         "hello back",
	}
}

func TestClient_SendRoutesToReply(t *testing.T) {
	mock := &mockTransport{response: `{"id":"out-1"}`}
	client := newWithTransport(mock)

	id, err := client.Send(context.Background(), outboundReply())
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if id != "out-1" {
		t.Errorf("id = %q, want out-1", id)
	}
	if mock.method != http.MethodPost {
		t.Errorf("method = %q", mock.method)
	}
	want := "https://smba.example.com/teams/v3/conversations/conv-1/activities/in-1"
	if mock.url != want {
		t.Errorf("url = %q, want %q", mock.url, want)
	}
}

func TestClient_SendRoutesToConversation(t *testing.T) {
	mock := &mockTransport{response: `{"id":"out-2"}`}
	client := newWithTransport(mock)

	activity := outboundReply()
	activity.ReplyToID = ""
	if _, err := client.Send(context.Background(), activity); err != nil {
		t.Fatalf("Send: %v", err)
	}
	want := "https://smba.example.com/teams/v3/conversations/conv-1/activities"
	if mock.url != want {
		t.Errorf("url = %q, want %q", mock.url, want)
	}
}

func TestClient_ReplyToActivityRequiresReplyToID(t *testing.T) {
	client := newWithTransport(&mockTransport{})

	activity := outboundReply()
	activity.ReplyToID = ""
	if _, err := client.ReplyToActivity(context.Background(), activity); !errors.Is(err, bf.ErrInvalidRequest) {
		t.Fatalf("err = %v, want ErrInvalidRequest", err)
	}
}

func TestClient_AddressingValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*bf.Activity)
	}{
		{"no serviceUrl", func(a *bf.Activity) { a.ServiceURL = "" }},
		{"no conversation", func(a *bf.Activity) { a.Conversation = nil }},
		{"empty conversation id", func(a *bf.Activity) { a.Conversation.ID = "" }},
	}

	client := newWithTransport(&mockTransport{})
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			activity := outboundReply()
			tc.mutate(activity)
			if _, err := client.Send(context.Background(), activity); !errors.Is(err, bf.ErrInvalidRequest) {
				t.Fatalf("err = %v, want ErrInvalidRequest", err)
			}
		})
	}
}

func TestClient_EmptyResponseBody(t *testing.T) {
	client := newWithTransport(&mockTransport{response: ""})

	id, err := client.Send(context.Background(), outboundReply())
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if id != "" {
		t.Errorf("id = %q, want empty", id)
	}
}

func TestClient_MalformedResponseBody(t *testing.T) {
	client := newWithTransport(&mockTransport{response: "not json"})

	if _, err := client.Send(context.Background(), outboundReply()); !errors.Is(err, bf.ErrInvalidResponse) {
		t.Fatalf("err = %v, want ErrInvalidResponse", err)
	}
}

// fakeCredential implements azcore.TokenCredential for transport tests.
type fakeCredential struct {
	token string
	err   error
}

func (f *fakeCredential) GetToken(context.Context, policy.TokenRequestOptions) (azcore.AccessToken, error) {
	if f.err != nil {
		return azcore.AccessToken{}, f.err
	}
	return azcore.AccessToken{Token: f.token, ExpiresOn: time.Now().Add(time.Hour)}, nil
}

func TestTransport_BearerAuthorization(t *testing.T) {
	var gotAuth, gotContentType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		w.Write([]byte(`{"id":"srv-1"}`))
	}))
	defer server.Close()

	client := New(
		WithHTTPClient(server.Client()),
		WithCredential(&fakeCredential{token: "tok-123"}),
	)

	activity := outboundReply()
	activity.ServiceURL = server.URL
	id, err := client.Send(context.Background(), activity)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if id != "srv-1" {
		t.Errorf("id = %q", id)
	}
	if gotAuth != "Bearer tok-123" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotContentType != "application/json" {
		t.Errorf("Content-Type = %q", gotContentType)
	}
}

func TestTransport_CredentialFailure(t *testing.T) {
	client := New(WithCredential(&fakeCredential{err: errors.New("no token for you")}))

	activity := outboundReply()
	if _, err := client.Send(context.Background(), activity); !errors.Is(err, bf.ErrAuth) {
		t.Fatalf("err = %v, want ErrAuth", err)
	}
}

func TestTransport_ErrorResponseMapping(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"unauthorized", http.StatusUnauthorized, `{"error":{"code":"AuthenticationFailed","message":"bad token"}}`, bf.ErrAuth},
		{"forbidden", http.StatusForbidden, ``, bf.ErrAuth},
		{"bad request", http.StatusBadRequest, `{"error":{"code":"BadArgument","message":"missing field"}}`, bf.ErrInvalidRequest},
		{"server error", http.StatusInternalServerError, `oops`, bf.ErrService},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			}))
			defer server.Close()

			client := New(WithHTTPClient(server.Client()))
			activity := outboundReply()
			activity.ServiceURL = server.URL

			_, err := client.Send(context.Background(), activity)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("err = %v, want %v", err, tc.wantErr)
			}

			var svcErr *bf.ServiceError
			if !errors.As(err, &svcErr) {
				t.Fatalf("err = %T, want *ServiceError", err)
			}
			if svcErr.StatusCode != tc.status {
				t.Errorf("StatusCode = %d, want %d", svcErr.StatusCode, tc.status)
			}
		})
	}
}

func TestTransport_CustomHeaders(t *testing.T) {
	var gotHeader string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get("X-Ms-Test")
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := New(
		WithHTTPClient(server.Client()),
		WithHeaders(map[string]string{"X-Ms-Test": "yes"}),
	)

	activity := outboundReply()
	activity.ServiceURL = server.URL
	if _, err := client.Send(context.Background(), activity); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if gotHeader != "yes" {
		t.Errorf("X-Ms-Test = %q", gotHeader)
	}
}
