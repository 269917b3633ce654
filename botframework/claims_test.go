// Copyright (c) Microsoft. All rights reserved.

package botframework_test

import (
	"context"
	"testing"

	"github.com/golang-jwt/jwt/v5"

	bf "github.com/microsoft/botframework-go/botframework"
)

func TestClaimsIdentity_AppID(t *testing.T) {
	tests := []struct {
		name   string
		claims jwt.MapClaims
		want   string
	}{
		{"azp preferred", jwt.MapClaims{"azp": "app-azp", "appid": "app-appid", "aud": "app-aud"}, "app-azp"},
		{"appid fallback", jwt.MapClaims{"appid": "app-appid", "aud": "app-aud"}, "app-appid"},
		{"aud fallback", jwt.MapClaims{"aud": "app-aud"}, "app-aud"},
		{"no claims", jwt.MapClaims{}, ""},
		{"non-string ignored", jwt.MapClaims{"azp": 42}, ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			identity := bf.NewClaimsIdentity(tc.claims, "Bearer")
			if got := identity.AppID(); got != tc.want {
				t.Fatalf("AppID = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestClaimsIdentity_Authenticated(t *testing.T) {
	if bf.NewAnonymousClaimsIdentity().IsAuthenticated() {
		t.Error("anonymous identity must not be authenticated")
	}
	if !bf.NewClaimsIdentity(jwt.MapClaims{}, "Bearer").IsAuthenticated() {
		t.Error("bearer identity must be authenticated")
	}
}

func TestClaimsIdentityFromToken(t *testing.T) {
	token := &jwt.Token{Claims: jwt.MapClaims{"appid": "app-1"}}
	identity := bf.NewClaimsIdentityFromToken(token)
	if !identity.IsAuthenticated() {
		t.Error("token identity must be authenticated")
	}
	if identity.AppID() != "app-1" {
		t.Errorf("AppID = %q", identity.AppID())
	}

	if bf.NewClaimsIdentityFromToken(nil).IsAuthenticated() {
		t.Error("nil token must yield an anonymous identity")
	}
}

func TestClaimsIdentityContextRoundTrip(t *testing.T) {
	identity := bf.NewClaimsIdentity(jwt.MapClaims{"appid": "app-1"}, "Bearer")
	ctx := bf.ContextWithClaimsIdentity(context.Background(), identity)

	got := bf.ClaimsIdentityFromContext(ctx)
	if got.AppID() != "app-1" {
		t.Fatalf("AppID = %q, want app-1", got.AppID())
	}

	// A bare context yields an anonymous identity, never nil.
	anon := bf.ClaimsIdentityFromContext(context.Background())
	if anon == nil || anon.IsAuthenticated() {
		t.Fatalf("bare context identity = %+v, want anonymous", anon)
	}
}
