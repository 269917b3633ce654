// Copyright (c) Microsoft. All rights reserved.

package botframework

import (
	"context"

	"github.com/golang-jwt/jwt/v5"
)

// ClaimsIdentity is an authenticated principal's claim set, produced by an
// external authentication layer (JWT bearer middleware or equivalent). The
// dispatch core treats it as already validated.
type ClaimsIdentity struct {
	claims   jwt.MapClaims
	authType string
}

// NewClaimsIdentity creates a ClaimsIdentity from a validated claim set.
func NewClaimsIdentity(claims jwt.MapClaims, authType string) *ClaimsIdentity {
	if claims == nil {
		claims = jwt.MapClaims{}
	}
	return &ClaimsIdentity{claims: claims, authType: authType}
}

// NewClaimsIdentityFromToken creates a ClaimsIdentity from a token that has
// already been validated by upstream middleware. Tokens whose claims are not
// a [jwt.MapClaims] yield an identity with no claims.
func NewClaimsIdentityFromToken(token *jwt.Token) *ClaimsIdentity {
	if token == nil {
		return NewAnonymousClaimsIdentity()
	}
	claims, _ := token.Claims.(jwt.MapClaims)
	return NewClaimsIdentity(claims, "Bearer")
}

// NewAnonymousClaimsIdentity creates an unauthenticated identity, used when
// no authentication layer is configured (local development).
func NewAnonymousClaimsIdentity() *ClaimsIdentity {
	return &ClaimsIdentity{claims: jwt.MapClaims{}}
}

// IsAuthenticated reports whether the identity carries an authentication type.
func (c *ClaimsIdentity) IsAuthenticated() bool { return c.authType != "" }

// AuthType returns the authentication type, e.g. "Bearer".
func (c *ClaimsIdentity) AuthType() string { return c.authType }

// Claims returns the underlying claim set.
func (c *ClaimsIdentity) Claims() jwt.MapClaims { return c.claims }

// Claim returns the named claim as a string. ok is false when the claim is
// absent or not a string.
func (c *ClaimsIdentity) Claim(name string) (value string, ok bool) {
	v, present := c.claims[name]
	if !present {
		return "", false
	}
	s, isString := v.(string)
	return s, isString
}

// AppID returns the application ID asserted by the token, checking the claims
// Entra ID uses across token versions (azp, appid, aud).
func (c *ClaimsIdentity) AppID() string {
	for _, name := range []string{"azp", "appid", "aud"} {
		if v, ok := c.Claim(name); ok && v != "" {
			return v
		}
	}
	return ""
}

// ClaimsValidator checks an identity before the core accepts work on its
// behalf. Return an error to reject the caller; the adapter maps it to
// [ErrUnauthorized].
type ClaimsValidator func(ctx context.Context, identity *ClaimsIdentity) error

type claimsContextKey struct{}

// ContextWithClaimsIdentity attaches the authenticated principal to ctx.
// Authentication middleware calls this before handing the request to an
// adapter.
func ContextWithClaimsIdentity(ctx context.Context, identity *ClaimsIdentity) context.Context {
	return context.WithValue(ctx, claimsContextKey{}, identity)
}

// ClaimsIdentityFromContext returns the principal attached to ctx, or an
// anonymous identity when none is present.
func ClaimsIdentityFromContext(ctx context.Context) *ClaimsIdentity {
	if identity, ok := ctx.Value(claimsContextKey{}).(*ClaimsIdentity); ok && identity != nil {
		return identity
	}
	return NewAnonymousClaimsIdentity()
}
