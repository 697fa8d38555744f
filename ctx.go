package accounts

import (
	"context"

	"github.com/goliatone/go-router"
)

var userCtxKey = &contextKey{"user"}
var claimsCtxKey = &contextKey{"claims"}
var accessTokenCtxKey = &contextKey{"access_token"}

type contextKey struct {
	name string
}

// WithContext sets the User in the given context
func WithContext(r context.Context, user *User) context.Context {
	return context.WithValue(r, userCtxKey, user)
}

// FromContext finds the user from the context.
func FromContext(ctx context.Context) (*User, bool) {
	raw, ok := ctx.Value(userCtxKey).(*User)
	return raw, ok
}

// WithClaimsContext sets the TokenClaims in the given context
func WithClaimsContext(r context.Context, claims *TokenClaims) context.Context {
	return context.WithValue(r, claimsCtxKey, claims)
}

// GetClaims extracts the TokenClaims from the standard context
func GetClaims(ctx context.Context) (*TokenClaims, bool) {
	raw, ok := ctx.Value(claimsCtxKey).(*TokenClaims)
	return raw, ok
}

// WithAccessTokenContext keeps the raw bearer token around so logout can
// denylist exactly what the client presented
func WithAccessTokenContext(r context.Context, token string) context.Context {
	return context.WithValue(r, accessTokenCtxKey, token)
}

// AccessTokenFromContext returns the raw bearer token of the request
func AccessTokenFromContext(ctx context.Context) (string, bool) {
	raw, ok := ctx.Value(accessTokenCtxKey).(string)
	return raw, ok
}

// GetRouterUser extracts the authenticated user from the router context
func GetRouterUser(ctx router.Context, key string) (*User, bool) {
	if key == "" {
		key = "user"
	}
	raw := ctx.Locals(key)
	if raw == nil {
		return nil, false
	}
	user, ok := raw.(*User)
	return user, ok
}
