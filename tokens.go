package accounts

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// TokenClaims is the claim set carried by every token this package signs.
// The user id travels both as the registered subject and under "id".
type TokenClaims struct {
	jwt.RegisteredClaims
	UID string `json:"id,omitempty"`
}

// TokenPair is what a successful signin or refresh hands back
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// RefreshTokenRecorder persists issued refresh tokens as session rows
type RefreshTokenRecorder interface {
	Record(ctx context.Context, userID uuid.UUID, token string) (*RefreshToken, error)
}

// TokenService signs access/refresh pairs with distinct secrets and
// lifetimes. Access tokens are short lived; refresh tokens are long lived
// and additionally tracked in storage so they can be revoked.
type TokenService struct {
	accessKey  []byte
	refreshKey []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	issuer     string
	audience   jwt.ClaimStrings
	sessions   RefreshTokenRecorder
	logger     Logger
}

// NewTokenService creates a new TokenService instance
func NewTokenService(config Config, sessions RefreshTokenRecorder, logger Logger) *TokenService {
	if logger == nil {
		logger = defLogger{}
	}
	return &TokenService{
		accessKey:  []byte(config.GetAccessSigningKey()),
		refreshKey: []byte(config.GetRefreshSigningKey()),
		accessTTL:  config.GetAccessTokenTTL(),
		refreshTTL: config.GetRefreshTokenTTL(),
		issuer:     config.GetIssuer(),
		audience:   config.GetAudience(),
		sessions:   sessions,
		logger:     logger,
	}
}

// CreateTokens signs a fresh pair for the user and records the refresh
// token as a session row. Each refresh token carries a unique jti so the
// storage unique constraint holds across reissues.
func (ts *TokenService) CreateTokens(ctx context.Context, user *User) (*TokenPair, error) {
	access, err := ts.signClaims(ts.newClaims(user, ts.accessTTL), ts.accessKey)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to sign access token")
	}

	refresh, err := ts.signClaims(ts.newClaims(user, ts.refreshTTL), ts.refreshKey)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to sign refresh token")
	}

	if _, err := ts.sessions.Record(ctx, user.ID, refresh); err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to record session")
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
	}, nil
}

// VerifyAccess returns the claims of a valid access token, nil otherwise
func (ts *TokenService) VerifyAccess(token string) *TokenClaims {
	return Verify(token, ts.accessKey)
}

// VerifyRefresh returns the claims of a valid refresh token, nil otherwise
func (ts *TokenService) VerifyRefresh(token string) *TokenClaims {
	return Verify(token, ts.refreshKey)
}

func (ts *TokenService) newClaims(user *User, ttl time.Duration) *TokenClaims {
	now := time.Now()
	return &TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    ts.issuer,
			Subject:   user.ID.String(),
			Audience:  ts.audience,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UID: user.ID.String(),
	}
}

func (ts *TokenService) signClaims(claims *TokenClaims, key []byte) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(key)
}

// Verify parses a token against the given secret and returns its claims.
// Any failure, be it signature, expiry, or shape, yields nil: callers that
// need the reason use Validate.
func Verify(token string, secret []byte) *TokenClaims {
	claims, err := Validate(token, secret)
	if err != nil {
		return nil
	}
	return claims
}

// Validate parses a token against the given secret, returning structured
// claims or a categorized error
func Validate(tokenString string, secret []byte) (*TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, errors.Wrap(err, errors.CategoryAuth, "token expired")
		}
		return nil, errors.Wrap(err, errors.CategoryAuth, "token malformed")
	}

	claims, ok := token.Claims.(*TokenClaims)
	if !ok || !token.Valid {
		return nil, errors.New("unable to decode token claims", errors.CategoryAuth)
	}

	return claims, nil
}

// RemainingLife reports how long the token stays valid from now. Used to
// size denylist entries so they outlive the token by no more than needed.
func (c *TokenClaims) RemainingLife(now time.Time) time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	remaining := c.ExpiresAt.Time.Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}
