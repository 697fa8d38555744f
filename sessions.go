package accounts

import (
	"context"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// RefreshTokenStore is the session persistence surface the manager needs
type RefreshTokenStore interface {
	RefreshTokenRecorder
	FindActive(ctx context.Context, userID uuid.UUID, token string) (*RefreshToken, error)
	ClearForUser(ctx context.Context, userID uuid.UUID) error
}

// SessionManager owns the session lifecycle: issuing pairs, clearing old
// sessions, logout with access token revocation, and refresh rotation.
type SessionManager struct {
	tokens   *TokenService
	store    RefreshTokenStore
	users    UserLoader
	denylist TokenDenylist
	logger   Logger
}

type SessionOption func(*SessionManager)

func WithSessionLogger(logger Logger) SessionOption {
	return func(s *SessionManager) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewSessionManager(tokens *TokenService, store RefreshTokenStore, users UserLoader, denylist TokenDenylist, opts ...SessionOption) *SessionManager {
	manager := &SessionManager{
		tokens:   tokens,
		store:    store,
		users:    users,
		denylist: denylist,
		logger:   defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(manager)
		}
	}

	return manager
}

// CreateTokens issues a fresh pair for the user
func (s *SessionManager) CreateTokens(ctx context.Context, user *User) (*TokenPair, error) {
	return s.tokens.CreateTokens(ctx, user)
}

// ClearPreviousSessions soft deletes every active session the user holds.
// Best effort: a storage failure is logged and reported as false, never as
// an error, so signin can proceed with the new session.
func (s *SessionManager) ClearPreviousSessions(ctx context.Context, user *User) bool {
	if err := s.store.ClearForUser(ctx, user.ID); err != nil {
		s.logger.Error("SessionManager failed to clear sessions for user %s: %v", user.ID, err)
		return false
	}
	return true
}

// Logout invalidates the user's refresh tokens and denylists the access
// token for its remaining life. An access token that cannot be verified
// cannot be revoked either, so it counts as a logout failure. The denylist
// write comes last: if it fails the refresh rows are already gone and the
// caller gets ErrLogoutFailed so the degradation is visible rather than
// silent.
func (s *SessionManager) Logout(ctx context.Context, user *User, accessToken string) error {
	if err := s.store.ClearForUser(ctx, user.ID); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to clear user sessions")
	}

	claims := s.tokens.VerifyAccess(accessToken)
	if claims == nil {
		return ErrLogoutFailed
	}

	if err := s.denylist.Revoke(ctx, accessToken, claims.RemainingLife(time.Now())); err != nil {
		s.logger.Error("SessionManager failed to denylist access token for user %s: %v", user.ID, err)
		return ErrLogoutFailed
	}

	return nil
}

// Refresh rotates a refresh token: the presented token and its siblings are
// consumed, the access token is revoked, and a brand new pair is issued.
// Every failure before rotation maps to a generic invalid-token error; an
// access token that cannot be revoked makes the rotation itself fail, so no
// new pair goes out.
func (s *SessionManager) Refresh(ctx context.Context, accessToken, refreshToken string) (*TokenPair, error) {
	if refreshToken == "" {
		return nil, ErrMissingRefreshToken
	}

	claims := s.tokens.VerifyRefresh(refreshToken)
	if claims == nil {
		return nil, ErrInvalidRefreshToken
	}

	userID, err := uuid.Parse(claims.UID)
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to load user for refresh")
	}

	if _, err := s.store.FindActive(ctx, user.ID, refreshToken); err != nil {
		if errors.IsNotFound(err) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to resolve session")
	}

	if err := s.Logout(ctx, user, accessToken); err != nil {
		return nil, err
	}

	return s.tokens.CreateTokens(ctx, user)
}

// IsRevoked reports whether the access token was revoked before expiry
func (s *SessionManager) IsRevoked(ctx context.Context, accessToken string) (bool, error) {
	return s.denylist.IsRevoked(ctx, accessToken)
}

// VerifyAccess returns the claims of a valid access token, nil otherwise
func (s *SessionManager) VerifyAccess(accessToken string) *TokenClaims {
	return s.tokens.VerifyAccess(accessToken)
}
