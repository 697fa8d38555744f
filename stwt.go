package accounts

import (
	"context"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// StwtGraceWindow is how long a consumed signup token row lingers past
// consumption before cleanup may collect it.
const StwtGraceWindow = 25 * time.Hour

// SignupProcessStatus describes how far a signup invitation has progressed
type SignupProcessStatus = string

const (
	SignupProcessUserNotCreated   SignupProcessStatus = "USER_NOT_CREATED"
	SignupProcessUserNotVerified  SignupProcessStatus = "USER_NOT_VERIFIED"
	SignupProcessUserNotCompleted SignupProcessStatus = "USER_NOT_COMPLETED"
	SignupProcessCompleted        SignupProcessStatus = "COMPLETED"
)

// SignupProcessInfo is the projection invitation emails poll while the
// invitee works through signup
type SignupProcessInfo struct {
	Status   SignupProcessStatus `json:"status"`
	CodeSent bool                `json:"code_sent"`
}

// SignupTokenStore is the persistence surface for invitation tokens
type SignupTokenStore interface {
	FindByToken(ctx context.Context, token string) (*SignupToken, error)
	Consume(ctx context.Context, token string, consumerID uuid.UUID, expiresAt time.Time) (*SignupToken, error)
}

// SignupTokenService validates and consumes single-use invitation tokens.
// A token must pass two gates: its JWT signature against the dedicated
// signup secret, then its storage row, which carries the consumption state.
type SignupTokenService struct {
	store  SignupTokenStore
	users  UserLoader
	secret []byte
	logger Logger
	now    func() time.Time
}

type SignupTokenOption func(*SignupTokenService)

func WithSignupTokenLogger(logger Logger) SignupTokenOption {
	return func(s *SignupTokenService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func withSignupTokenClock(now func() time.Time) SignupTokenOption {
	return func(s *SignupTokenService) {
		s.now = now
	}
}

func NewSignupTokenService(config Config, store SignupTokenStore, users UserLoader, opts ...SignupTokenOption) *SignupTokenService {
	service := &SignupTokenService{
		store:  store,
		users:  users,
		secret: []byte(config.GetSignupTokenSigningKey()),
		logger: defLogger{},
		now:    time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(service)
		}
	}

	return service
}

// Resolve returns the usable row behind a token. Every rejection, missing,
// bad signature, consumed, or expired, collapses into the same error so the
// response never tells an attacker which gate failed.
func (s *SignupTokenService) Resolve(ctx context.Context, token string) (*SignupToken, error) {
	if token == "" {
		return nil, ErrInvalidSignupToken
	}

	if claims := Verify(token, s.secret); claims == nil {
		return nil, ErrInvalidSignupToken
	}

	record, err := s.store.FindByToken(ctx, token)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, ErrInvalidSignupToken
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to resolve signup token")
	}

	if record.Consumed() || record.ExpiredAt(s.now()) {
		return nil, ErrInvalidSignupToken
	}

	return record, nil
}

// IsUsable reports whether the token would be accepted for a signup
func (s *SignupTokenService) IsUsable(ctx context.Context, token string) error {
	_, err := s.Resolve(ctx, token)
	return err
}

// Consume stamps the consumer on the token and pushes expiry into the
// grace window
func (s *SignupTokenService) Consume(ctx context.Context, token string, consumerID uuid.UUID) error {
	expiresAt := s.now().Add(StwtGraceWindow)
	if _, err := s.store.Consume(ctx, token, consumerID, expiresAt); err != nil {
		if errors.IsNotFound(err) {
			return ErrInvalidSignupToken
		}
		return errors.Wrap(err, errors.CategoryInternal, "failed to consume signup token")
	}
	return nil
}

// ProcessInfo reports how far the invitee got. Unlike Resolve, an unknown
// token is reported as such: this projection backs the inviter's view, not
// the invitee's, so precision beats opacity here.
func (s *SignupTokenService) ProcessInfo(ctx context.Context, token string) (*SignupProcessInfo, error) {
	record, err := s.store.FindByToken(ctx, token)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, ErrStwtNotFound
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to load signup token")
	}

	if record.ConsumerID == nil {
		return &SignupProcessInfo{Status: SignupProcessUserNotCreated}, nil
	}

	user, err := s.users.GetByID(ctx, *record.ConsumerID)
	if err != nil {
		if errors.IsNotFound(err) {
			return &SignupProcessInfo{Status: SignupProcessUserNotCreated}, nil
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to load signup consumer")
	}

	if !user.Verified {
		return &SignupProcessInfo{
			Status:   SignupProcessUserNotVerified,
			CodeSent: s.hasLiveCode(user),
		}, nil
	}

	if !user.Completed {
		return &SignupProcessInfo{Status: SignupProcessUserNotCompleted}, nil
	}

	return &SignupProcessInfo{Status: SignupProcessCompleted}, nil
}

func (s *SignupTokenService) hasLiveCode(user *User) bool {
	if !user.HasPendingCode() {
		return false
	}
	return s.now().Sub(*user.LastVerificationRequest) <= verificationCodeLifetime
}
