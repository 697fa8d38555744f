package accounts

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Accounts orchestrates account creation and password signin on top of the
// repositories and the session manager
type Accounts struct {
	repos     RepositoryManager
	sessions  *SessionManager
	stwt      *SignupTokenService
	logger    Logger
	useHashid bool
}

// NewAccounts returns a new Accounts orchestrator
func NewAccounts(repos RepositoryManager, sessions *SessionManager, stwt *SignupTokenService) *Accounts {
	return &Accounts{
		repos:    repos,
		sessions: sessions,
		stwt:     stwt,
		logger:   defLogger{},
	}
}

func (s *Accounts) WithLogger(logger Logger) *Accounts {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithDeterministicIDs derives user ids from the email instead of random
// UUIDs. Useful for idempotent imports.
func (s *Accounts) WithDeterministicIDs() *Accounts {
	s.useHashid = true
	return s
}

// SignupPayload is the account creation request
type SignupPayload struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
	Phone    string `form:"phone_number" json:"phone_number"`
}

// Validate will run validation rules
func (r SignupPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(10, 100)),
		validation.Field(&r.Phone, validation.Required, validation.Length(6, 20)),
	)
}

// SigninPayload is the password signin request
type SigninPayload struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r SigninPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

// SignupResult carries the created user plus the recovery passphrase, which
// exists only in this response and is never persisted
type SignupResult struct {
	User               *User  `json:"user"`
	RecoveryPassphrase string `json:"recovery_passphrase"`
}

// Signup creates an account. An invitation token, when present, must clear
// both its gates before any row is written and fixes the account type. The
// user and its encryption profile commit atomically; token consumption
// happens after commit and a consumption failure only logs, since the
// account already exists and the token gets cleaned up by expiry.
func (s *Accounts) Signup(ctx context.Context, payload SignupPayload, stwtToken string) (*SignupResult, error) {
	userType := UserTypeClient

	if stwtToken != "" {
		record, err := s.stwt.Resolve(ctx, stwtToken)
		if err != nil {
			return nil, err
		}
		userType = record.Type
	}

	passwordHash, err := HashSecret(payload.Password)
	if err != nil {
		return nil, err
	}

	kit, err := CreateEncryptionProfile(payload.Password)
	if err != nil {
		return nil, err
	}

	user := &User{
		Type:         userType,
		Email:        payload.Email,
		Phone:        payload.Phone,
		PasswordHash: passwordHash,
	}

	if s.useHashid {
		if id, err := hashid.NewUUID(payload.Email); err == nil {
			user.ID = id
		}
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err = s.repos.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		created, err := s.repos.Users().CreateTx(ctx, tx, user)
		if err != nil {
			return err
		}
		user = created

		profile := &EncryptionProfile{
			ID:          uuid.New(),
			UserID:      user.ID,
			UserKey:     kit.UserKey,
			RecoveryKey: kit.RecoveryKey,
		}

		if _, err := s.repos.EncryptionProfiles().CreateTx(ctx, tx, profile); err != nil {
			return err
		}

		user.EncryptionProfile = profile
		return nil
	})

	if err != nil {
		if IsUniqueViolation(err) {
			return nil, ErrDuplicateEmail
		}

		var richErr *errors.Error
		if errors.As(err, &richErr) {
			return nil, richErr
		}

		return nil, errors.Wrap(err, errors.CategoryInternal, "signup transaction failed")
	}

	if stwtToken != "" {
		if err := s.stwt.Consume(ctx, stwtToken, user.ID); err != nil {
			s.logger.Error("Signup failed to consume signup token for user %s: %v", user.ID, err)
		}
	}

	return &SignupResult{
		User:               user,
		RecoveryPassphrase: kit.Passphrase,
	}, nil
}

// Signin verifies the password and issues a token pair. The expected type
// defaults to CLIENT, so an admin must sign in through the admin surface; a
// wrong expected account type reports the same generic error as a wrong
// password. Only a password-less social account gets its own code, matching
// what the client has to do about it. Previous sessions are cleared best
// effort.
func (s *Accounts) Signin(ctx context.Context, payload SigninPayload, expectedType UserType) (*TokenPair, *User, error) {
	if expectedType == "" {
		expectedType = UserTypeClient
	}

	user, err := s.repos.Users().GetByEmail(ctx, payload.Email)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, nil, ErrUserNotFound
		}
		return nil, nil, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve user during signin")
	}

	if user.PasswordHash == "" {
		return nil, nil, ErrSocialOnlyAccount
	}

	match, err := CompareSecret(payload.Password, user.PasswordHash)
	if err != nil {
		return nil, nil, err
	}

	if !match {
		return nil, nil, ErrInvalidCredentials
	}

	if user.Type != expectedType {
		return nil, nil, ErrInvalidCredentials
	}

	s.sessions.ClearPreviousSessions(ctx, user)

	pair, err := s.sessions.CreateTokens(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	return pair, user, nil
}

// userLoader adapts the users repository to the narrow read surface the
// services take
type userLoader struct {
	users Users
}

// NewUserLoader wraps the users repository as a UserLoader
func NewUserLoader(users Users) UserLoader {
	return userLoader{users: users}
}

func (l userLoader) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return l.users.GetByIdentifier(ctx, id.String())
}
