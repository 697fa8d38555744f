package accounts

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubNotFound() error {
	return repository.NewRecordNotFound()
}

type stwtConfig struct{}

func (stwtConfig) GetAccessSigningKey() string       { return "access-secret" }
func (stwtConfig) GetRefreshSigningKey() string      { return "refresh-secret" }
func (stwtConfig) GetSignupTokenSigningKey() string  { return "signup-secret" }
func (stwtConfig) GetAccessTokenTTL() time.Duration  { return 15 * time.Minute }
func (stwtConfig) GetRefreshTokenTTL() time.Duration { return 24 * time.Hour }
func (stwtConfig) GetIssuer() string                 { return "accounts-test" }
func (stwtConfig) GetAudience() []string             { return nil }
func (stwtConfig) GetEnvironment() string            { return "test" }

type signupStoreStub struct {
	mu      sync.Mutex
	rows    map[string]*SignupToken
	findErr error
}

func newSignupStoreStub() *signupStoreStub {
	return &signupStoreStub{rows: map[string]*SignupToken{}}
}

func (s *signupStoreStub) FindByToken(ctx context.Context, token string) (*SignupToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.findErr != nil {
		return nil, s.findErr
	}

	if row, ok := s.rows[token]; ok {
		return row, nil
	}
	return nil, stubNotFound()
}

func (s *signupStoreStub) Consume(ctx context.Context, token string, consumerID uuid.UUID, expiresAt time.Time) (*SignupToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.rows[token]
	if !ok || row.ConsumerID != nil {
		return nil, stubNotFound()
	}

	row.ConsumerID = &consumerID
	row.ExpiresAt = &expiresAt
	return row, nil
}

type stubUserLoader struct {
	users map[uuid.UUID]*User
}

func (l *stubUserLoader) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	if user, ok := l.users[id]; ok {
		return user, nil
	}
	return nil, stubNotFound()
}

func signStwt(t *testing.T, secret string) string {
	t.Helper()

	claims := &TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func newStwtFixture(t *testing.T, now time.Time) (*SignupTokenService, *signupStoreStub, *stubUserLoader) {
	t.Helper()

	store := newSignupStoreStub()
	users := &stubUserLoader{users: map[uuid.UUID]*User{}}

	service := NewSignupTokenService(stwtConfig{}, store, users,
		withSignupTokenClock(func() time.Time { return now }))

	return service, store, users
}

func TestResolve(t *testing.T) {
	now := time.Now()
	service, store, _ := newStwtFixture(t, now)

	token := signStwt(t, "signup-secret")
	store.rows[token] = &SignupToken{ID: uuid.New(), Token: token, Type: UserTypeAdmin}

	record, err := service.Resolve(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, UserTypeAdmin, record.Type)

	assert.NoError(t, service.IsUsable(context.Background(), token))
}

func TestResolveRejections(t *testing.T) {
	now := time.Now()
	consumed := uuid.New()
	expiry := now.Add(-time.Minute)
	future := now.Add(time.Hour)

	tests := []struct {
		name string
		prep func(t *testing.T, store *signupStoreStub) string
	}{
		{
			name: "empty token",
			prep: func(t *testing.T, store *signupStoreStub) string {
				return ""
			},
		},
		{
			name: "wrong signature",
			prep: func(t *testing.T, store *signupStoreStub) string {
				token := signStwt(t, "other-secret")
				store.rows[token] = &SignupToken{ID: uuid.New(), Token: token}
				return token
			},
		},
		{
			name: "valid signature without row",
			prep: func(t *testing.T, store *signupStoreStub) string {
				return signStwt(t, "signup-secret")
			},
		},
		{
			name: "consumed token",
			prep: func(t *testing.T, store *signupStoreStub) string {
				token := signStwt(t, "signup-secret")
				store.rows[token] = &SignupToken{
					ID:         uuid.New(),
					Token:      token,
					ConsumerID: &consumed,
					ExpiresAt:  &future,
				}
				return token
			},
		},
		{
			name: "expired token",
			prep: func(t *testing.T, store *signupStoreStub) string {
				token := signStwt(t, "signup-secret")
				store.rows[token] = &SignupToken{
					ID:        uuid.New(),
					Token:     token,
					ExpiresAt: &expiry,
				}
				return token
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, store, _ := newStwtFixture(t, now)
			token := tt.prep(t, store)

			_, err := service.Resolve(context.Background(), token)
			assert.ErrorIs(t, err, ErrInvalidSignupToken)
		})
	}
}

func TestConsume(t *testing.T) {
	now := time.Now()
	service, store, _ := newStwtFixture(t, now)

	token := signStwt(t, "signup-secret")
	store.rows[token] = &SignupToken{ID: uuid.New(), Token: token}

	consumer := uuid.New()
	require.NoError(t, service.Consume(context.Background(), token, consumer))

	row := store.rows[token]
	require.NotNil(t, row.ConsumerID)
	assert.Equal(t, consumer, *row.ConsumerID)
	require.NotNil(t, row.ExpiresAt)
	assert.WithinDuration(t, now.Add(StwtGraceWindow), *row.ExpiresAt, time.Second)

	// Second consumption fails.
	err := service.Consume(context.Background(), token, uuid.New())
	assert.ErrorIs(t, err, ErrInvalidSignupToken)
}

func TestProcessInfo(t *testing.T) {
	now := time.Now()
	recentCode := now.Add(-time.Minute)
	staleCode := now.Add(-10 * time.Minute)
	codeHash := "aa:bb"

	consumerFor := func(user *User) *uuid.UUID {
		if user == nil {
			return nil
		}
		return &user.ID
	}

	tests := []struct {
		name     string
		user     *User
		expected *SignupProcessInfo
	}{
		{
			name:     "unconsumed token",
			user:     nil,
			expected: &SignupProcessInfo{Status: SignupProcessUserNotCreated},
		},
		{
			name: "user not verified with live code",
			user: &User{
				ID:                      uuid.New(),
				VerificationToken:       &codeHash,
				LastVerificationRequest: &recentCode,
			},
			expected: &SignupProcessInfo{Status: SignupProcessUserNotVerified, CodeSent: true},
		},
		{
			name: "user not verified with stale code",
			user: &User{
				ID:                      uuid.New(),
				VerificationToken:       &codeHash,
				LastVerificationRequest: &staleCode,
			},
			expected: &SignupProcessInfo{Status: SignupProcessUserNotVerified},
		},
		{
			name: "user not verified without code",
			user: &User{
				ID: uuid.New(),
			},
			expected: &SignupProcessInfo{Status: SignupProcessUserNotVerified},
		},
		{
			name: "verified but incomplete profile",
			user: &User{
				ID:       uuid.New(),
				Verified: true,
			},
			expected: &SignupProcessInfo{Status: SignupProcessUserNotCompleted},
		},
		{
			name: "completed",
			user: &User{
				ID:        uuid.New(),
				Verified:  true,
				Completed: true,
			},
			expected: &SignupProcessInfo{Status: SignupProcessCompleted},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, store, users := newStwtFixture(t, now)

			token := signStwt(t, "signup-secret")
			store.rows[token] = &SignupToken{
				ID:         uuid.New(),
				Token:      token,
				ConsumerID: consumerFor(tt.user),
			}

			if tt.user != nil {
				users.users[tt.user.ID] = tt.user
			}

			info, err := service.ProcessInfo(context.Background(), token)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, info)
		})
	}
}

func TestProcessInfoUnknownToken(t *testing.T) {
	service, _, _ := newStwtFixture(t, time.Now())

	_, err := service.ProcessInfo(context.Background(), "never-issued")
	assert.ErrorIs(t, err, ErrStwtNotFound)
}

func TestProcessInfoConsumerGone(t *testing.T) {
	now := time.Now()
	service, store, _ := newStwtFixture(t, now)

	ghost := uuid.New()
	token := signStwt(t, "signup-secret")
	store.rows[token] = &SignupToken{ID: uuid.New(), Token: token, ConsumerID: &ghost}

	info, err := service.ProcessInfo(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, SignupProcessUserNotCreated, info.Status)
}
