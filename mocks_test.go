package accounts_test

import (
	"context"
	"sync"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	accounts "github.com/helion-health/go-accounts"
)

type testConfig struct {
	accessTTL  time.Duration
	refreshTTL time.Duration
	env        string
}

func (c testConfig) GetAccessSigningKey() string      { return "access-secret" }
func (c testConfig) GetRefreshSigningKey() string     { return "refresh-secret" }
func (c testConfig) GetSignupTokenSigningKey() string { return "signup-secret" }
func (c testConfig) GetIssuer() string                { return "accounts-test" }
func (c testConfig) GetAudience() []string            { return []string{"api"} }

func (c testConfig) GetAccessTokenTTL() time.Duration {
	if c.accessTTL == 0 {
		return 15 * time.Minute
	}
	return c.accessTTL
}

func (c testConfig) GetRefreshTokenTTL() time.Duration {
	if c.refreshTTL == 0 {
		return 24 * time.Hour
	}
	return c.refreshTTL
}

func (c testConfig) GetEnvironment() string {
	if c.env == "" {
		return "test"
	}
	return c.env
}

func notFoundErr() error {
	return repository.NewRecordNotFound()
}

// memSessionStore is an in-memory RefreshTokenStore
type memSessionStore struct {
	mu        sync.Mutex
	rows      []*accounts.RefreshToken
	recordErr error
	clearErr  error
}

func (m *memSessionStore) Record(ctx context.Context, userID uuid.UUID, token string) (*accounts.RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.recordErr != nil {
		return nil, m.recordErr
	}

	row := &accounts.RefreshToken{
		ID:     uuid.New(),
		UserID: userID,
		Token:  token,
	}
	m.rows = append(m.rows, row)
	return row, nil
}

func (m *memSessionStore) FindActive(ctx context.Context, userID uuid.UUID, token string) (*accounts.RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, row := range m.rows {
		if row.UserID == userID && row.Token == token && row.Active() {
			return row, nil
		}
	}
	return nil, notFoundErr()
}

func (m *memSessionStore) ClearForUser(ctx context.Context, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.clearErr != nil {
		return m.clearErr
	}

	now := time.Now()
	for _, row := range m.rows {
		if row.UserID == userID && row.Active() {
			row.DeletedAt = &now
		}
	}
	return nil
}

func (m *memSessionStore) activeCount(userID uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for _, row := range m.rows {
		if row.UserID == userID && row.Active() {
			count++
		}
	}
	return count
}

// memUserLoader resolves users from a fixed set
type memUserLoader struct {
	users map[uuid.UUID]*accounts.User
}

func (m *memUserLoader) GetByID(ctx context.Context, id uuid.UUID) (*accounts.User, error) {
	if user, ok := m.users[id]; ok {
		return user, nil
	}
	return nil, notFoundErr()
}
