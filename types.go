package accounts

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Config holds account platform options. It is meant to be constructed once
// at process start from the environment and passed down; nothing in this
// package reads env vars directly.
type Config interface {
	GetAccessSigningKey() string
	GetRefreshSigningKey() string
	GetSignupTokenSigningKey() string
	GetAccessTokenTTL() time.Duration
	GetRefreshTokenTTL() time.Duration
	GetIssuer() string
	GetAudience() []string
	GetEnvironment() string
}

// Message is a notification dispatched to a user owned device
type Message struct {
	Body   string
	Target string
}

// Messenger delivers out-of-band messages (SMS, push) to users
type Messenger interface {
	Send(ctx context.Context, msg Message) error
}

// UserLoader is the minimal read surface services need to resolve users
type UserLoader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
}

// EnvProduction gates policies that only apply outside dev/test, like the
// verification resend throttle.
const EnvProduction = "production"

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] ACCOUNTS "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] ACCOUNTS "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] ACCOUNTS "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] ACCOUNTS "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
