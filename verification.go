package accounts

import (
	"context"
	"fmt"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/nyaruka/phonenumbers"
)

const (
	verificationCodeDigits   = 6
	verificationCodeLifetime = 5 * time.Minute
	verificationResendWindow = 60 * time.Second
)

// VerificationStore is the persistence surface for verification state
type VerificationStore interface {
	SetVerificationCode(ctx context.Context, id uuid.UUID, codeHash string, at time.Time) error
	MarkVerified(ctx context.Context, id uuid.UUID) error
}

// VerificationFlow drives phone verification: short numeric codes delivered
// out of band, stored only as credential hashes, confirmed within a small
// window. Verification is terminal; a verified user never re-enters it.
type VerificationFlow struct {
	store         VerificationStore
	messenger     Messenger
	environment   string
	defaultRegion string
	logger        Logger
	now           func() time.Time
}

type VerificationOption func(*VerificationFlow)

func WithVerificationLogger(logger Logger) VerificationOption {
	return func(v *VerificationFlow) {
		if logger != nil {
			v.logger = logger
		}
	}
}

// WithDefaultRegion sets the region used to parse phone numbers that carry
// no country prefix
func WithDefaultRegion(region string) VerificationOption {
	return func(v *VerificationFlow) {
		if region != "" {
			v.defaultRegion = region
		}
	}
}

func withVerificationClock(now func() time.Time) VerificationOption {
	return func(v *VerificationFlow) {
		v.now = now
	}
}

func NewVerificationFlow(store VerificationStore, messenger Messenger, environment string, opts ...VerificationOption) *VerificationFlow {
	flow := &VerificationFlow{
		store:         store,
		messenger:     messenger,
		environment:   environment,
		defaultRegion: "FR",
		logger:        defLogger{},
		now:           time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(flow)
		}
	}

	return flow
}

// RequestCode generates a fresh code, persists its hash, and dispatches it
// to the user's phone. The resend throttle only applies in production so
// tests and local runs can hammer the endpoint. A dispatch failure does not
// roll the stored code back but still fails the call; the user recovers by
// requesting again.
func (v *VerificationFlow) RequestCode(ctx context.Context, user *User) error {
	if user.Verified {
		return ErrAlreadyVerified
	}

	now := v.now()
	if v.environment == EnvProduction && user.LastVerificationRequest != nil {
		if now.Sub(*user.LastVerificationRequest) < verificationResendWindow {
			return ErrTooManyRequests
		}
	}

	code, err := GenerateNumericCode(verificationCodeDigits)
	if err != nil {
		return err
	}

	codeHash, err := HashSecret(code)
	if err != nil {
		return err
	}

	if err := v.store.SetVerificationCode(ctx, user.ID, codeHash, now); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to store verification code")
	}

	target := v.normalizeTarget(user.Phone)
	msg := Message{
		Body:   fmt.Sprintf("Your verification code is %s", code),
		Target: target,
	}

	if err := v.messenger.Send(ctx, msg); err != nil {
		v.logger.Error("VerificationFlow failed to dispatch code to user %s: %v", user.ID, err)
		return errors.Wrap(err, errors.CategoryOperation, "failed to dispatch verification code").
			WithTextCode(TextCodeDispatchFailed).
			WithCode(errors.CodeInternal)
	}

	return nil
}

// ConfirmCode checks a submitted code against the pending hash and, on
// success, flips the user to verified and clears the pending state
func (v *VerificationFlow) ConfirmCode(ctx context.Context, user *User, code string) error {
	if code == "" {
		return ErrMissingVerificationCode
	}

	if user.Verified {
		return ErrAlreadyVerified
	}

	if !user.HasPendingCode() {
		return ErrNoPendingCode
	}

	if v.now().Sub(*user.LastVerificationRequest) > verificationCodeLifetime {
		return ErrVerificationCodeExpired
	}

	match, err := CompareSecret(code, *user.VerificationToken)
	if err != nil {
		return err
	}

	if !match {
		return ErrInvalidVerificationCode
	}

	if err := v.store.MarkVerified(ctx, user.ID); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to mark user verified")
	}

	return nil
}

// normalizeTarget formats the phone in E.164 when it parses, otherwise the
// raw value goes through and the carrier gets to complain
func (v *VerificationFlow) normalizeTarget(phone string) string {
	parsed, err := phonenumbers.Parse(phone, v.defaultRegion)
	if err != nil {
		v.logger.Warn("VerificationFlow could not parse phone number: %v", err)
		return phone
	}
	return phonenumbers.Format(parsed, phonenumbers.E164)
}
