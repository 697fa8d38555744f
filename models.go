package accounts

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UserType is the account type a user signs up or signs in as
type UserType = string

const (
	// UserTypeClient is the default account type
	UserTypeClient UserType = "CLIENT"
	// UserTypeAdmin is granted only through a signup invitation token
	UserTypeAdmin UserType = "ADMIN"
)

// UserStatus tracks how far along the account setup is
type UserStatus = string

const (
	// UserStatusPending means the account exists but the profile is incomplete
	UserStatusPending UserStatus = "PROFILE_PENDING"
	// UserStatusActive is a fully set up account
	UserStatusActive UserStatus = "ACTIVE"
)

// User is the user model
type User struct {
	bun.BaseModel           `bun:"table:users,alias:usr"`
	ID                      uuid.UUID          `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Type                    UserType           `bun:"type,notnull" json:"type,omitempty"`
	Status                  UserStatus         `bun:"status,notnull" json:"status,omitempty"`
	Email                   string             `bun:"email,notnull,unique" json:"email,omitempty"`
	Phone                   string             `bun:"phone_number" json:"phone_number,omitempty"`
	PasswordHash            string             `bun:"password_hash" json:"password_hash,omitempty"`
	Verified                bool               `bun:"verified" json:"verified,omitempty"`
	VerificationToken       *string            `bun:"verification_token,nullzero" json:"verification_token,omitempty"`
	LastVerificationRequest *time.Time         `bun:"last_verification_request,nullzero" json:"last_verification_request,omitempty"`
	Completed               bool               `bun:"completed" json:"completed,omitempty"`
	Profile                 *Profile           `bun:"rel:has-one,join:id=user_id" json:"profile,omitempty"`
	Admin                   *Admin             `bun:"rel:has-one,join:id=user_id" json:"admin,omitempty"`
	EncryptionProfile       *EncryptionProfile `bun:"rel:has-one,join:id=user_id" json:"encryption_profile,omitempty"`
	RefreshTokens           []*RefreshToken    `bun:"rel:has-many,join:id=user_id" json:"refresh_tokens,omitempty"`
	CreatedAt               *time.Time         `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt               *time.Time         `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt               *time.Time         `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// HasPendingCode reports whether a verification code is outstanding.
// Invariant: a non-nil VerificationToken implies Verified is false.
func (u *User) HasPendingCode() bool {
	return !u.Verified && u.VerificationToken != nil && u.LastVerificationRequest != nil
}

// EnsureDefaults fills the type and status for freshly created records
func (u *User) EnsureDefaults() {
	if u.Type == "" {
		u.Type = UserTypeClient
	}
	if u.Status == "" {
		u.Status = UserStatusPending
	}
}

// Profile holds the personal information collected after verification
type Profile struct {
	bun.BaseModel  `bun:"table:profiles,alias:prf"`
	ID             uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserID         uuid.UUID  `bun:"user_id,notnull,type:uuid" json:"user_id,omitempty"`
	FirstName      string     `bun:"first_name,notnull" json:"first_name,omitempty"`
	LastName       string     `bun:"last_name,notnull" json:"last_name,omitempty"`
	BirthName      string     `bun:"birth_name" json:"birth_name,omitempty"`
	BirthDate      *time.Time `bun:"birth_date,nullzero" json:"birth_date,omitempty"`
	BirthPlace     string     `bun:"birth_place" json:"birth_place,omitempty"`
	Address        string     `bun:"address" json:"address,omitempty"`
	AddressDetails string     `bun:"address_details" json:"address_details,omitempty"`
	CreatedAt      *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt      *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// Admin is the admin-side relation for users of type ADMIN
type Admin struct {
	bun.BaseModel `bun:"table:admins,alias:adm"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserID        uuid.UUID  `bun:"user_id,notnull,type:uuid" json:"user_id,omitempty"`
	Department    string     `bun:"department" json:"department,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// RefreshToken is a persisted session row. A user may hold several active
// rows (multi-device); invalidation only ever sets deleted_at.
type RefreshToken struct {
	bun.BaseModel `bun:"table:refresh_tokens,alias:rft"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Token         string     `bun:"token,notnull,unique" json:"token,omitempty"`
	UserID        uuid.UUID  `bun:"user_id,notnull,type:uuid" json:"user_id,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt     *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// Active reports whether the session row is still usable
func (t *RefreshToken) Active() bool {
	return t.DeletedAt == nil
}

// SignupToken is a single-use invitation token (STWT) that pre-assigns an
// account type. Unconsumed rows have both ConsumerID and ExpiresAt nil;
// consumption stamps both, with ExpiresAt pushed into a grace window so the
// row survives for audit before cleanup.
type SignupToken struct {
	bun.BaseModel `bun:"table:signup_tokens,alias:swt"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Token         string     `bun:"token,notnull,unique" json:"token,omitempty"`
	Type          UserType   `bun:"type,notnull" json:"type,omitempty"`
	ConsumerID    *uuid.UUID `bun:"consumer_id,nullzero,type:uuid" json:"consumer_id,omitempty"`
	ExpiresAt     *time.Time `bun:"expires_at,nullzero" json:"expires_at,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// Consumed reports whether the token has been used for an account creation
func (t *SignupToken) Consumed() bool {
	return t.ConsumerID != nil && t.ExpiresAt != nil
}

// ExpiredAt reports whether the token is past its expiry at the given time
func (t *SignupToken) ExpiredAt(now time.Time) bool {
	return t.ExpiresAt != nil && now.After(*t.ExpiresAt)
}

// EncryptionProfile stores the two wrappings of a user master data-key:
// one under the signup password, one under a generated recovery passphrase.
// The passphrase itself is never persisted.
type EncryptionProfile struct {
	bun.BaseModel `bun:"table:encryption_profiles,alias:enc"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserID        uuid.UUID  `bun:"user_id,notnull,type:uuid" json:"user_id,omitempty"`
	RecoveryKey   []byte     `bun:"recovery_key,notnull" json:"recovery_key,omitempty"`
	UserKey       []byte     `bun:"user_key,notnull" json:"user_key,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}
