package accounts

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// RepositoryManager exposes all repositories
type RepositoryManager interface {
	repository.Validator
	repository.TransactionManager
	Users() Users
	RefreshTokens() RefreshTokens
	SignupTokens() SignupTokens
	Profiles() repository.Repository[*Profile]
	Admins() repository.Repository[*Admin]
	EncryptionProfiles() repository.Repository[*EncryptionProfile]
}

func NewProfilesRepository(db *bun.DB) repository.Repository[*Profile] {
	handlers := repository.ModelHandlers[*Profile]{
		NewRecord: func() *Profile {
			return &Profile{}
		},
		GetID: func(record *Profile) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return record.ID
		},
		SetID: func(record *Profile, id uuid.UUID) {
			record.ID = id
		},
		GetIdentifier: func() string {
			return "user_id"
		},
	}
	return repository.NewRepository(db, handlers)
}

func NewAdminsRepository(db *bun.DB) repository.Repository[*Admin] {
	handlers := repository.ModelHandlers[*Admin]{
		NewRecord: func() *Admin {
			return &Admin{}
		},
		GetID: func(record *Admin) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return record.ID
		},
		SetID: func(record *Admin, id uuid.UUID) {
			record.ID = id
		},
		GetIdentifier: func() string {
			return "user_id"
		},
	}
	return repository.NewRepository(db, handlers)
}

func NewEncryptionProfilesRepository(db *bun.DB) repository.Repository[*EncryptionProfile] {
	handlers := repository.ModelHandlers[*EncryptionProfile]{
		NewRecord: func() *EncryptionProfile {
			return &EncryptionProfile{}
		},
		GetID: func(record *EncryptionProfile) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return record.ID
		},
		SetID: func(record *EncryptionProfile, id uuid.UUID) {
			record.ID = id
		},
		GetIdentifier: func() string {
			return "user_id"
		},
	}
	return repository.NewRepository(db, handlers)
}

type mngr struct {
	db                 *bun.DB
	users              Users
	refreshTokens      RefreshTokens
	signupTokens       SignupTokens
	profiles           repository.Repository[*Profile]
	admins             repository.Repository[*Admin]
	encryptionProfiles repository.Repository[*EncryptionProfile]
}

func NewRepositoryManager(db *bun.DB) RepositoryManager {
	return &mngr{
		db:                 db,
		users:              NewUsersRepository(db),
		refreshTokens:      NewRefreshTokensRepository(db),
		signupTokens:       NewSignupTokensRepository(db),
		profiles:           NewProfilesRepository(db),
		admins:             NewAdminsRepository(db),
		encryptionProfiles: NewEncryptionProfilesRepository(db),
	}
}

func (m mngr) Validate() error {
	if m.users == nil {
		return errors.New("repository users should be initialized")
	}

	if m.refreshTokens == nil {
		return errors.New("repository refreshTokens should be initialized")
	}

	if m.signupTokens == nil {
		return errors.New("repository signupTokens should be initialized")
	}

	if m.profiles == nil {
		return errors.New("repository profiles should be initialized")
	}

	if m.admins == nil {
		return errors.New("repository admins should be initialized")
	}

	if m.encryptionProfiles == nil {
		return errors.New("repository encryptionProfiles should be initialized")
	}

	return nil
}

func (m mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

func (m mngr) Users() Users {
	return m.users
}

func (m mngr) RefreshTokens() RefreshTokens {
	return m.refreshTokens
}

func (m mngr) SignupTokens() SignupTokens {
	return m.signupTokens
}

func (m mngr) Profiles() repository.Repository[*Profile] {
	return m.profiles
}

func (m mngr) Admins() repository.Repository[*Admin] {
	return m.admins
}

func (m mngr) EncryptionProfiles() repository.Repository[*EncryptionProfile] {
	return m.encryptionProfiles
}
