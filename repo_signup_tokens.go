package accounts

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

var consumeSignupTokenSQL = `UPDATE "signup_tokens" AS "swt"
SET
	"consumer_id" = ?,
	"expires_at" = ?
WHERE
	"swt"."token" = ?
AND "swt"."consumer_id" IS NULL
RETURNING *;`

// SignupTokens stores single-use invitation tokens
type SignupTokens interface {
	repository.Repository[*SignupToken]

	FindByToken(ctx context.Context, token string) (*SignupToken, error)
	FindByTokenTx(ctx context.Context, tx bun.IDB, token string) (*SignupToken, error)
	Consume(ctx context.Context, token string, consumerID uuid.UUID, expiresAt time.Time) (*SignupToken, error)
	ConsumeTx(ctx context.Context, tx bun.IDB, token string, consumerID uuid.UUID, expiresAt time.Time) (*SignupToken, error)
}

type signupTokens struct {
	repository.Repository[*SignupToken]
	db *bun.DB
}

var (
	_ SignupTokens                        = (*signupTokens)(nil)
	_ repository.Repository[*SignupToken] = (*signupTokens)(nil)
)

func NewSignupTokensRepository(db *bun.DB) SignupTokens {
	repo := repository.NewRepository[*SignupToken](db, repository.ModelHandlers[*SignupToken]{
		NewRecord: func() *SignupToken { return &SignupToken{} },
		GetID: func(t *SignupToken) uuid.UUID {
			if t == nil {
				return uuid.Nil
			}
			return t.ID
		},
		SetID: func(t *SignupToken, id uuid.UUID) {
			if t != nil {
				t.ID = id
			}
		},
		GetIdentifier: func() string {
			return "token"
		},
	})

	return &signupTokens{
		Repository: repo,
		db:         db,
	}
}

func (a *signupTokens) FindByToken(ctx context.Context, token string) (*SignupToken, error) {
	return a.FindByTokenTx(ctx, a.db, token)
}

func (a *signupTokens) FindByTokenTx(ctx context.Context, tx bun.IDB, token string) (*SignupToken, error) {
	record := &SignupToken{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.token = ?", token).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"token": token,
				})
		}
		return nil, err
	}

	return record, nil
}

func (a *signupTokens) Consume(ctx context.Context, token string, consumerID uuid.UUID, expiresAt time.Time) (*SignupToken, error) {
	return a.ConsumeTx(ctx, a.db, token, consumerID, expiresAt)
}

// ConsumeTx stamps the consumer on an unconsumed row. The consumer_id guard
// in the statement makes double consumption surface as not found.
func (a *signupTokens) ConsumeTx(ctx context.Context, tx bun.IDB, token string, consumerID uuid.UUID, expiresAt time.Time) (*SignupToken, error) {
	res, err := a.Repository.RawTx(ctx, tx, consumeSignupTokenSQL, consumerID.String(), expiresAt, token)
	if err != nil {
		return nil, err
	}

	if len(res) == 0 {
		return nil, repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"token": token,
			})
	}

	return res[0], nil
}
