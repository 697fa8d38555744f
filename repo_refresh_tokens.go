package accounts

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

var clearSessionsSQL = `UPDATE "refresh_tokens" AS "rft"
SET
	"deleted_at" = ?
WHERE
	"rft"."deleted_at" IS NULL
AND (
	"rft"."user_id" = ?
) RETURNING *;`

// RefreshTokens tracks issued refresh tokens as session rows. Invalidation
// is always a soft delete so old sessions stay visible for audit.
type RefreshTokens interface {
	repository.Repository[*RefreshToken]

	Record(ctx context.Context, userID uuid.UUID, token string) (*RefreshToken, error)
	RecordTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, token string) (*RefreshToken, error)
	FindActive(ctx context.Context, userID uuid.UUID, token string) (*RefreshToken, error)
	FindActiveTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, token string) (*RefreshToken, error)
	ClearForUser(ctx context.Context, userID uuid.UUID) error
	ClearForUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) error
}

type refreshTokens struct {
	repository.Repository[*RefreshToken]
	db *bun.DB
}

var (
	_ RefreshTokens                        = (*refreshTokens)(nil)
	_ repository.Repository[*RefreshToken] = (*refreshTokens)(nil)
)

func NewRefreshTokensRepository(db *bun.DB) RefreshTokens {
	repo := repository.NewRepository[*RefreshToken](db, repository.ModelHandlers[*RefreshToken]{
		NewRecord: func() *RefreshToken { return &RefreshToken{} },
		GetID: func(t *RefreshToken) uuid.UUID {
			if t == nil {
				return uuid.Nil
			}
			return t.ID
		},
		SetID: func(t *RefreshToken, id uuid.UUID) {
			if t != nil {
				t.ID = id
			}
		},
		GetIdentifier: func() string {
			return "token"
		},
	})

	return &refreshTokens{
		Repository: repo,
		db:         db,
	}
}

func (a *refreshTokens) Record(ctx context.Context, userID uuid.UUID, token string) (*RefreshToken, error) {
	return a.RecordTx(ctx, a.db, userID, token)
}

func (a *refreshTokens) RecordTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, token string) (*RefreshToken, error) {
	record := &RefreshToken{
		ID:     uuid.New(),
		UserID: userID,
		Token:  token,
	}
	return a.Repository.CreateTx(ctx, tx, record)
}

func (a *refreshTokens) FindActive(ctx context.Context, userID uuid.UUID, token string) (*RefreshToken, error) {
	return a.FindActiveTx(ctx, a.db, userID, token)
}

// FindActiveTx resolves a live session row by owner and token. Soft deleted
// rows are filtered by the model's deleted_at tag.
func (a *refreshTokens) FindActiveTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, token string) (*RefreshToken, error) {
	record := &RefreshToken{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.user_id = ?", userID).
		Where("?TableAlias.token = ?", token).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"user_id": userID.String(),
				})
		}
		return nil, err
	}

	return record, nil
}

func (a *refreshTokens) ClearForUser(ctx context.Context, userID uuid.UUID) error {
	return a.ClearForUserTx(ctx, a.db, userID)
}

// ClearForUserTx soft deletes every active session the user holds. Clearing
// a user with no active sessions is not an error.
func (a *refreshTokens) ClearForUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) error {
	_, err := a.Repository.RawTx(ctx, tx, clearSessionsSQL, time.Now(), userID.String())
	return err
}
