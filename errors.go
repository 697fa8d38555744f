package accounts

import (
	"net/http"
	"strings"

	"github.com/goliatone/go-errors"
)

// Machine-readable kinds. These are what clients branch on; transport status
// codes are attached per error and mapped at the HTTP boundary.
const (
	TextCodeUserNotFound            = "USER_NOT_FOUND"
	TextCodeProfileNotFound         = "PROFILE_NOT_FOUND"
	TextCodeDuplicateEmail          = "DUPLICATE_EMAIL"
	TextCodeInvalidCredentials      = "INVALID_CREDENTIALS"
	TextCodeSocialOnlyAccount       = "SOCIAL_ONLY_ACCOUNT"
	TextCodeInvalidSignupToken      = "INVALID_SIGNUP_TOKEN"
	TextCodeStwtNotFound            = "STWT_NOT_FOUND"
	TextCodeMissingRefreshToken     = "MISSING_REFRESH_TOKEN"
	TextCodeInvalidRefreshToken     = "INVALID_REFRESH_TOKEN"
	TextCodeLogoutFailed            = "LOGOUT_FAILED"
	TextCodeAlreadyVerified         = "ALREADY_VERIFIED"
	TextCodeTooManyRequests         = "TOO_MANY_REQUESTS"
	TextCodeDispatchFailed          = "VERIFICATION_DISPATCH_FAILED"
	TextCodeMissingCode             = "MISSING_VERIFICATION_CODE"
	TextCodeNoPendingCode           = "NO_PENDING_CODE"
	TextCodeCodeExpired             = "VERIFICATION_CODE_EXPIRED"
	TextCodeInvalidCode             = "INVALID_VERIFICATION_CODE"
	TextCodeInvalidCredentialFormat = "INVALID_CREDENTIAL_FORMAT"
	TextCodeDecryptionFailed        = "DECRYPTION_FAILED"
)

// ErrUserNotFound is returned when no user matches the given identifier.
var ErrUserNotFound = errors.New("user not found", errors.CategoryNotFound).
	WithTextCode(TextCodeUserNotFound).
	WithCode(errors.CodeNotFound)

// ErrProfileNotFound is returned when a user has no profile relation yet.
var ErrProfileNotFound = errors.New("there is no profile for this user", errors.CategoryNotFound).
	WithTextCode(TextCodeProfileNotFound).
	WithCode(errors.CodeNotFound)

// ErrDuplicateEmail is returned when a signup collides with an existing email.
var ErrDuplicateEmail = errors.New("email already exists", errors.CategoryConflict).
	WithTextCode(TextCodeDuplicateEmail).
	WithCode(errors.CodeConflict)

// ErrInvalidCredentials covers wrong password AND wrong expected account
// type. Deliberately coarse so responses do not leak account existence.
var ErrInvalidCredentials = errors.New("invalid credentials", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(errors.CodeUnauthorized)

// ErrSocialOnlyAccount is returned when a password signin hits an account
// that has no password credential.
var ErrSocialOnlyAccount = errors.New("this account was created with a social login provider", errors.CategoryAuth).
	WithTextCode(TextCodeSocialOnlyAccount).
	WithCode(errors.CodeForbidden)

// ErrInvalidSignupToken is returned when an invitation token is absent,
// already consumed, or past expiry.
var ErrInvalidSignupToken = errors.New("invalid signup token", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidSignupToken).
	WithCode(errors.CodeUnauthorized)

// ErrStwtNotFound is returned by the signup process projection when no row
// matches the token at all.
var ErrStwtNotFound = errors.New("signup token not found", errors.CategoryNotFound).
	WithTextCode(TextCodeStwtNotFound).
	WithCode(errors.CodeNotFound)

// ErrMissingRefreshToken is returned when the refresh request omits the token.
var ErrMissingRefreshToken = errors.New("please provide a refresh token", errors.CategoryAuth).
	WithTextCode(TextCodeMissingRefreshToken).
	WithCode(errors.CodeUnauthorized)

// ErrInvalidRefreshToken is returned when the refresh token fails signature
// checks or no matching live session row exists (rotation consumed it).
var ErrInvalidRefreshToken = errors.New("invalid refresh token, cannot renew access token", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidRefreshToken).
	WithCode(errors.CodeUnauthorized)

// ErrLogoutFailed is returned when the denylist write fails. The refresh
// rows are already invalidated at that point; the access token stays valid
// until natural expiry.
var ErrLogoutFailed = errors.New("logout failed, access token could not be revoked", errors.CategoryInternal).
	WithTextCode(TextCodeLogoutFailed).
	WithCode(errors.CodeInternal)

// ErrAlreadyVerified is returned for verification calls on verified users.
var ErrAlreadyVerified = errors.New("user already verified", errors.CategoryValidation).
	WithTextCode(TextCodeAlreadyVerified).
	WithCode(errors.CodeBadRequest)

// ErrTooManyRequests is returned when codes are requested inside the resend
// window. Enforced only in production environments.
var ErrTooManyRequests = errors.New("too many verification requests", errors.CategoryOperation).
	WithTextCode(TextCodeTooManyRequests).
	WithCode(http.StatusTooManyRequests)

// ErrMissingVerificationCode is returned when the confirm payload has no code.
var ErrMissingVerificationCode = errors.New("verification code is required", errors.CategoryBadInput).
	WithTextCode(TextCodeMissingCode).
	WithCode(errors.CodeBadRequest)

// ErrNoPendingCode is returned when confirming while no code is outstanding.
var ErrNoPendingCode = errors.New("user verification token not found", errors.CategoryValidation).
	WithTextCode(TextCodeNoPendingCode).
	WithCode(errors.CodeBadRequest)

// ErrVerificationCodeExpired is returned when the pending code outlived its window.
var ErrVerificationCodeExpired = errors.New("verification code expired", errors.CategoryValidation).
	WithTextCode(TextCodeCodeExpired).
	WithCode(errors.CodeBadRequest)

// ErrInvalidVerificationCode is returned when the code hash comparison fails.
var ErrInvalidVerificationCode = errors.New("invalid verification code", errors.CategoryValidation).
	WithTextCode(TextCodeInvalidCode).
	WithCode(errors.CodeBadRequest)

// ErrInvalidCredentialFormat is returned when a stored credential cannot be
// split into its salt and derived key parts.
var ErrInvalidCredentialFormat = errors.New("invalid credential encoding", errors.CategoryInternal).
	WithTextCode(TextCodeInvalidCredentialFormat).
	WithCode(errors.CodeInternal)

// ErrDecryptionFailed is returned on AEAD tag mismatch or malformed blobs.
// Decrypt must never return garbage plaintext.
var ErrDecryptionFailed = errors.New("decryption failed", errors.CategoryInternal).
	WithTextCode(TextCodeDecryptionFailed).
	WithCode(errors.CodeInternal)

// ErrEmptySecret is returned when hashing an empty plaintext.
var ErrEmptySecret = errors.New("secret must not be empty", errors.CategoryBadInput).
	WithTextCode("EMPTY_SECRET").
	WithCode(errors.CodeBadRequest)

// IsUniqueViolation sniffs driver-level unique constraint errors. Both the
// sqlite and postgres drivers only expose these through the message.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}
