// Package accounts provides the account platform primitives: password
// credentials, dual-secret JWT pairs, stored refresh sessions with a redis
// denylist, phone verification, single-use signup invitations, and envelope
// encryption for user data recovery.
//
// Credentials:
//   - Passwords and verification codes are hashed with scrypt and stored as
//     salt:key hex pairs. Comparison is constant time and never reports why
//     a credential failed.
//
// Sessions:
//   - TokenService signs access/refresh pairs with separate secrets and
//     lifetimes; every issued refresh token is persisted as a session row.
//   - SessionManager handles logout (session rows soft deleted, access token
//     denylisted for its remaining life) and refresh rotation, which consumes
//     the presented token before issuing a new pair.
//
// Signup invitations:
//   - SignupTokenService validates invitation tokens against both a JWT
//     signature and a single-use storage row, and reports signup progress
//     for the inviter.
//
// Envelope encryption:
//   - Each account gets a random master data-key wrapped twice: under the
//     password and under a generated recovery passphrase handed to the user
//     exactly once at signup.
package accounts
