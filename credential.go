package accounts

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/goliatone/go-errors"
	"golang.org/x/crypto/scrypt"
)

// scrypt parameters. Changing these invalidates every stored credential, so
// they are fixed rather than configurable.
const (
	scryptN      = 1 << 15
	scryptR      = 8
	scryptP      = 1
	scryptKeyLen = 64
	saltByteLen  = 16
)

// credentialSeparator joins the hex salt and hex derived key in storage.
const credentialSeparator = ":"

// HashSecret derives a storable credential from a plaintext secret. The
// output is "saltHex:keyHex"; the hex-encoded salt string is what feeds the
// KDF, so round-tripping through storage is loss free.
func HashSecret(secret string) (string, error) {
	if secret == "" {
		return "", ErrEmptySecret
	}

	salt := make([]byte, saltByteLen)
	if _, err := rand.Read(salt); err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to generate credential salt")
	}

	saltHex := hex.EncodeToString(salt)

	key, err := scrypt.Key([]byte(secret), []byte(saltHex), scryptN, scryptR, scryptP, scryptKeyLen)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to derive credential key")
	}

	return saltHex + credentialSeparator + hex.EncodeToString(key), nil
}

// CompareSecret checks a plaintext secret against a stored credential in
// constant time. A malformed credential is an error, not a mismatch.
func CompareSecret(secret, credential string) (bool, error) {
	saltHex, keyHex, found := strings.Cut(credential, credentialSeparator)
	if !found || saltHex == "" || keyHex == "" {
		return false, ErrInvalidCredentialFormat
	}

	storedKey, err := hex.DecodeString(keyHex)
	if err != nil {
		return false, ErrInvalidCredentialFormat
	}

	key, err := scrypt.Key([]byte(secret), []byte(saltHex), scryptN, scryptR, scryptP, scryptKeyLen)
	if err != nil {
		return false, errors.Wrap(err, errors.CategoryInternal, "failed to derive credential key")
	}

	if len(key) != len(storedKey) {
		return false, nil
	}

	return subtle.ConstantTimeCompare(key, storedKey) == 1, nil
}

// GenerateNumericCode returns a short numeric one-time code, zero padded to
// the requested number of digits.
func GenerateNumericCode(digits int) (string, error) {
	if digits <= 0 || digits > 18 {
		return "", errors.New("code length out of range", errors.CategoryBadInput)
	}

	max := uint64(1)
	for i := 0; i < digits; i++ {
		max *= 10
	}

	n, err := randUint64Below(max)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to generate code")
	}

	return fmt.Sprintf("%0*d", digits, n), nil
}

// randUint64Below samples uniformly in [0, max) using rejection sampling.
func randUint64Below(max uint64) (uint64, error) {
	limit := (^uint64(0) / max) * max
	buf := make([]byte, 8)
	for {
		if _, err := rand.Read(buf); err != nil {
			return 0, err
		}
		var n uint64
		for _, b := range buf {
			n = n<<8 | uint64(b)
		}
		if n < limit {
			return n % max, nil
		}
	}
}
