package accounts

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"math/big"
	"strings"

	"github.com/goliatone/go-errors"
	"golang.org/x/crypto/pbkdf2"
)

// Envelope layout: salt(16) || iv(16) || ciphertext+tag. The key is derived
// per blob from the passphrase with PBKDF2 over the hex-encoded salt, so the
// same passphrase yields a different key for every encryption.
const (
	envelopeSaltLen   = 16
	envelopeNonceLen  = 16
	envelopeKeyLen    = 32
	envelopeKDFRounds = 10000

	// recoveryPassphraseWords at 7 bits per word gives 224 bits of entropy.
	recoveryPassphraseWords = 32
)

// Encrypt seals plaintext under a passphrase into a self-contained blob.
func Encrypt(plaintext []byte, passphrase string) ([]byte, error) {
	salt := make([]byte, envelopeSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to generate envelope salt")
	}

	iv := make([]byte, envelopeNonceLen)
	if _, err := rand.Read(iv); err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to generate envelope nonce")
	}

	aead, err := envelopeAEAD(passphrase, salt)
	if err != nil {
		return nil, err
	}

	blob := make([]byte, 0, envelopeSaltLen+envelopeNonceLen+len(plaintext)+aead.Overhead())
	blob = append(blob, salt...)
	blob = append(blob, iv...)
	blob = aead.Seal(blob, iv, plaintext, nil)

	return blob, nil
}

// Decrypt opens a blob produced by Encrypt. Any malformed input or tag
// mismatch comes back as ErrDecryptionFailed; no partial plaintext escapes.
func Decrypt(blob []byte, passphrase string) ([]byte, error) {
	if len(blob) < envelopeSaltLen+envelopeNonceLen {
		return nil, ErrDecryptionFailed
	}

	salt := blob[:envelopeSaltLen]
	iv := blob[envelopeSaltLen : envelopeSaltLen+envelopeNonceLen]
	ciphertext := blob[envelopeSaltLen+envelopeNonceLen:]

	aead, err := envelopeAEAD(passphrase, salt)
	if err != nil {
		return nil, err
	}

	plaintext, err := aead.Open(nil, iv, ciphertext, nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}

	return plaintext, nil
}

// deriveKey stretches a passphrase into an AES-256 key. The salt goes into
// the KDF hex-encoded, matching the stored blob format.
func deriveKey(passphrase string, salt []byte) []byte {
	saltHex := hex.EncodeToString(salt)
	return pbkdf2.Key([]byte(passphrase), []byte(saltHex), envelopeKDFRounds, envelopeKeyLen, sha256.New)
}

func envelopeAEAD(passphrase string, salt []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(deriveKey(passphrase, salt))
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to initialize cipher")
	}

	aead, err := cipher.NewGCMWithNonceSize(block, envelopeNonceLen)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to initialize aead")
	}

	return aead, nil
}

// CreatePrivateKey returns a random hex string of the given character
// length. Used for user master data-keys.
func CreatePrivateKey(length int) (string, error) {
	if length <= 0 || length%2 != 0 {
		return "", errors.New("key length must be a positive even number", errors.CategoryBadInput)
	}

	raw := make([]byte, length/2)
	if _, err := rand.Read(raw); err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to generate private key")
	}

	return hex.EncodeToString(raw), nil
}

// CreatePassphrase builds a human-transcribable recovery passphrase from
// randomly sampled words.
func CreatePassphrase(words int) (string, error) {
	if words <= 0 {
		return "", errors.New("passphrase length must be positive", errors.CategoryBadInput)
	}

	picked := make([]string, words)
	limit := big.NewInt(int64(len(passphraseWords)))
	for i := range picked {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", errors.Wrap(err, errors.CategoryInternal, "failed to generate passphrase")
		}
		picked[i] = passphraseWords[n.Int64()]
	}

	return strings.Join(picked, " "), nil
}

// EncryptionKit is the material produced for a new account: the profile rows
// to persist and the recovery passphrase to hand to the user exactly once.
type EncryptionKit struct {
	UserKey     []byte
	RecoveryKey []byte
	Passphrase  string
}

// CreateEncryptionProfile generates a fresh master data-key and wraps it
// twice, once under the account password and once under a new recovery
// passphrase. Neither the master key nor the passphrase is stored.
func CreateEncryptionProfile(password string) (*EncryptionKit, error) {
	masterKey, err := CreatePrivateKey(64)
	if err != nil {
		return nil, err
	}

	passphrase, err := CreatePassphrase(recoveryPassphraseWords)
	if err != nil {
		return nil, err
	}

	userKey, err := Encrypt([]byte(masterKey), password)
	if err != nil {
		return nil, err
	}

	recoveryKey, err := Encrypt([]byte(masterKey), passphrase)
	if err != nil {
		return nil, err
	}

	return &EncryptionKit{
		UserKey:     userKey,
		RecoveryKey: recoveryKey,
		Passphrase:  passphrase,
	}, nil
}

var passphraseWords = []string{
	"acorn", "amber", "anchor", "apple", "arrow", "aspen", "atlas", "autumn",
	"badge", "bamboo", "basil", "beacon", "birch", "bloom", "bluff", "breeze",
	"brook", "bridge", "camp", "canyon", "cedar", "cliff", "clover", "coral",
	"cove", "crane", "creek", "crest", "dawn", "delta", "drift", "dune",
	"eagle", "ember", "fable", "falcon", "fern", "field", "flint", "forest",
	"fox", "frost", "garden", "glade", "glen", "grove", "harbor", "hazel",
	"heron", "hill", "holly", "horizon", "island", "ivory", "ivy", "jade",
	"juniper", "lagoon", "lake", "lantern", "laurel", "ledge", "lily", "linden",
	"lunar", "maple", "marble", "meadow", "mesa", "mist", "moss", "night",
	"north", "oak", "ocean", "olive", "onyx", "opal", "orchard", "osprey",
	"otter", "peak", "pebble", "pine", "plume", "pond", "prairie", "quartz",
	"quill", "rain", "raven", "reef", "ridge", "river", "robin", "rowan",
	"sage", "sand", "sequoia", "shade", "shore", "sierra", "sky", "slate",
	"snow", "solar", "sparrow", "spring", "spruce", "star", "stone", "storm",
	"summit", "sun", "swan", "thicket", "thistle", "tide", "timber", "trail",
	"tulip", "vale", "violet", "wave", "willow", "wind", "winter", "wren",
}
