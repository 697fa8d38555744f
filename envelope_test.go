package accounts_test

import (
	"strings"
	"testing"

	accounts "github.com/helion-health/go-accounts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecrypt(t *testing.T) {
	plaintext := []byte("the user master data key")

	blob, err := accounts.Encrypt(plaintext, "a strong passphrase")
	require.NoError(t, err)
	assert.Greater(t, len(blob), 32)

	decrypted, err := accounts.Decrypt(blob, "a strong passphrase")
	require.NoError(t, err)
	assert.Equal(t, plaintext, decrypted)
}

func TestEncryptProducesDistinctBlobs(t *testing.T) {
	plaintext := []byte("same plaintext")

	first, err := accounts.Encrypt(plaintext, "passphrase")
	require.NoError(t, err)

	second, err := accounts.Encrypt(plaintext, "passphrase")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestDecryptFailures(t *testing.T) {
	blob, err := accounts.Encrypt([]byte("payload"), "correct")
	require.NoError(t, err)

	tests := []struct {
		name       string
		blob       []byte
		passphrase string
	}{
		{
			name:       "Wrong passphrase",
			blob:       blob,
			passphrase: "incorrect",
		},
		{
			name:       "Truncated blob",
			blob:       blob[:16],
			passphrase: "correct",
		},
		{
			name:       "Empty blob",
			blob:       nil,
			passphrase: "correct",
		},
		{
			name: "Tampered ciphertext",
			blob: func() []byte {
				tampered := make([]byte, len(blob))
				copy(tampered, blob)
				tampered[len(tampered)-1] ^= 0xff
				return tampered
			}(),
			passphrase: "correct",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plaintext, err := accounts.Decrypt(tt.blob, tt.passphrase)
			assert.ErrorIs(t, err, accounts.ErrDecryptionFailed)
			assert.Nil(t, plaintext)
		})
	}
}

func TestCreatePrivateKey(t *testing.T) {
	key, err := accounts.CreatePrivateKey(64)
	require.NoError(t, err)
	assert.Len(t, key, 64)

	other, err := accounts.CreatePrivateKey(64)
	require.NoError(t, err)
	assert.NotEqual(t, key, other)

	_, err = accounts.CreatePrivateKey(0)
	assert.Error(t, err)

	_, err = accounts.CreatePrivateKey(7)
	assert.Error(t, err)
}

func TestCreatePassphrase(t *testing.T) {
	passphrase, err := accounts.CreatePassphrase(6)
	require.NoError(t, err)
	assert.Len(t, strings.Fields(passphrase), 6)

	_, err = accounts.CreatePassphrase(0)
	assert.Error(t, err)
}

func TestCreateEncryptionProfile(t *testing.T) {
	kit, err := accounts.CreateEncryptionProfile("signup password")
	require.NoError(t, err)
	require.NotNil(t, kit)

	assert.Len(t, strings.Fields(kit.Passphrase), 32)
	assert.NotEmpty(t, kit.UserKey)
	assert.NotEmpty(t, kit.RecoveryKey)

	// Both wrappings must open onto the same master key.
	fromPassword, err := accounts.Decrypt(kit.UserKey, "signup password")
	require.NoError(t, err)

	fromPassphrase, err := accounts.Decrypt(kit.RecoveryKey, kit.Passphrase)
	require.NoError(t, err)

	assert.Equal(t, fromPassword, fromPassphrase)
	assert.Len(t, fromPassword, 64)

	_, err = accounts.Decrypt(kit.RecoveryKey, "signup password")
	assert.ErrorIs(t, err, accounts.ErrDecryptionFailed)
}
