package accounts_test

import (
	"strings"
	"testing"

	accounts "github.com/helion-health/go-accounts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashSecret(t *testing.T) {
	tests := []struct {
		name    string
		secret  string
		wantErr bool
	}{
		{
			name:    "Valid secret",
			secret:  "securePassword123!",
			wantErr: false,
		},
		{
			name:    "Empty secret",
			secret:  "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			credential, err := accounts.HashSecret(tt.secret)

			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			assert.NoError(t, err)
			assert.NotEmpty(t, credential)

			parts := strings.Split(credential, ":")
			require.Len(t, parts, 2)
			assert.Len(t, parts[0], 32)
			assert.Len(t, parts[1], 128)

			match, err := accounts.CompareSecret(tt.secret, credential)
			assert.NoError(t, err)
			assert.True(t, match)
		})
	}
}

func TestHashSecretUniqueSalts(t *testing.T) {
	first, err := accounts.HashSecret("same password")
	require.NoError(t, err)

	second, err := accounts.HashSecret("same password")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestCompareSecret(t *testing.T) {
	secret := "testPassword123!"
	credential, err := accounts.HashSecret(secret)
	require.NoError(t, err)

	tests := []struct {
		name       string
		secret     string
		credential string
		match      bool
		wantErr    bool
	}{
		{
			name:       "Matching secret",
			secret:     secret,
			credential: credential,
			match:      true,
		},
		{
			name:       "Wrong secret",
			secret:     "wrongPassword",
			credential: credential,
			match:      false,
		},
		{
			name:       "Missing separator",
			secret:     secret,
			credential: "invalidcredential",
			wantErr:    true,
		},
		{
			name:       "Empty salt part",
			secret:     secret,
			credential: ":deadbeef",
			wantErr:    true,
		},
		{
			name:       "Key part not hex",
			secret:     secret,
			credential: "abcdef:not-hex!",
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			match, err := accounts.CompareSecret(tt.secret, tt.credential)

			if tt.wantErr {
				assert.Error(t, err)
				assert.False(t, match)
				return
			}

			assert.NoError(t, err)
			assert.Equal(t, tt.match, match)
		})
	}
}

func TestGenerateNumericCode(t *testing.T) {
	code, err := accounts.GenerateNumericCode(6)
	assert.NoError(t, err)
	assert.Len(t, code, 6)

	for _, r := range code {
		assert.True(t, r >= '0' && r <= '9')
	}

	_, err = accounts.GenerateNumericCode(0)
	assert.Error(t, err)

	_, err = accounts.GenerateNumericCode(19)
	assert.Error(t, err)
}
