package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  error
	}{
		{name: "valid password", password: "catalogue-reader-1"},
		{name: "too short", password: "short", wantErr: ErrPasswordTooShort},
		{name: "minimum length", password: "123456789012"},
		{name: "too long", password: strings.Repeat("a", 73), wantErr: ErrPasswordTooLong},
		{name: "maximum length", password: strings.Repeat("a", 72)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := HashPassword(tt.password, 4)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, hash)
				return
			}
			require.NoError(t, err)
			assert.NotEqual(t, tt.password, hash)
		})
	}
}

func TestCheckPassword(t *testing.T) {
	hash, err := HashPassword("catalogue-reader-1", 4)
	require.NoError(t, err)

	assert.NoError(t, CheckPassword("catalogue-reader-1", hash))
	assert.ErrorIs(t, CheckPassword("catalogue-reader-2", hash), ErrInvalidPassword)
	assert.Error(t, CheckPassword("catalogue-reader-1", "not-a-bcrypt-hash"))
}

func TestGenerateSessionSecret(t *testing.T) {
	a, err := GenerateSessionSecret()
	require.NoError(t, err)
	b, err := GenerateSessionSecret()
	require.NoError(t, err)

	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
}
