package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront-backend/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Name: "storefront-test"},
		JWT: config.JWTConfig{
			Secret:             "0123456789abcdef0123456789abcdef",
			AccessTokenExpiry:  15 * time.Minute,
			RefreshTokenExpiry: time.Hour,
		},
		Security: config.SecurityConfig{BcryptCost: 4},
	}
}

func TestIssueAndValidatePair(t *testing.T) {
	jm := NewJWTManager(testConfig())

	pair, err := jm.IssuePair(7, "ada@example.com", true)
	require.NoError(t, err)
	assert.Equal(t, int64(900), pair.ExpiresIn)

	claims, err := jm.ValidateAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)
	assert.True(t, claims.IsAdmin)

	refresh, err := jm.ValidateRefreshToken(pair.RefreshToken)
	require.NoError(t, err)
	assert.False(t, refresh.IsAdmin)

	_, err = jm.ValidateAccessToken(pair.RefreshToken)
	assert.ErrorIs(t, err, ErrWrongTokenType)
}

func TestExpiredTokenRejected(t *testing.T) {
	jm := NewJWTManager(testConfig())
	jm.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	token, err := jm.GenerateAccessToken(1, "old@example.com", false)
	require.NoError(t, err)

	jm.now = time.Now
	_, err = jm.ValidateAccessToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestForeignSecretRejected(t *testing.T) {
	other := testConfig()
	other.JWT.Secret = "ffffffffffffffffffffffffffffffff"

	token, err := NewJWTManager(other).GenerateAccessToken(1, "x@example.com", false)
	require.NoError(t, err)

	_, err = NewJWTManager(testConfig()).ValidateAccessToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestExtractTokenFromHeader(t *testing.T) {
	assert.Equal(t, "abc", ExtractTokenFromHeader("Bearer abc"))
	assert.Equal(t, "", ExtractTokenFromHeader("Basic abc"))
	assert.Equal(t, "", ExtractTokenFromHeader(""))
}

func TestPasswordRoundTrip(t *testing.T) {
	pm := NewPasswordManager(testConfig())

	hash, err := pm.HashPassword("Tr0ubadorHorse")
	require.NoError(t, err)
	assert.NoError(t, pm.VerifyPassword("Tr0ubadorHorse", hash))
	assert.Error(t, pm.VerifyPassword("tr0ubadorhorse", hash))
}

func TestPasswordStrength(t *testing.T) {
	pm := NewPasswordManager(testConfig())

	for _, weak := range []string{"short1A", "alllowercase1", "NoDigitsHere", "MyPassword1"} {
		assert.Error(t, pm.ValidatePassword(weak), weak)
	}
}

func TestRandomToken(t *testing.T) {
	a, err := RandomToken(16)
	require.NoError(t, err)
	b, err := RandomToken(16)
	require.NoError(t, err)

	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)
}
