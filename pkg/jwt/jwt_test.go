package jwt

import (
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAccessSecret = "test-access-secret-key-for-testing-purposes"

func TestGenerateAndValidateAccessToken(t *testing.T) {
	service := NewService(testAccessSecret, time.Hour)
	userID := uuid.NewString()

	token, err := service.GenerateAccessToken(userID, "0911234567", []string{"passenger"})
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	claims, err := service.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, "0911234567", claims.Phone)
	assert.Equal(t, []string{"passenger"}, claims.Roles)
	assert.Equal(t, AccessToken, claims.TokenType)
	assert.Equal(t, Issuer, claims.Issuer)
	assert.Equal(t, userID, claims.Subject)
}

func TestGenerateAccessToken_RequiresUserID(t *testing.T) {
	service := NewService(testAccessSecret, time.Hour)

	_, err := service.GenerateAccessToken("", "0911234567", nil)
	assert.Error(t, err)
}

func TestValidateAccessToken_WrongSecret(t *testing.T) {
	issuer := NewService("another-secret", time.Hour)
	token, err := issuer.GenerateAccessToken("user-1", "", nil)
	require.NoError(t, err)

	_, err = NewService(testAccessSecret, time.Hour).ValidateAccessToken(token)
	assert.Error(t, err)
}

func TestValidateAccessToken_Expired(t *testing.T) {
	service := NewService(testAccessSecret, -time.Hour)
	token, err := service.GenerateAccessToken("user-1", "", nil)
	require.NoError(t, err)

	_, err = service.ValidateAccessToken(token)
	require.Error(t, err)
	assert.True(t, IsExpiredError(err))
}

func TestValidateAccessToken_WrongTokenType(t *testing.T) {
	claims := Claims{
		UserID:    "user-1",
		TokenType: "refresh",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testAccessSecret))
	require.NoError(t, err)

	_, err = NewService(testAccessSecret, time.Hour).ValidateAccessToken(token)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid token type")
}

func TestValidateAccessToken_RejectsNoneAlgorithm(t *testing.T) {
	claims := Claims{UserID: "user-1", TokenType: AccessToken}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewService(testAccessSecret, time.Hour).ValidateAccessToken(token)
	assert.Error(t, err)
}

func TestValidateAccessToken_Garbage(t *testing.T) {
	_, err := NewService(testAccessSecret, time.Hour).ValidateAccessToken("invalid.token.here")
	assert.Error(t, err)
	assert.False(t, IsExpiredError(err))
}

func TestConcurrentTokenGeneration(t *testing.T) {
	service := NewService(testAccessSecret, time.Hour)

	var wg sync.WaitGroup
	errs := make(chan error, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			token, err := service.GenerateAccessToken(uuid.NewString(), "", []string{"passenger"})
			if err != nil {
				errs <- err
				return
			}
			if _, err := service.ValidateAccessToken(token); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
}
