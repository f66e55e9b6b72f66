// Package services provides external service integrations and technical concerns like notifications and tokens
package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createTestTokenService creates a token service for testing with symmetric key
func createTestTokenService() (TokenService, error) {
	return NewTokenService(
		15*time.Minute,
		7*24*time.Hour,
		"test-issuer",
		"test-audience",
		false, // useRSAKeys
		"",    // privateKeyPEM
		"",    // publicKeyPEM
		"test-secret-key-for-jwt-signing-32-chars", // secretKey
	)
}

func TestNewTokenService(t *testing.T) {
	tests := []struct {
		name        string
		secretKey   string
		expectError bool
	}{
		{
			name:        "valid symmetric key configuration",
			secretKey:   "test-secret-key-for-jwt-signing-32-chars",
			expectError: false,
		},
		{
			name:        "missing secret key",
			secretKey:   "",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, err := NewTokenService(
				15*time.Minute,
				7*24*time.Hour,
				"test-issuer",
				"test-audience",
				false,
				"",
				"",
				tt.secretKey,
			)

			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, service)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, service)
			}
		})
	}
}

func TestGenerateTokens(t *testing.T) {
	service, err := createTestTokenService()
	require.NoError(t, err)

	tests := []struct {
		name        string
		role        string
		subjectID   uint
		expectError bool
	}{
		{
			name:        "creator tokens",
			role:        RoleCreator,
			subjectID:   123,
			expectError: false,
		},
		{
			name:        "brand tokens",
			role:        RoleBrand,
			subjectID:   7,
			expectError: false,
		},
		{
			name:        "admin tokens",
			role:        RoleAdmin,
			subjectID:   1,
			expectError: false,
		},
		{
			name:        "unknown role",
			role:        "bot",
			subjectID:   1,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			accessToken, refreshToken, err := service.GenerateTokens(tt.role, tt.subjectID)

			if tt.expectError {
				assert.Error(t, err)
				assert.Empty(t, accessToken)
				assert.Empty(t, refreshToken)
			} else {
				assert.NoError(t, err)
				assert.NotEmpty(t, accessToken)
				assert.NotEmpty(t, refreshToken)
				assert.NotEqual(t, accessToken, refreshToken)

				// Verify tokens are valid JWT format (should start with "eyJ")
				assert.Contains(t, accessToken, "eyJ")
				assert.Contains(t, refreshToken, "eyJ")
			}
		})
	}
}

func TestValidateToken(t *testing.T) {
	service, err := createTestTokenService()
	require.NoError(t, err)

	accessToken, refreshToken, err := service.GenerateTokens(RoleCreator, 123)
	require.NoError(t, err)

	tests := []struct {
		name         string
		token        string
		expectError  bool
		expectClaims *TokenClaims
	}{
		{
			name:        "valid access token",
			token:       accessToken,
			expectError: false,
			expectClaims: &TokenClaims{
				Role:      RoleCreator,
				SubjectID: 123,
				TokenType: "access",
			},
		},
		{
			name:        "valid refresh token",
			token:       refreshToken,
			expectError: false,
			expectClaims: &TokenClaims{
				Role:      RoleCreator,
				SubjectID: 123,
				TokenType: "refresh",
			},
		},
		{
			name:         "empty token",
			token:        "",
			expectError:  true,
			expectClaims: nil,
		},
		{
			name:         "invalid token format",
			token:        "invalid.token.format",
			expectError:  true,
			expectClaims: nil,
		},
		{
			name:         "malformed token",
			token:        "eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9.invalid.signature",
			expectError:  true,
			expectClaims: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := service.ValidateToken(tt.token)

			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, claims)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, claims)

				if tt.expectClaims != nil {
					assert.Equal(t, tt.expectClaims.Role, claims.Role)
					assert.Equal(t, tt.expectClaims.SubjectID, claims.SubjectID)
					assert.Equal(t, tt.expectClaims.TokenType, claims.TokenType)
					assert.NotEmpty(t, claims.TokenID)
					assert.False(t, claims.IssuedAt.IsZero())
					assert.False(t, claims.ExpiresAt.IsZero())
					assert.True(t, claims.ExpiresAt.After(claims.IssuedAt))
				}
			}
		})
	}
}

func TestRefreshToken(t *testing.T) {
	service, err := createTestTokenService()
	require.NoError(t, err)

	_, refreshToken, err := service.GenerateTokens(RoleBrand, 42)
	require.NoError(t, err)

	tests := []struct {
		name         string
		refreshToken string
		expectError  bool
	}{
		{
			name:         "valid refresh token",
			refreshToken: refreshToken,
			expectError:  false,
		},
		{
			name:         "empty refresh token",
			refreshToken: "",
			expectError:  true,
		},
		{
			name:         "invalid refresh token",
			refreshToken: "invalid.token",
			expectError:  true,
		},
		{
			name:         "access token instead of refresh token",
			refreshToken: func() string { token, _, _ := service.GenerateTokens(RoleBrand, 42); return token }(),
			expectError:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			newAccessToken, newRefreshToken, err := service.RefreshToken(tt.refreshToken)

			if tt.expectError {
				assert.Error(t, err)
				assert.Empty(t, newAccessToken)
				assert.Empty(t, newRefreshToken)
			} else {
				assert.NoError(t, err)
				assert.NotEmpty(t, newAccessToken)
				assert.NotEmpty(t, newRefreshToken)
				assert.NotEqual(t, newAccessToken, newRefreshToken)
				assert.NotEqual(t, newAccessToken, tt.refreshToken)
				assert.NotEqual(t, newRefreshToken, tt.refreshToken)

				// The role survives the refresh.
				claims, err := service.ValidateToken(newAccessToken)
				require.NoError(t, err)
				assert.Equal(t, RoleBrand, claims.Role)
				assert.Equal(t, uint(42), claims.SubjectID)
			}
		})
	}
}

func TestRevokeToken(t *testing.T) {
	service, err := createTestTokenService()
	require.NoError(t, err)

	accessToken, _, err := service.GenerateTokens(RoleCreator, 123)
	require.NoError(t, err)

	// Before revocation the token validates.
	claims, err := service.ValidateToken(accessToken)
	require.NoError(t, err)
	require.NotNil(t, claims)

	require.NoError(t, service.RevokeToken(accessToken))

	assert.True(t, service.IsTokenRevoked(accessToken))

	claims, err = service.ValidateToken(accessToken)
	assert.ErrorIs(t, err, ErrTokenRevoked)
	assert.Nil(t, claims)

	// Revoking garbage fails.
	assert.Error(t, service.RevokeToken("invalid.token"))
}

func TestTokenExpiration(t *testing.T) {
	// Create service with very short TTL for testing expiration
	service, err := NewTokenService(1*time.Second, 2*time.Second, "test-issuer", "test-audience", false, "", "", "test-secret-key-for-jwt-signing-32-chars")
	require.NoError(t, err)

	accessToken, refreshToken, err := service.GenerateTokens(RoleCreator, 123)
	require.NoError(t, err)

	claims, err := service.ValidateToken(accessToken)
	assert.NoError(t, err)
	assert.NotNil(t, claims)
	assert.Equal(t, uint(123), claims.SubjectID)

	time.Sleep(3 * time.Second)

	claims, err = service.ValidateToken(accessToken)
	assert.Error(t, err)
	assert.Nil(t, claims)

	_, _, err = service.RefreshToken(refreshToken)
	assert.Error(t, err)
}

func TestTokenSecurity(t *testing.T) {
	// Create services with different configurations to ensure different keys
	service1, err := NewTokenService(15*time.Minute, 7*24*time.Hour, "issuer1", "audience1", false, "", "", "test-secret-key-1-for-jwt-signing-32-chars")
	require.NoError(t, err)

	service2, err := NewTokenService(15*time.Minute, 7*24*time.Hour, "issuer2", "audience2", false, "", "", "test-secret-key-2-for-jwt-signing-32-chars")
	require.NoError(t, err)

	token1, _, err := service1.GenerateTokens(RoleCreator, 123)
	require.NoError(t, err)

	token2, _, err := service2.GenerateTokens(RoleCreator, 123)
	require.NoError(t, err)

	// Tokens should be different even with the same subject.
	assert.NotEqual(t, token1, token2)

	// Tokens from one service should not be valid in another service.
	claims, err := service1.ValidateToken(token2)
	assert.Error(t, err)
	assert.Nil(t, claims)

	claims, err = service2.ValidateToken(token1)
	assert.Error(t, err)
	assert.Nil(t, claims)
}

func TestConcurrentTokenGeneration(t *testing.T) {
	service, err := createTestTokenService()
	require.NoError(t, err)

	const numGoroutines = 10
	tokens := make(chan string, numGoroutines)
	errors := make(chan error, numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		go func(subjectID uint) {
			accessToken, _, err := service.GenerateTokens(RoleCreator, subjectID)
			if err != nil {
				errors <- err
				return
			}
			tokens <- accessToken
		}(uint(i + 1))
	}

	generatedTokens := make(map[string]bool)
	for i := 0; i < numGoroutines; i++ {
		select {
		case token := <-tokens:
			assert.NotEmpty(t, token)
			assert.False(t, generatedTokens[token], "Duplicate token generated")
			generatedTokens[token] = true
		case err := <-errors:
			t.Errorf("Error generating token: %v", err)
		}
	}

	assert.Equal(t, numGoroutines, len(generatedTokens))
}

func TestTokenValidationEdgeCases(t *testing.T) {
	service, err := createTestTokenService()
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{
			name:  "nil token",
			token: "",
		},
		{
			name:  "single character",
			token: "a",
		},
		{
			name:  "non-JWT string",
			token: "this is not a jwt token",
		},
		{
			name:  "JWT with wrong number of parts",
			token: "eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9.eyJzdWJqZWN0X2lkIjoxMjN9",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := service.ValidateToken(tt.token)
			assert.Error(t, err)
			assert.Nil(t, claims)
		})
	}
}

func BenchmarkGenerateTokens(b *testing.B) {
	service, err := createTestTokenService()
	require.NoError(b, err)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _, err := service.GenerateTokens(RoleCreator, uint(i))
		require.NoError(b, err)
	}
}

func BenchmarkValidateToken(b *testing.B) {
	service, err := createTestTokenService()
	require.NoError(b, err)

	token, _, err := service.GenerateTokens(RoleCreator, 123)
	require.NoError(b, err)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, err := service.ValidateToken(token)
		require.NoError(b, err)
	}
}
