package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"shorts-server/internal/domain"
)

const testSecret = "test-secret-key"

func signToken(t *testing.T, secret string, userID uuid.UUID, expiresAt time.Time) string {
	t.Helper()
	claims := Claims{
		UserID: userID,
		Roles:  []string{"user"},
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestJWTVerifier(t *testing.T) {
	verifier, err := NewJWTVerifier(testSecret, zap.NewNop())
	require.NoError(t, err)
	userID := uuid.New()

	t.Run("valid token", func(t *testing.T) {
		token := signToken(t, testSecret, userID, time.Now().Add(time.Hour))
		claims, err := verifier.Verify(token)
		require.NoError(t, err)
		assert.Equal(t, userID, claims.UserID)
		assert.Equal(t, []string{"user"}, claims.Roles)
	})

	t.Run("expired token", func(t *testing.T) {
		token := signToken(t, testSecret, userID, time.Now().Add(-time.Hour))
		_, err := verifier.Verify(token)
		assert.ErrorIs(t, err, domain.ErrTokenExpired)
	})

	t.Run("wrong secret", func(t *testing.T) {
		token := signToken(t, "another-secret", userID, time.Now().Add(time.Hour))
		_, err := verifier.Verify(token)
		assert.ErrorIs(t, err, domain.ErrTokenInvalid)
	})

	t.Run("malformed token", func(t *testing.T) {
		_, err := verifier.Verify("not.a.token")
		assert.ErrorIs(t, err, domain.ErrTokenMalformed)
	})

	t.Run("empty secret rejected", func(t *testing.T) {
		_, err := NewJWTVerifier("", zap.NewNop())
		assert.Error(t, err)
	})
}

func TestAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	verifier, err := NewJWTVerifier(testSecret, zap.NewNop())
	require.NoError(t, err)
	userID := uuid.New()

	newEngine := func() *gin.Engine {
		engine := gin.New()
		engine.Use(Auth(verifier, zap.NewNop()))
		engine.GET("/protected", func(c *gin.Context) {
			id, ok := UserIDFromContext(c)
			require.True(t, ok)
			c.JSON(http.StatusOK, gin.H{"user_id": id.String()})
		})
		return engine
	}

	t.Run("authorized request", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, userID, time.Now().Add(time.Hour)))
		rec := httptest.NewRecorder()
		newEngine().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), userID.String())
	})

	t.Run("missing header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		rec := httptest.NewRecorder()
		newEngine().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("wrong scheme", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Basic abcdef")
		rec := httptest.NewRecorder()
		newEngine().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("expired token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, userID, time.Now().Add(-time.Hour)))
		rec := httptest.NewRecorder()
		newEngine().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "expired")
	})
}
