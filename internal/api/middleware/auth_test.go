package middleware

import (
	"credit-engine/internal/config"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const authTestSecret = "testsecret"

func signToken(t *testing.T, secret string, method jwt.SigningMethod, claims jwt.MapClaims) string {
	t.Helper()
	tokenString, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	require.NoError(t, err, "failed to sign token")
	return tokenString
}

func runAuth(cfg config.AuthConfig, authorization string) *httptest.ResponseRecorder {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/view-loan/1", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	AuthMiddleware(cfg, logger)(next).ServeHTTP(rec, req)
	return rec
}

func TestAuthMiddleware(t *testing.T) {
	cfg := config.AuthConfig{Enabled: true, JWTSecret: authTestSecret}

	t.Run("passes through when disabled", func(t *testing.T) {
		rec := runAuth(config.AuthConfig{Enabled: false}, "")
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("rejects missing Authorization header", func(t *testing.T) {
		rec := runAuth(cfg, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.JSONEq(t, `{"error":{"message":"Unauthorized"}}`, rec.Body.String())
	})

	t.Run("rejects non-bearer scheme", func(t *testing.T) {
		rec := runAuth(cfg, "Basic dXNlcjpwYXNz")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("rejects garbage token", func(t *testing.T) {
		rec := runAuth(cfg, "Bearer not-a-jwt")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("rejects token signed with wrong secret", func(t *testing.T) {
		token := signToken(t, "someothersecret", jwt.SigningMethodHS256, jwt.MapClaims{"username": "ops"})
		rec := runAuth(cfg, "Bearer "+token)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("rejects expired token", func(t *testing.T) {
		token := signToken(t, authTestSecret, jwt.SigningMethodHS256, jwt.MapClaims{
			"username": "ops",
			"exp":      time.Now().Add(-time.Hour).Unix(),
		})
		rec := runAuth(cfg, "Bearer "+token)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("accepts valid token", func(t *testing.T) {
		token := signToken(t, authTestSecret, jwt.SigningMethodHS256, jwt.MapClaims{
			"username": "ops",
			"exp":      time.Now().Add(time.Hour).Unix(),
		})
		rec := runAuth(cfg, "Bearer "+token)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("scheme comparison is case-insensitive", func(t *testing.T) {
		token := signToken(t, authTestSecret, jwt.SigningMethodHS256, jwt.MapClaims{"username": "ops"})
		rec := runAuth(cfg, "bearer "+token)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
