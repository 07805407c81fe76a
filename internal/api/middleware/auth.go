package middleware

import (
	"credit-engine/internal/config"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// AuthMiddleware verifies the bearer token on every request. When auth is
// disabled in config the returned middleware is a pass-through.
func AuthMiddleware(cfg config.AuthConfig, logger *slog.Logger) func(http.Handler) http.Handler {
	if !cfg.Enabled {
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	secret := []byte(cfg.JWTSecret)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := authenticate(r, secret); err != nil {
				logger.Warn("AuthMiddleware: Rejected request", "error", err)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":{"message":"Unauthorized"}}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func authenticate(r *http.Request, secret []byte) error {
	header := r.Header.Get("Authorization")
	if header == "" {
		return errors.New("missing Authorization header")
	}

	scheme, tokenString, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return errors.New("malformed Authorization header")
	}

	token, err := jwt.Parse(tokenString,
		func(token *jwt.Token) (interface{}, error) { return secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		return fmt.Errorf("token validation failed: %w", err)
	}
	if !token.Valid {
		return errors.New("token is not valid")
	}
	return nil
}
