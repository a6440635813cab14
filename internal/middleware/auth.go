// Package middleware provides HTTP middleware: JWT bearer authentication,
// role guards and request-scoped logging.
package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/nvoronin/card-ledger/internal/config"
	"github.com/nvoronin/card-ledger/internal/models"
)

type contextKey string

const (
	usernameKey contextKey = "username"
	rolesKey    contextKey = "roles"
)

// GenerateToken issues an HS256 JWT carrying the username as subject and the
// user's roles as a claim, valid for 24 hours.
func GenerateToken(cfg *config.Config, username string, roles []models.Role) (string, error) {
	roleNames := make([]string, 0, len(roles))
	for _, r := range roles {
		roleNames = append(roleNames, string(r))
	}
	claims := jwt.MapClaims{
		"sub":   username,
		"roles": roleNames,
		"iat":   jwt.NewNumericDate(time.Now()),
		"exp":   jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return tokenString, nil
}

// AuthMiddleware validates the bearer token and threads the verified
// username and role set through the request context. The core services never
// read identity from anywhere else.
func AuthMiddleware(cfg *config.Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				http.Error(w, "Missing or invalid Authorization header", http.StatusUnauthorized)
				return
			}
			tokenString := strings.TrimPrefix(authHeader, "Bearer ")

			token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
				}
				return []byte(cfg.JWTSecret), nil
			})
			if err != nil || !token.Valid {
				http.Error(w, "Invalid token", http.StatusUnauthorized)
				return
			}

			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				http.Error(w, "Invalid token claims", http.StatusUnauthorized)
				return
			}
			username, _ := claims["sub"].(string)
			if username == "" {
				http.Error(w, "Invalid token subject", http.StatusUnauthorized)
				return
			}

			var roles []models.Role
			if rawRoles, ok := claims["roles"].([]any); ok {
				for _, raw := range rawRoles {
					if name, ok := raw.(string); ok {
						roles = append(roles, models.Role(name))
					}
				}
			}

			ctx := context.WithValue(r.Context(), usernameKey, username)
			ctx = context.WithValue(ctx, rolesKey, roles)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole rejects requests whose token does not carry the role.
func RequireRole(role models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !HasRole(r.Context(), role) {
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// UsernameFromContext returns the authenticated username, if any.
func UsernameFromContext(ctx context.Context) (string, bool) {
	username, ok := ctx.Value(usernameKey).(string)
	return username, ok && username != ""
}

// HasRole reports whether the authenticated caller carries the role.
func HasRole(ctx context.Context, role models.Role) bool {
	roles, ok := ctx.Value(rolesKey).([]models.Role)
	if !ok {
		return false
	}
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
