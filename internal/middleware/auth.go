package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mat-tom-creator/fileledger/internal/model"
)

// roleResolver supplies the engine-side role memberships for an
// identity. The JWT only proves who is calling; roles come from the
// policy guard, never from caller-supplied claims.
type roleResolver interface {
	RolesOf(ctx context.Context, identity string) ([]string, error)
}

type contextKey string

const principalContextKey contextKey = "principal"

type AuthMiddleware struct {
	secret []byte
	roles  roleResolver
}

func NewAuthMiddleware(secret string, roles roleResolver) *AuthMiddleware {
	return &AuthMiddleware{secret: []byte(secret), roles: roles}
}

func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := strings.TrimSpace(r.Header.Get("Authorization"))
		if header == "" || !strings.HasPrefix(strings.ToLower(header), "bearer ") {
			writeAuthError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid authorization header")
			return
		}

		subject, err := m.validate(strings.TrimSpace(header[7:]))
		if err != nil {
			writeAuthError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid or expired token")
			return
		}

		roles, err := m.roles.RolesOf(r.Context(), subject)
		if err != nil {
			writeAuthError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to resolve caller roles")
			return
		}

		principal := model.Principal{ID: subject, Roles: roles}
		ctx := context.WithValue(r.Context(), principalContextKey, principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRoles gates a route on engine-side role membership. Must be
// composed after RequireAuth.
func (m *AuthMiddleware) RequireRoles(allowedRoles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFromContext(r.Context())
			if !ok {
				writeAuthError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
				return
			}

			for _, role := range allowedRoles {
				if principal.HasRole(role) {
					next.ServeHTTP(w, r)
					return
				}
			}

			writeAuthError(w, http.StatusForbidden, "FORBIDDEN", "insufficient permissions")
		})
	}
}

func (m *AuthMiddleware) validate(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return "", err
	}

	subject, err := token.Claims.GetSubject()
	if err != nil || strings.TrimSpace(subject) == "" {
		return "", fmt.Errorf("token has no subject")
	}
	return subject, nil
}

func PrincipalFromContext(ctx context.Context) (model.Principal, bool) {
	principal, ok := ctx.Value(principalContextKey).(model.Principal)
	return principal, ok
}

func writeAuthError(w http.ResponseWriter, status int, kind string, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(model.APIResponse{
		Success: false,
		Error: &model.APIError{
			Kind:    kind,
			Message: message,
		},
	})
}
