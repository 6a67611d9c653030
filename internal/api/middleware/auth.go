package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/hhi-dashboard/api/internal/models"
	"github.com/hhi-dashboard/api/internal/permissions"
	"github.com/hhi-dashboard/api/internal/services"
	appErr "github.com/hhi-dashboard/api/pkg/errors"
	"github.com/hhi-dashboard/api/pkg/logger"
)

type identityKeyType struct{}

var identityKey identityKeyType

// Claims are the JWT claims issued by the identity provider.
type Claims struct {
	OrgID string `json:"org_id"`
	Role  string `json:"role"`
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

// Auth validates a Bearer JWT using the provided HMAC secret and puts the
// caller's identity into the request context.
func Auth(hmacSecret []byte) func(http.Handler) http.Handler {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}), jwt.WithExpirationRequired())
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ah := r.Header.Get("Authorization")
			if len(ah) < len("Bearer ") || !strings.EqualFold(ah[:len("Bearer ")], "bearer ") {
				fail(w, http.StatusUnauthorized, appErr.CodeUnauthorized, "Unauthorized")
				return
			}
			tokenStr := strings.TrimSpace(ah[len("Bearer "):])
			var claims Claims
			token, err := parser.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (any, error) {
				return hmacSecret, nil
			})
			if err != nil || !token.Valid {
				logger.With(r.Context()).Debug("rejected token", zap.Error(err))
				fail(w, http.StatusUnauthorized, appErr.CodeUnauthorized, "Unauthorized")
				return
			}
			if claims.Subject == "" || claims.OrgID == "" {
				fail(w, http.StatusUnauthorized, appErr.CodeUnauthorized, "Unauthorized")
				return
			}
			id := services.Identity{
				Subject: claims.Subject,
				OrgID:   claims.OrgID,
				Role:    models.Role(claims.Role),
				Email:   claims.Email,
				Name:    claims.Name,
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// WithIdentity stores id in ctx.
func WithIdentity(ctx context.Context, id services.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFrom returns the authenticated caller.
func IdentityFrom(ctx context.Context) (services.Identity, bool) {
	id, ok := ctx.Value(identityKey).(services.Identity)
	return id, ok
}

// RequirePermission rejects callers whose role does not grant p.
func RequirePermission(p permissions.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := IdentityFrom(r.Context())
			if !ok {
				fail(w, http.StatusUnauthorized, appErr.CodeUnauthorized, "Unauthorized")
				return
			}
			if !permissions.Has(id.Role, p) {
				logger.With(r.Context()).Info("permission denied",
					zap.String("subject", id.Subject), zap.String("role", string(id.Role)), zap.String("permission", string(p)))
				fail(w, http.StatusForbidden, appErr.CodeForbidden, "Forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
