package middleware

import (
	"net/http"
	"strings"

	"github.com/academiaalbert/academia-backend/api/responses"
	pkgAuth "github.com/academiaalbert/academia-backend/pkg/auth"
	"github.com/academiaalbert/academia-backend/pkg/auth/session"
	"github.com/academiaalbert/academia-backend/pkg/config"
	pkgerrors "github.com/academiaalbert/academia-backend/pkg/errors"
	"github.com/academiaalbert/academia-backend/pkg/logger"
)

// BearerToken extracts the raw token from the Authorization header.
func BearerToken(r *http.Request) (string, error) {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(raw), "bearer ") {
		raw = strings.TrimSpace(raw[7:])
	}
	if raw == "" {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	return raw, nil
}

// Auth validates a bearer token and seeds the request context with the claims.
// A token whose refresh session was revoked (logout) is rejected even before it expires.
func Auth(cfg config.JWTConfig, verifier session.AccessSessionChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := BearerToken(r)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}

			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			if verifier != nil {
				ok, err := verifier.HasSession(r.Context(), claims.ID)
				if err != nil {
					responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "validate session"))
					return
				}
				if !ok {
					responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "session unavailable"))
					return
				}
			}

			ctx := WithIdentity(r.Context(), Identity{UserID: claims.UserID, Role: claims.Role, AccessID: claims.ID})
			ctx = logg.WithUserID(ctx, claims.UserID.String())
			ctx = logg.WithActorRole(ctx, claims.Role.String())

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
