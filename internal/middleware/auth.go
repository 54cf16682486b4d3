package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/truthbyte/backend/internal/apperr"
	"github.com/truthbyte/backend/internal/auth"
	"github.com/truthbyte/backend/internal/httpx"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type contextKey int

const (
	claimsKey contextKey = iota
	userIDKey
)

type TokenVerifier interface {
	VerifyToken(token string) (*auth.Claims, error)
}

type UserEnsurer interface {
	Ensure(ctx context.Context, userID string) error
}

// AuthMiddleware requires a valid bearer token and stores its claims in the
// request context.
func AuthMiddleware(verifier TokenVerifier, log *zap.Logger) func(http.Handler) http.Handler {
	log = log.Named("auth")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := verifier.VerifyToken(auth.BearerToken(r))
			if err != nil {
				var ae *apperr.AuthError
				if errors.As(err, &ae) && ae.Kind == apperr.AuthInvalidSignature {
					log.Warn("token signature rejected", zap.String("path", r.URL.Path))
				} else {
					log.Debug("token rejected", zap.Error(err))
				}
				httpx.WriteError(w, log, err)
				return
			}
			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireUser validates the X-User-ID header, makes sure the user row exists
// and stores the id in the request context.
func RequireUser(users UserEnsurer, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get("X-User-ID")
			id, err := uuid.Parse(raw)
			if err != nil {
				httpx.WriteError(w, log, apperr.Invalid("X-User-ID", "header must be a UUID"))
				return
			}
			userID := id.String()
			if err := users.Ensure(r.Context(), userID); err != nil {
				httpx.WriteError(w, log, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

// AdminKey guards moderation routes with a bcrypt-hashed shared key sent in
// X-Admin-Key. An empty hash disables the routes.
func AdminKey(keyHash string, log *zap.Logger) func(http.Handler) http.Handler {
	log = log.Named("admin")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("X-Admin-Key")
			if keyHash == "" || key == "" ||
				bcrypt.CompareHashAndPassword([]byte(keyHash), []byte(key)) != nil {
				log.Warn("admin key rejected", zap.String("path", r.URL.Path))
				httpx.WriteError(w, log, &apperr.AuthError{Kind: apperr.AuthInvalidSignature})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func ClaimsFrom(ctx context.Context) (*auth.Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*auth.Claims)
	return c, ok
}

func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

func UserIDFrom(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}
