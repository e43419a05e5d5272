package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"fintrack/internal/log"
)

type contextKey string

const (
	ownerKey  contextKey = "owner_id"
	claimsKey contextKey = "claims"

	// DevOwnerHeader names the owner when verification is disabled.
	DevOwnerHeader = "X-Owner-ID"
)

// WithOwner stores the authenticated owner id in ctx.
func WithOwner(ctx context.Context, owner string) context.Context {
	return context.WithValue(ctx, ownerKey, owner)
}

// OwnerFromContext returns the owner id placed by Middleware.
func OwnerFromContext(ctx context.Context) (string, bool) {
	owner, ok := ctx.Value(ownerKey).(string)
	return owner, ok && owner != ""
}

// ClaimsFromContext returns verified claims, nil in dev mode.
func ClaimsFromContext(ctx context.Context) *Claims {
	c, _ := ctx.Value(claimsKey).(*Claims)
	return c
}

// Middleware authenticates each request. With a nil verifier the owner is
// read from DevOwnerHeader instead.
type Middleware struct {
	verifier *Verifier
	onError  func(http.ResponseWriter, *http.Request, error)
	logger   *log.Logger
}

func NewMiddleware(verifier *Verifier, onError func(http.ResponseWriter, *http.Request, error)) *Middleware {
	if onError == nil {
		onError = func(w http.ResponseWriter, _ *http.Request, err error) {
			http.Error(w, err.Error(), http.StatusUnauthorized)
		}
	}
	return &Middleware{verifier: verifier, onError: onError, logger: log.Default(log.ComponentAuth)}
}

func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if m.verifier == nil {
			owner := strings.TrimSpace(r.Header.Get(DevOwnerHeader))
			if owner == "" {
				m.onError(w, r, ErrMissingToken)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithOwner(ctx, owner)))
			return
		}

		token, err := BearerToken(r.Header.Get("Authorization"))
		if err == nil {
			var claims *Claims
			claims, err = m.verifier.Verify(token)
			if err == nil {
				ctx = WithOwner(ctx, claims.Subject)
				ctx = context.WithValue(ctx, claimsKey, claims)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}
		}

		if !errors.Is(err, ErrMissingToken) {
			m.logger.WarnContext(ctx, "Bearer token rejected",
				log.FieldPath, r.URL.Path,
				log.FieldError, err)
		}
		m.onError(w, r, err)
	})
}
