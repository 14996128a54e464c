// Package auth provides the current-user middleware. It reads a bearer token,
// verifies it with the injected signing key, and places the caller's identity
// into the request context. The audit pipeline only consumes the identity;
// it never verifies tokens itself.
package auth

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"taskboard/pkg/requestcontext"
)

// CurrentUser describes the authenticated caller.
type CurrentUser struct {
	ID             string
	OrganizationID string
	SessionID      string
	Role           string
}

// Middleware parses an optional Authorization bearer token and injects the
// current user into the context. Requests without a token, or with an invalid
// one, proceed unauthenticated; enforcing authentication is a per-route
// concern, not this middleware's.
type Middleware struct {
	signingKey []byte
}

func New(signingKey string) *Middleware {
	return &Middleware{signingKey: []byte(signingKey)}
}

func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := m.userFromRequest(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		ctx := requestcontext.WithUserID(r.Context(), user.ID)
		if user.OrganizationID != "" {
			ctx = requestcontext.WithOrganizationID(ctx, user.OrganizationID)
		}
		if user.SessionID != "" {
			ctx = requestcontext.WithSessionID(ctx, user.SessionID)
		}
		if user.Role != "" {
			ctx = requestcontext.WithRole(ctx, user.Role)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *Middleware) userFromRequest(r *http.Request) (CurrentUser, bool) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return CurrentUser{}, false
	}
	raw := strings.TrimPrefix(header, "Bearer ")

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return m.signingKey, nil
	})
	if err != nil || !token.Valid {
		return CurrentUser{}, false
	}

	user := CurrentUser{}
	if sub, err := claims.GetSubject(); err == nil {
		user.ID = sub
	}
	if org, ok := claims["org_id"].(string); ok {
		user.OrganizationID = org
	}
	if sid, ok := claims["sid"].(string); ok {
		user.SessionID = sid
	}
	if role, ok := claims["role"].(string); ok {
		user.Role = role
	}
	return user, user.ID != ""
}
