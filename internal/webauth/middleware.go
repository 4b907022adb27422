package webauth

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
)

type contextKey string

const principalContextKey contextKey = "principal"

// PrincipalKind distinguishes an interactive user session from a bot
// holding the shared API key.
type PrincipalKind string

const (
	PrincipalUser PrincipalKind = "user"
	PrincipalBot  PrincipalKind = "bot"
)

// Principal is the authenticated caller attached to the request context.
type Principal struct {
	Kind        PrincipalKind
	ID          string
	DisplayName string
}

// FromContext returns the authenticated Principal, or nil if none.
func FromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalContextKey).(*Principal)
	return p
}

// Middleware authenticates requests via the user-session cookie/bearer
// token or the X-Bot-Api-Key header, rejecting anything else with 401.
type Middleware struct {
	auth      *Authenticator
	botAPIKey string
}

func NewMiddleware(auth *Authenticator, botAPIKey string) *Middleware {
	return &Middleware{auth: auth, botAPIKey: botAPIKey}
}

func (m *Middleware) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, err := m.authenticate(r)
		if err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), principalContextKey, principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *Middleware) authenticate(r *http.Request) (*Principal, error) {
	if key := r.Header.Get("X-Bot-Api-Key"); key != "" {
		if m.botAPIKey != "" && subtle.ConstantTimeCompare([]byte(key), []byte(m.botAPIKey)) == 1 {
			return &Principal{Kind: PrincipalBot, ID: "bot", DisplayName: "bot"}, nil
		}
		return nil, errUnauthorized
	}

	token := bearerToken(r)
	if token == "" {
		if c, err := r.Cookie(sessionCookieName); err == nil {
			token = c.Value
		}
	}
	if token == "" {
		return nil, errUnauthorized
	}

	session, err := m.auth.store.AuthSessions.Get(r.Context(), token)
	if err != nil {
		return nil, err
	}
	return &Principal{Kind: PrincipalUser, ID: session.PrincipalID, DisplayName: session.DisplayName}, nil
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}

var errUnauthorized = authError("unauthorized")

type authError string

func (e authError) Error() string { return string(e) }
