package webauth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aypapol/panel/internal/errs"
	"github.com/aypapol/panel/internal/model"
	"github.com/aypapol/panel/internal/store"
)

type fakeAuthSessions struct {
	mu       sync.Mutex
	sessions map[string]*model.AuthSession
}

func newFakeAuthSessions(sessions ...*model.AuthSession) *fakeAuthSessions {
	m := make(map[string]*model.AuthSession, len(sessions))
	for _, s := range sessions {
		m[s.Token] = s
	}
	return &fakeAuthSessions{sessions: m}
}

func (f *fakeAuthSessions) Create(ctx context.Context, s *model.AuthSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[s.Token] = s
	return nil
}

func (f *fakeAuthSessions) Get(ctx context.Context, token string) (*model.AuthSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[token]
	if !ok {
		return nil, errs.NotFound("session not found")
	}
	return s, nil
}

func (f *fakeAuthSessions) Delete(ctx context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, token)
	return nil
}

func (f *fakeAuthSessions) ExpireOlderThan(ctx context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for token, s := range f.sessions {
		if s.ExpiresAt.Before(now) {
			delete(f.sessions, token)
			n++
		}
	}
	return n, nil
}

func newTestMiddleware(botKey string, sessions *fakeAuthSessions) *Middleware {
	auth := &Authenticator{store: &store.Store{AuthSessions: sessions}}
	return NewMiddleware(auth, botKey)
}

func TestRequireAcceptsValidBotAPIKey(t *testing.T) {
	mw := newTestMiddleware("super-secret", newFakeAuthSessions())

	var gotPrincipal *Principal
	handler := mw.Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPrincipal = FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Bot-Api-Key", "super-secret")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, gotPrincipal)
	assert.Equal(t, PrincipalBot, gotPrincipal.Kind)
}

func TestRequireRejectsWrongBotAPIKey(t *testing.T) {
	mw := newTestMiddleware("super-secret", newFakeAuthSessions())

	handler := mw.Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Bot-Api-Key", "wrong-key")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAcceptsBearerToken(t *testing.T) {
	session := &model.AuthSession{Token: "tok-1", PrincipalID: "user-1", DisplayName: "Alice", ExpiresAt: time.Now().Add(time.Hour)}
	mw := newTestMiddleware("", newFakeAuthSessions(session))

	var gotPrincipal *Principal
	handler := mw.Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPrincipal = FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer tok-1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, gotPrincipal)
	assert.Equal(t, PrincipalUser, gotPrincipal.Kind)
	assert.Equal(t, "user-1", gotPrincipal.ID)
}

func TestRequireAcceptsSessionCookie(t *testing.T) {
	session := &model.AuthSession{Token: "tok-2", PrincipalID: "user-2", DisplayName: "Bob", ExpiresAt: time.Now().Add(time.Hour)}
	mw := newTestMiddleware("", newFakeAuthSessions(session))

	handler := mw.Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "tok-2"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireRejectsMissingCredentials(t *testing.T) {
	mw := newTestMiddleware("", newFakeAuthSessions())

	handler := mw.Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
