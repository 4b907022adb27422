// Package webauth bridges OIDC browser login to the persistent
// AuthSession ledger: gorilla/sessions carries only the
// short-lived login-flow CSRF state, while the long-lived principal
// session lives in the Store behind an opaque bearer token. Adapted from
// the shared htmxauth.Authenticator's OIDC login/callback/logout flow.
package webauth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/http"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/gorilla/sessions"
	"golang.org/x/oauth2"

	"github.com/aypapol/panel/internal/model"
	"github.com/aypapol/panel/internal/store"
)

const (
	stateCookieName   = "panel_login"
	sessionCookieName = "panel_session"
	sessionTTL        = 7 * 24 * time.Hour
	stateTTL          = 10 * time.Minute
)

// Config configures OIDC login.
type Config struct {
	Issuer        string
	ClientID      string
	ClientSecret  string
	RedirectURL   string
	Scopes        []string
	SessionSecret string
}

// Authenticator issues and validates principal sessions for the HTTP API.
type Authenticator struct {
	store        *store.Store
	oauth2Config *oauth2.Config
	verifier     *oidc.IDTokenVerifier
	stateStore   *sessions.CookieStore
}

func New(ctx context.Context, st *store.Store, cfg Config) (*Authenticator, error) {
	if cfg.Issuer == "" || cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.RedirectURL == "" {
		return nil, fmt.Errorf("OIDC issuer, client id/secret, and redirect url are required")
	}
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = []string{oidc.ScopeOpenID, "profile", "email"}
	}

	provider, err := oidc.NewProvider(ctx, cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("create oidc provider: %w", err)
	}

	oauth2Config := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Endpoint:     provider.Endpoint(),
		Scopes:       cfg.Scopes,
	}
	verifier := provider.Verifier(&oidc.Config{ClientID: cfg.ClientID})

	authKey := []byte(cfg.SessionSecret)
	if len(authKey) < 32 {
		authKey = make([]byte, 32)
		rand.Read(authKey)
	} else {
		authKey = authKey[:32]
	}
	stateStore := sessions.NewCookieStore(authKey)
	stateStore.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(stateTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}

	return &Authenticator{
		store:        st,
		oauth2Config: oauth2Config,
		verifier:     verifier,
		stateStore:   stateStore,
	}, nil
}

// HandleLogin redirects the browser to the identity provider with a fresh
// CSRF state stashed in the login cookie.
func (a *Authenticator) HandleLogin(w http.ResponseWriter, r *http.Request) {
	state, err := randomToken(32)
	if err != nil {
		http.Error(w, "failed to generate state", http.StatusInternalServerError)
		return
	}

	next := r.URL.Query().Get("next")
	if next == "" {
		next = "/"
	}

	session, _ := a.stateStore.Get(r, stateCookieName)
	session.Values["state"] = state
	session.Values["created"] = time.Now().Unix()
	session.Values["next"] = next
	if err := session.Save(r, w); err != nil {
		http.Error(w, "session error", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, a.oauth2Config.AuthCodeURL(state), http.StatusFound)
}

// HandleCallback exchanges the authorization code, verifies the ID token,
// and issues a Store-backed AuthSession cookie.
func (a *Authenticator) HandleCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	session, err := a.stateStore.Get(r, stateCookieName)
	if err != nil {
		http.Error(w, "invalid login session", http.StatusBadRequest)
		return
	}

	wantState, _ := session.Values["state"].(string)
	created, _ := session.Values["created"].(int64)
	gotState := r.URL.Query().Get("state")
	if wantState == "" || wantState != gotState || time.Now().Unix()-created > int64(stateTTL.Seconds()) {
		http.Error(w, "invalid or expired state parameter", http.StatusBadRequest)
		return
	}
	next, _ := session.Values["next"].(string)
	if next == "" {
		next = "/"
	}

	code := r.URL.Query().Get("code")
	token, err := a.oauth2Config.Exchange(ctx, code)
	if err != nil {
		http.Error(w, "failed to exchange authorization code", http.StatusInternalServerError)
		return
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		http.Error(w, "no id_token in token response", http.StatusInternalServerError)
		return
	}
	idToken, err := a.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		http.Error(w, "failed to verify id token", http.StatusUnauthorized)
		return
	}

	var claims struct {
		Sub     string `json:"sub"`
		Name    string `json:"preferred_username"`
		Picture string `json:"picture"`
	}
	if err := idToken.Claims(&claims); err != nil {
		http.Error(w, "failed to parse claims", http.StatusInternalServerError)
		return
	}
	if claims.Name == "" {
		claims.Name = claims.Sub
	}

	sessionToken, err := randomToken(32)
	if err != nil {
		http.Error(w, "failed to issue session", http.StatusInternalServerError)
		return
	}

	expiresAt := time.Now().Add(sessionTTL)
	authSession := &model.AuthSession{
		Token:       sessionToken,
		PrincipalID: claims.Sub,
		DisplayName: claims.Name,
		AvatarRef:   claims.Picture,
		ExpiresAt:   expiresAt,
	}
	if err := a.store.AuthSessions.Create(ctx, authSession); err != nil {
		http.Error(w, "failed to create session", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    sessionToken,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	delete(session.Values, "state")
	delete(session.Values, "next")
	session.Options.MaxAge = -1
	session.Save(r, w)

	http.Redirect(w, r, next, http.StatusSeeOther)
}

// HandleLogout deletes the principal's AuthSession row and clears the
// browser cookie.
func (a *Authenticator) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(sessionCookieName); err == nil {
		_ = a.store.AuthSessions.Delete(r.Context(), c.Value)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
	})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func randomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
