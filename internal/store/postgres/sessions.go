package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aypapol/panel/internal/errs"
	"github.com/aypapol/panel/internal/model"
)

type AuthSessionStore struct {
	db *pgxpool.Pool
}

func NewAuthSessionStore(db *pgxpool.Pool) *AuthSessionStore {
	return &AuthSessionStore{db: db}
}

func (s *AuthSessionStore) Create(ctx context.Context, sess *model.AuthSession) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO sessions (token, principal_id, display_name, avatar_ref, expires_at)
		VALUES ($1, $2, $3, $4, $5)
	`, sess.Token, sess.PrincipalID, sess.DisplayName, sess.AvatarRef, sess.ExpiresAt)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (s *AuthSessionStore) Get(ctx context.Context, token string) (*model.AuthSession, error) {
	sess := &model.AuthSession{}
	err := s.db.QueryRow(ctx, `
		SELECT token, principal_id, display_name, avatar_ref, expires_at
		FROM sessions WHERE token = $1
	`, token).Scan(&sess.Token, &sess.PrincipalID, &sess.DisplayName, &sess.AvatarRef, &sess.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.Unauthorized("session not found")
	}
	if err != nil {
		return nil, fmt.Errorf("query session: %w", err)
	}
	if sess.ExpiresAt.Before(time.Now()) {
		return nil, errs.Unauthorized("session expired")
	}
	return sess, nil
}

func (s *AuthSessionStore) Delete(ctx context.Context, token string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM sessions WHERE token = $1`, token)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *AuthSessionStore) ExpireOlderThan(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM sessions WHERE expires_at < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("expire sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}
