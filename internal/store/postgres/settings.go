package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aypapol/panel/internal/errs"
	"github.com/aypapol/panel/internal/model"
)

type SettingsStore struct {
	db *pgxpool.Pool
}

func NewSettingsStore(db *pgxpool.Pool) *SettingsStore {
	return &SettingsStore{db: db}
}

func (s *SettingsStore) Get(ctx context.Context, key string) (string, error) {
	var val string
	err := s.db.QueryRow(ctx, `SELECT value FROM panel_settings WHERE key = $1`, key).Scan(&val)
	if errors.Is(err, pgx.ErrNoRows) {
		if def, ok := model.DefaultSettings[key]; ok {
			return def, nil
		}
		return "", errs.NotFound("setting not found: " + key)
	}
	if err != nil {
		return "", fmt.Errorf("query setting: %w", err)
	}
	return val, nil
}

func (s *SettingsStore) Set(ctx context.Context, key, value string) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO panel_settings (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("set setting: %w", err)
	}
	return nil
}

func (s *SettingsStore) Unset(ctx context.Context, key string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM panel_settings WHERE key = $1`, key)
	if err != nil {
		return fmt.Errorf("unset setting: %w", err)
	}
	return nil
}

func (s *SettingsStore) GetAll(ctx context.Context) (map[string]string, error) {
	out := make(map[string]string, len(model.DefaultSettings))
	for k, v := range model.DefaultSettings {
		out[k] = v
	}

	rows, err := s.db.Query(ctx, `SELECT key, value FROM panel_settings`)
	if err != nil {
		return nil, fmt.Errorf("query settings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}

type BotSettingsStore struct {
	db *pgxpool.Pool
}

func NewBotSettingsStore(db *pgxpool.Pool) *BotSettingsStore {
	return &BotSettingsStore{db: db}
}

func (s *BotSettingsStore) Get(ctx context.Context, key string) (string, error) {
	var val string
	err := s.db.QueryRow(ctx, `SELECT value FROM bot_settings WHERE key = $1`, key).Scan(&val)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", errs.NotFound("bot setting not found: " + key)
	}
	if err != nil {
		return "", fmt.Errorf("query bot setting: %w", err)
	}
	return val, nil
}

func (s *BotSettingsStore) Set(ctx context.Context, key, value string) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO bot_settings (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("set bot setting: %w", err)
	}
	return nil
}

func (s *BotSettingsStore) GetAll(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.Query(ctx, `SELECT key, value FROM bot_settings`)
	if err != nil {
		return nil, fmt.Errorf("query bot settings: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}
