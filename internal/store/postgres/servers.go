package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aypapol/panel/internal/errs"
	"github.com/aypapol/panel/internal/model"
)

type ServerStore struct {
	db *pgxpool.Pool
}

func NewServerStore(db *pgxpool.Pool) *ServerStore {
	return &ServerStore{db: db}
}

func (s *ServerStore) GetAll(ctx context.Context) ([]*model.Server, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, name, game_type, image, port, env, volumes, created_at, banner_path, accent_color
		FROM servers
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("query servers: %w", err)
	}
	defer rows.Close()

	var out []*model.Server
	for rows.Next() {
		srv, err := scanServer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, srv)
	}
	return out, rows.Err()
}

func (s *ServerStore) GetByID(ctx context.Context, id string) (*model.Server, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, name, game_type, image, port, env, volumes, created_at, banner_path, accent_color
		FROM servers
		WHERE id = $1
	`, id)

	srv, err := scanServer(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.NotFound("server not found: " + id)
	}
	if err != nil {
		return nil, err
	}
	return srv, nil
}

func (s *ServerStore) Insert(ctx context.Context, srv *model.Server) error {
	env, err := json.Marshal(srv.Env)
	if err != nil {
		return fmt.Errorf("marshal env: %w", err)
	}
	vols, err := json.Marshal(srv.Volumes)
	if err != nil {
		return fmt.Errorf("marshal volumes: %w", err)
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO servers (id, name, game_type, image, port, env, volumes, created_at, banner_path, accent_color)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, srv.ID, srv.Name, srv.GameType, srv.Image, srv.Port, string(env), string(vols), srv.CreatedAt, srv.BannerPath, srv.AccentColor)
	if isUniqueViolation(err) {
		return errs.Conflict(fmt.Sprintf("server %q or its port is already in use", srv.ID))
	}
	if err != nil {
		return fmt.Errorf("insert server: %w", err)
	}
	return nil
}

func (s *ServerStore) Update(ctx context.Context, srv *model.Server) error {
	env, err := json.Marshal(srv.Env)
	if err != nil {
		return fmt.Errorf("marshal env: %w", err)
	}
	vols, err := json.Marshal(srv.Volumes)
	if err != nil {
		return fmt.Errorf("marshal volumes: %w", err)
	}

	tag, err := s.db.Exec(ctx, `
		UPDATE servers
		SET name = $2, game_type = $3, image = $4, port = $5, env = $6, volumes = $7
		WHERE id = $1
	`, srv.ID, srv.Name, srv.GameType, srv.Image, srv.Port, string(env), string(vols))
	if isUniqueViolation(err) {
		return errs.Conflict(fmt.Sprintf("port %d is already in use", srv.Port))
	}
	if err != nil {
		return fmt.Errorf("update server: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return errs.NotFound("server not found: " + srv.ID)
	}
	return nil
}

func (s *ServerStore) UpdateTheme(ctx context.Context, id string, bannerPath, accentColor *string) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE servers SET banner_path = $2, accent_color = $3 WHERE id = $1
	`, id, bannerPath, accentColor)
	if err != nil {
		return fmt.Errorf("update server theme: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return errs.NotFound("server not found: " + id)
	}
	return nil
}

func (s *ServerStore) DeleteByID(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM servers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete server: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return errs.NotFound("server not found: " + id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanServer(row rowScanner) (*model.Server, error) {
	srv := &model.Server{}
	var env, vols []byte
	err := row.Scan(&srv.ID, &srv.Name, &srv.GameType, &srv.Image, &srv.Port, &env, &vols,
		&srv.CreatedAt, &srv.BannerPath, &srv.AccentColor)
	if err != nil {
		return nil, err
	}
	if len(env) > 0 {
		if err := json.Unmarshal(env, &srv.Env); err != nil {
			return nil, fmt.Errorf("unmarshal env: %w", err)
		}
	}
	if len(vols) > 0 {
		if err := json.Unmarshal(vols, &srv.Volumes); err != nil {
			return nil, fmt.Errorf("unmarshal volumes: %w", err)
		}
	}
	return srv, nil
}
