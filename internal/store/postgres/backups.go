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

type BackupStore struct {
	db *pgxpool.Pool
}

func NewBackupStore(db *pgxpool.Pool) *BackupStore {
	return &BackupStore{db: db}
}

func (s *BackupStore) List(ctx context.Context, serverID string) ([]*model.Backup, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, server_id, filename, size_bytes, created_at
		FROM backups
		WHERE server_id = $1
		ORDER BY created_at DESC
	`, serverID)
	if err != nil {
		return nil, fmt.Errorf("query backups: %w", err)
	}
	defer rows.Close()
	return scanBackups(rows)
}

func (s *BackupStore) ListAll(ctx context.Context) ([]*model.Backup, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, server_id, filename, size_bytes, created_at
		FROM backups
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query backups: %w", err)
	}
	defer rows.Close()
	return scanBackups(rows)
}

func scanBackups(rows pgx.Rows) ([]*model.Backup, error) {
	var out []*model.Backup
	for rows.Next() {
		b := &model.Backup{}
		if err := rows.Scan(&b.ID, &b.ServerID, &b.Filename, &b.SizeBytes, &b.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *BackupStore) Count(ctx context.Context, serverID string) (int, error) {
	var n int
	err := s.db.QueryRow(ctx, `SELECT count(*) FROM backups WHERE server_id = $1`, serverID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count backups: %w", err)
	}
	return n, nil
}

func (s *BackupStore) Oldest(ctx context.Context, serverID string) (*model.Backup, error) {
	b := &model.Backup{}
	err := s.db.QueryRow(ctx, `
		SELECT id, server_id, filename, size_bytes, created_at
		FROM backups
		WHERE server_id = $1
		ORDER BY created_at ASC
		LIMIT 1
	`, serverID).Scan(&b.ID, &b.ServerID, &b.Filename, &b.SizeBytes, &b.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query oldest backup: %w", err)
	}
	return b, nil
}

func (s *BackupStore) Insert(ctx context.Context, b *model.Backup) error {
	err := s.db.QueryRow(ctx, `
		INSERT INTO backups (server_id, filename, size_bytes, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, b.ServerID, b.Filename, b.SizeBytes, b.CreatedAt).Scan(&b.ID)
	if err != nil {
		return fmt.Errorf("insert backup: %w", err)
	}
	return nil
}

func (s *BackupStore) GetByID(ctx context.Context, id int64) (*model.Backup, error) {
	b := &model.Backup{}
	err := s.db.QueryRow(ctx, `
		SELECT id, server_id, filename, size_bytes, created_at
		FROM backups WHERE id = $1
	`, id).Scan(&b.ID, &b.ServerID, &b.Filename, &b.SizeBytes, &b.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.NotFound("backup not found")
	}
	if err != nil {
		return nil, fmt.Errorf("query backup: %w", err)
	}
	return b, nil
}

func (s *BackupStore) DeleteByID(ctx context.Context, id int64) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM backups WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete backup: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return errs.NotFound("backup not found")
	}
	return nil
}
