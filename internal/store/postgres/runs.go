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

type RunStore struct {
	db *pgxpool.Pool
}

func NewRunStore(db *pgxpool.Pool) *RunStore {
	return &RunStore{db: db}
}

func (s *RunStore) Start(ctx context.Context, serverID string, startedAt int64) (*model.Run, error) {
	run := &model.Run{ServerID: serverID, StartedAt: startedAt}
	err := s.db.QueryRow(ctx, `
		INSERT INTO server_sessions (server_id, started_at)
		VALUES ($1, $2)
		RETURNING id
	`, serverID, startedAt).Scan(&run.ID)
	if isUniqueViolation(err) {
		return nil, errs.Conflict("another server is already running")
	}
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return run, nil
}

func (s *RunStore) Stop(ctx context.Context, serverID string, stoppedAt int64, reason model.StopReason) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE server_sessions
		SET stopped_at = $2, stop_reason = $3
		WHERE server_id = $1 AND stopped_at IS NULL
	`, serverID, stoppedAt, reason)
	if err != nil {
		return fmt.Errorf("close run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return errs.NotFound("no open run for server: " + serverID)
	}
	return nil
}

func (s *RunStore) StopOpenRun(ctx context.Context, stoppedAt int64, reason model.StopReason) (*model.Run, error) {
	run := &model.Run{}
	var stopReason string
	err := s.db.QueryRow(ctx, `
		UPDATE server_sessions
		SET stopped_at = $1, stop_reason = $2
		WHERE stopped_at IS NULL
		RETURNING id, server_id, started_at
	`, stoppedAt, reason).Scan(&run.ID, &run.ServerID, &run.StartedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("close open run: %w", err)
	}
	run.StoppedAt = &stoppedAt
	stopReason = string(reason)
	rs := model.StopReason(stopReason)
	run.StopReason = &rs
	return run, nil
}

func (s *RunStore) OpenRun(ctx context.Context) (*model.Run, error) {
	run := &model.Run{}
	err := s.db.QueryRow(ctx, `
		SELECT id, server_id, started_at
		FROM server_sessions
		WHERE stopped_at IS NULL
	`).Scan(&run.ID, &run.ServerID, &run.StartedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query open run: %w", err)
	}
	return run, nil
}

func (s *RunStore) History(ctx context.Context, serverID string) ([]*model.Run, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, server_id, started_at, stopped_at, stop_reason
		FROM server_sessions
		WHERE server_id = $1
		ORDER BY started_at DESC
	`, serverID)
	if err != nil {
		return nil, fmt.Errorf("query run history: %w", err)
	}
	defer rows.Close()

	var out []*model.Run
	for rows.Next() {
		run := &model.Run{}
		var reason *string
		if err := rows.Scan(&run.ID, &run.ServerID, &run.StartedAt, &run.StoppedAt, &reason); err != nil {
			return nil, err
		}
		if reason != nil {
			rs := model.StopReason(*reason)
			run.StopReason = &rs
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

func (s *RunStore) DeleteByServer(ctx context.Context, serverID string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM server_sessions WHERE server_id = $1`, serverID)
	if err != nil {
		return fmt.Errorf("delete run history: %w", err)
	}
	return nil
}
