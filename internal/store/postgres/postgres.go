// Package postgres implements internal/store on top of pgx, following the
// repository-per-entity pattern of the monorepo's api/repository/postgres
// package: hand-written SQL, no ORM, one struct per table wrapping a shared
// *pgxpool.Pool.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aypapol/panel/internal/store"
)

// New opens a connection pool and wires every store.Store implementation
// against it, pinging once to fail fast on bad configuration.
func New(ctx context.Context, connString string) (*store.Store, *pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ping database: %w", err)
	}

	return &store.Store{
		Servers:      NewServerStore(pool),
		Runs:         NewRunStore(pool),
		Backups:      NewBackupStore(pool),
		Settings:     NewSettingsStore(pool),
		BotSettings:  NewBotSettingsStore(pool),
		AuthSessions: NewAuthSessionStore(pool),
	}, pool, nil
}
