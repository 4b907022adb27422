// Package store defines the control plane's persistence interfaces:
// servers, runs (server_sessions), auth sessions, backups and settings.
// Implementations are single-writer, synchronous — write failures surface
// to the caller and are never retried by the store itself.
package store

import (
	"context"
	"time"

	"github.com/aypapol/panel/internal/model"
)

type ServerStore interface {
	GetAll(ctx context.Context) ([]*model.Server, error)
	GetByID(ctx context.Context, id string) (*model.Server, error)
	Insert(ctx context.Context, s *model.Server) error
	Update(ctx context.Context, s *model.Server) error
	UpdateTheme(ctx context.Context, id string, bannerPath, accentColor *string) error
	DeleteByID(ctx context.Context, id string) error
}

type RunStore interface {
	// Start inserts a new open run for serverID.
	Start(ctx context.Context, serverID string, startedAt int64) (*model.Run, error)
	// Stop closes the single open run for serverID; it returns a NotFound
	// error when serverID has no open run.
	Stop(ctx context.Context, serverID string, stoppedAt int64, reason model.StopReason) error
	// StopOpenRun closes whatever open run exists, regardless of server.
	StopOpenRun(ctx context.Context, stoppedAt int64, reason model.StopReason) (*model.Run, error)
	// OpenRun returns the single open run across the whole table, if any.
	OpenRun(ctx context.Context) (*model.Run, error)
	History(ctx context.Context, serverID string) ([]*model.Run, error)
	DeleteByServer(ctx context.Context, serverID string) error
}

type BackupStore interface {
	List(ctx context.Context, serverID string) ([]*model.Backup, error)
	ListAll(ctx context.Context) ([]*model.Backup, error)
	Count(ctx context.Context, serverID string) (int, error)
	Oldest(ctx context.Context, serverID string) (*model.Backup, error)
	Insert(ctx context.Context, b *model.Backup) error
	GetByID(ctx context.Context, id int64) (*model.Backup, error)
	DeleteByID(ctx context.Context, id int64) error
}

type SettingsStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Unset(ctx context.Context, key string) error
	GetAll(ctx context.Context) (map[string]string, error)
}

type BotSettingsStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	GetAll(ctx context.Context) (map[string]string, error)
}

type AuthSessionStore interface {
	Create(ctx context.Context, s *model.AuthSession) error
	Get(ctx context.Context, token string) (*model.AuthSession, error)
	Delete(ctx context.Context, token string) error
	// ExpireOlderThan deletes sessions whose expires_at has passed.
	ExpireOlderThan(ctx context.Context, now time.Time) (int64, error)
}

// Store aggregates all persistence interfaces in a single
// repository.Repository-style struct-of-interfaces.
type Store struct {
	Servers      ServerStore
	Runs         RunStore
	Backups      BackupStore
	Settings     SettingsStore
	BotSettings  BotSettingsStore
	AuthSessions AuthSessionStore
}
