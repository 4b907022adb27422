// Package model holds the core entities of the control plane: servers,
// their runs (sessions), auth sessions, backups and the settings bag.
package model

import "time"

// Server is a managed game-server definition. Mutated only while the
// server is not running; deleted only while not running.
type Server struct {
	ID          string            `db:"id"`
	Name        string            `db:"name"`
	GameType    string            `db:"game_type"`
	Image       string            `db:"image"`
	Port        uint16            `db:"port"`
	Env         map[string]string `db:"env"`
	Volumes     map[string]string `db:"volumes"`
	CreatedAt   int64             `db:"created_at"`
	BannerPath  *string           `db:"banner_path"`
	AccentColor *string           `db:"accent_color"`
}

// StopReason classifies why a Run ended.
type StopReason string

const (
	StopReasonUser     StopReason = "user"
	StopReasonCrash    StopReason = "crash"
	StopReasonReplaced StopReason = "replaced"
)

// Run (ServerSession) is one interval of a Server being live. At most one
// Run with StoppedAt == nil may exist across the whole table.
type Run struct {
	ID         int64       `db:"id"`
	ServerID   string      `db:"server_id"`
	StartedAt  int64       `db:"started_at"`
	StoppedAt  *int64      `db:"stopped_at"`
	StopReason *StopReason `db:"stop_reason"`
}

// AuthSession is an opaque principal session; the core only ever reads
// PrincipalID and ExpiresAt.
type AuthSession struct {
	Token       string    `db:"token"`
	PrincipalID string    `db:"principal_id"`
	DisplayName string    `db:"display_name"`
	AvatarRef   string    `db:"avatar_ref"`
	ExpiresAt   time.Time `db:"expires_at"`
}

// Backup is a recorded snapshot of a server's persistent data.
type Backup struct {
	ID        int64  `db:"id"`
	ServerID  string `db:"server_id"`
	Filename  string `db:"filename"`
	SizeBytes int64  `db:"size_bytes"`
	CreatedAt int64  `db:"created_at"`
}

// RuntimeStatus is derived from the container runtime, never persisted.
type RuntimeStatus string

const (
	StatusMissing  RuntimeStatus = "missing"
	StatusStopped  RuntimeStatus = "stopped"
	StatusStarting RuntimeStatus = "starting"
	StatusRunning  RuntimeStatus = "running"
	StatusStopping RuntimeStatus = "stopping"
)

// Recognized panel settings keys and their static defaults.
const (
	SettingHostDomain              = "host_domain"
	SettingGameMemoryLimitGB       = "game_memory_limit_gb"
	SettingGameCPULimit            = "game_cpu_limit"
	SettingAutoStopHours           = "auto_stop_hours"
	SettingMaxBackupsPerServer     = "max_backups_per_server"
	SettingAutoBackupIntervalHours = "auto_backup_interval_hours"
)

// DefaultSettings are returned by Store.Settings.Get when no row exists.
var DefaultSettings = map[string]string{
	SettingHostDomain:              "aypapol.com",
	SettingGameMemoryLimitGB:       "6",
	SettingGameCPULimit:            "3",
	SettingAutoStopHours:           "0",
	SettingMaxBackupsPerServer:     "5",
	SettingAutoBackupIntervalHours: "0",
}

// Recognized bot settings keys; reserved/unenforced knobs are
// still stored, just never consumed by the core (logs_channel_id).
const (
	BotSettingAllowedChannelID = "allowed_channel_id"
	BotSettingErrorsChannelID  = "errors_channel_id"
	BotSettingCrashesChannelID = "crashes_channel_id"
	BotSettingLogsChannelID    = "logs_channel_id"
)
